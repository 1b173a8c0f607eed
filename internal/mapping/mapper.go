// Package mapping translates raw vendor records into canonical items using
// an admin-configured field mapping table. Mapping is pure: no I/O, no
// clock reads, so the same raw record always maps to the same item.
package mapping

import (
	"fmt"
	"strings"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// MappingError marks a single record that could not be mapped. The batch
// continues; the record is reported as failed.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping error on %q: %s", e.Field, e.Reason)
}

// Rule maps one canonical field from one vendor field path, with an optional
// value transform. Fields absent (or empty) in the raw record are omitted
// from the result, never defaulted here.
type Rule struct {
	Canonical string `yaml:"canonical"`
	Source    string `yaml:"source"`
	Transform string `yaml:"transform,omitempty"`
	// AllDayField, when set on a datetime rule, names a companion boolean
	// canonical field set true when the vendor value carried a date only.
	AllDayField string `yaml:"all_day_field,omitempty"`
}

// ConcatRule joins several vendor fields into one canonical string field
// ("First_Name" + "Last_Name" -> leader). Missing parts are skipped, so a
// lone last name never renders a leading separator.
type ConcatRule struct {
	Canonical string   `yaml:"canonical"`
	Sources   []string `yaml:"sources"`
	Separator string   `yaml:"separator,omitempty"`
}

// LocalityRule builds a human-readable place description from city, region,
// and postal code with locale punctuation: "City, Region Zip". Missing parts
// are omitted without leaving doubled spaces or stray commas.
type LocalityRule struct {
	Canonical  string `yaml:"canonical"`
	City       string `yaml:"city"`
	Region     string `yaml:"region"`
	PostalCode string `yaml:"postal_code"`
}

// ScheduleRule builds a meeting-time description ("Wednesdays at 7:00pm")
// from a day-of-week field and a time field. Without a time the field is
// omitted entirely; without a day only the time renders. When DayField is
// set, the bare day name is also emitted under that canonical field.
type ScheduleRule struct {
	Canonical string `yaml:"canonical"`
	Day       string `yaml:"day"`
	Time      string `yaml:"time"`
	DayField  string `yaml:"day_field,omitempty"`
}

// RecordRule builds a nested canonical record (organizer, venue) from
// several vendor paths. The whole record is omitted unless the Require
// source is present; individual missing sub-fields are skipped.
type RecordRule struct {
	Canonical string `yaml:"canonical"`
	Require   string `yaml:"require"`
	Fields    []Rule `yaml:"fields"`
}

// TaxonomyRule collects a vendor field value as a term of the named taxonomy.
type TaxonomyRule struct {
	Taxonomy string `yaml:"taxonomy"`
	Source   string `yaml:"source"`
}

// FieldMapping is the full admin-configured mapping table for one content
// type. It is constructed from persisted configuration at run start and
// never mutated mid-run.
type FieldMapping struct {
	// IDField is the vendor path of the stable external identifier. A record
	// missing it is rejected with a MappingError.
	IDField string `yaml:"id_field"`

	Rules      []Rule         `yaml:"fields"`
	Concats    []ConcatRule   `yaml:"concats,omitempty"`
	Localities []LocalityRule `yaml:"localities,omitempty"`
	Schedules  []ScheduleRule `yaml:"schedules,omitempty"`
	Records    []RecordRule   `yaml:"records,omitempty"`
	Taxonomies []TaxonomyRule `yaml:"taxonomies,omitempty"`

	// ThumbnailSource is the vendor path of the remote image URL, if any.
	ThumbnailSource string `yaml:"thumbnail_source,omitempty"`
}

// Map translates one raw vendor record into a canonical item. Canonical
// fields whose vendor source is missing or empty are left unset unless a
// default is configured for them.
func Map(raw domain.RawRecord, fm FieldMapping, defaults map[string]interface{}) (*domain.CanonicalItem, error) {
	id, ok := raw.LookupString(fm.IDField)
	if !ok {
		return nil, &MappingError{Field: fm.IDField, Reason: "record has no identity value"}
	}

	item := domain.NewCanonicalItem(id)

	for _, rule := range fm.Rules {
		if v, ok := applyRule(raw, rule, item); ok {
			item.Fields[rule.Canonical] = v
		}
	}

	for _, c := range fm.Concats {
		if v, ok := concat(raw, c); ok {
			item.Fields[c.Canonical] = v
		}
	}

	for _, l := range fm.Localities {
		if v, ok := locality(raw, l); ok {
			item.Fields[l.Canonical] = v
		}
	}

	for _, s := range fm.Schedules {
		applySchedule(raw, s, item)
	}

	for _, rec := range fm.Records {
		if v, ok := record(raw, rec); ok {
			item.Fields[rec.Canonical] = v
		}
	}

	for _, t := range fm.Taxonomies {
		if v, ok := raw.LookupString(t.Source); ok {
			item.AddTerm(t.Taxonomy, v)
		}
	}

	if fm.ThumbnailSource != "" {
		if v, ok := raw.LookupString(fm.ThumbnailSource); ok {
			item.ThumbnailURL = v
		}
	}

	for field, value := range defaults {
		if _, set := item.Fields[field]; !set {
			item.Fields[field] = value
		}
	}

	return item, nil
}

func applyRule(raw domain.RawRecord, rule Rule, item *domain.CanonicalItem) (interface{}, bool) {
	s, ok := raw.LookupString(rule.Source)
	if !ok {
		return nil, false
	}
	v, allDay, err := transform(s, rule.Transform)
	if err != nil {
		return nil, false
	}
	if rule.AllDayField != "" && allDay {
		item.Fields[rule.AllDayField] = true
	}
	return v, true
}

func concat(raw domain.RawRecord, c ConcatRule) (string, bool) {
	sep := c.Separator
	if sep == "" {
		sep = " "
	}
	var parts []string
	for _, src := range c.Sources {
		if v, ok := raw.LookupString(src); ok {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, sep), true
}

func locality(raw domain.RawRecord, l LocalityRule) (string, bool) {
	city, _ := raw.LookupString(l.City)
	region, _ := raw.LookupString(l.Region)
	zip, _ := raw.LookupString(l.PostalCode)

	regionZip := strings.TrimSpace(strings.Join(nonEmpty(region, zip), " "))
	switch {
	case city != "" && regionZip != "":
		return city + ", " + regionZip, true
	case city != "":
		return city, true
	case regionZip != "":
		return regionZip, true
	}
	return "", false
}

func applySchedule(raw domain.RawRecord, s ScheduleRule, item *domain.CanonicalItem) {
	raw12h, ok := raw.LookupString(s.Time)
	if !ok {
		return
	}
	clock, err := formatClock(raw12h)
	if err != nil {
		return
	}
	desc := clock
	if day, ok := raw.LookupString(s.Day); ok {
		desc = day + "s at " + clock
		if s.DayField != "" {
			item.Fields[s.DayField] = day
		}
	}
	item.Fields[s.Canonical] = desc
}

func record(raw domain.RawRecord, rec RecordRule) (map[string]interface{}, bool) {
	if _, ok := raw.LookupString(rec.Require); !ok {
		return nil, false
	}
	out := map[string]interface{}{}
	for _, rule := range rec.Fields {
		s, ok := raw.LookupString(rule.Source)
		if !ok {
			continue
		}
		v, _, err := transform(s, rule.Transform)
		if err != nil {
			continue
		}
		out[rule.Canonical] = v
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
