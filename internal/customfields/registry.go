// Package customfields tracks admin-defined metadata fields pulled from raw
// vendor records beyond the fixed canonical schema. Each configured field
// gets a stable generated slug; the registry also accumulates the distinct
// values seen per slug so the admin surface can offer them as filters.
package customfields

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// SlugPrefix namespaces generated meta keys away from WordPress core fields.
const SlugPrefix = "cp_connect_"

// Mapping is one admin-configured custom field: a display name and the
// vendor field it reads from. The slug is derived, not configured.
type Mapping struct {
	DisplayName string `yaml:"name"`
	Source      string `yaml:"source"`
}

// Field is a resolved custom field with its assigned slug.
type Field struct {
	Slug        string
	DisplayName string
	Source      string
}

// Registry resolves custom field mappings for one content type and
// accumulates the option sets observed during a pass. It is not safe for
// concurrent use; each run builds its own registry.
type Registry struct {
	contentType domain.ContentType
	fields      []Field
	options     map[string][]string
	seen        map[string]map[string]bool
}

// NewRegistry assigns slugs to the configured mappings in table order.
// When two display names derive the same slug, later entries get a numeric
// suffix ("slug", "slug-1", "slug-2"), deterministically.
func NewRegistry(ct domain.ContentType, mappings []Mapping) *Registry {
	r := &Registry{
		contentType: ct,
		options:     map[string][]string{},
		seen:        map[string]map[string]bool{},
	}

	taken := map[string]bool{}
	for _, m := range mappings {
		base := SlugPrefix + Slugify(m.DisplayName)
		slug := base
		for n := 1; taken[slug]; n++ {
			slug = base + "-" + strconv.Itoa(n)
		}
		taken[slug] = true
		r.fields = append(r.fields, Field{Slug: slug, DisplayName: m.DisplayName, Source: m.Source})
	}
	return r
}

// Fields returns the resolved fields in mapping-table order.
func (r *Registry) Fields() []Field { return r.fields }

// Observe extracts the configured custom fields from one raw record,
// returning slug -> sanitized value assignments to merge into the item's
// canonical fields. Observed values are also folded into the per-slug
// option sets (deduplicated, insertion-ordered).
func (r *Registry) Observe(raw domain.RawRecord) map[string]string {
	out := map[string]string{}
	for _, f := range r.fields {
		v, ok := raw.LookupString(f.Source)
		if !ok {
			continue
		}
		v = sanitizeValue(v)
		if v == "" {
			continue
		}
		out[f.Slug] = v
		r.accumulate(f.Slug, v)
	}
	return out
}

// Options returns the accumulated option sets, keyed by slug, each in the
// order first observed. The orchestrator persists this once per pass.
func (r *Registry) Options() map[string][]string {
	out := make(map[string][]string, len(r.options))
	for slug, values := range r.options {
		out[slug] = append([]string(nil), values...)
	}
	return out
}

func (r *Registry) accumulate(slug, value string) {
	key := Slugify(value)
	if r.seen[slug] == nil {
		r.seen[slug] = map[string]bool{}
	}
	if r.seen[slug][key] {
		return
	}
	r.seen[slug][key] = true
	r.options[slug] = append(r.options[slug], value)
}

// Slugify lowercases, strips punctuation, and turns whitespace runs into
// single hyphens, yielding a URL/attribute-safe token.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		// other punctuation is dropped
	}
	return strings.TrimRight(b.String(), "-")
}

func sanitizeValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
