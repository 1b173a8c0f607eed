package mapping

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

// Transform names accepted in mapping rules.
const (
	TransformDatetime = "datetime" // vendor timestamp -> time.Time (UTC)
	TransformDate     = "date"     // vendor timestamp -> "2006-01-02"
	TransformClock    = "clock"    // vendor time of day -> "7:00pm"
	TransformInt      = "int"
	TransformBool     = "bool"
	TransformEscape   = "escape" // HTML-escape free text
)

// datetimeLayouts are the vendor timestamp shapes seen across the four ChMS
// APIs, tried in order. Layouts without a zone are taken as UTC.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
}

const dateOnlyLayout = "2006-01-02"

// transform applies the named transform to a vendor string value. The second
// return reports whether a datetime value carried a date with no time
// component (whole-day semantics).
func transform(value, name string) (interface{}, bool, error) {
	switch name {
	case "":
		return value, false, nil
	case TransformDatetime:
		t, allDay, err := parseInstant(value)
		if err != nil {
			return nil, false, err
		}
		return t, allDay, nil
	case TransformDate:
		t, _, err := parseInstant(value)
		if err != nil {
			return nil, false, err
		}
		return t.Format(dateOnlyLayout), false, nil
	case TransformClock:
		s, err := formatClock(value)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	case TransformInt:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, false, err
		}
		return n, false, nil
	case TransformBool:
		return parseVendorBool(value), false, nil
	case TransformEscape:
		return html.EscapeString(value), false, nil
	}
	return nil, false, fmt.Errorf("unknown transform %q", name)
}

// parseInstant parses a vendor timestamp into a timezone-aware instant.
// allDay is true when the value carried only a date.
func parseInstant(value string) (t time.Time, allDay bool, err error) {
	value = strings.TrimSpace(value)
	if t, err = time.Parse(dateOnlyLayout, value); err == nil {
		return t.UTC(), true, nil
	}
	for _, layout := range datetimeLayouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized timestamp %q", value)
}

// clockLayouts are time-of-day shapes ("Meeting_Time" style columns).
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// formatClock renders a vendor time of day as "7:00pm", the display shape
// used for meeting schedules.
func formatClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return strings.ToLower(t.Format("3:04PM")), nil
		}
	}
	return "", fmt.Errorf("unrecognized time of day %q", value)
}

// parseVendorBool accepts the truthiness shapes vendors actually send:
// "true"/"false", "TRUE", "1"/"0", "yes"/"no".
func parseVendorBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}
