package logger

import "strings"

// RedactEmail masks an email address for safe logging:
// "pastor.dave@example.org" becomes "pa***@example.org". Local parts of two
// characters or fewer are fully masked, as is anything that is not an email.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
