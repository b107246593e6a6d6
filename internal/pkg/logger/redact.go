package logger

import "strings"

// RedactEmail masks the local part of an address before it hits the log,
// keeping just enough to correlate entries: "john.doe@firstnational.com"
// becomes "jo***@firstnational.com". Local parts of two characters or
// fewer are masked entirely; anything that is not an address at all
// becomes "***@***".
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
