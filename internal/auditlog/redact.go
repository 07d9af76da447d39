package auditlog

import "strings"

// RedactCookieValue masks a cookie value before it is persisted, keeping
// only enough of it to distinguish cookie_traffic entries without storing
// the raw session token (adapted from the teacher's header token masking).
func RedactCookieValue(name, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return name + "="
	}
	return name + "=" + maskCore(value)
}

func maskCore(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return v[:2] + "***" + v[len(v)-2:]
}
