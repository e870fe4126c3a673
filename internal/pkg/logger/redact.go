package logger

import (
	"regexp"
	"strings"
)

var (
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+\S+`)
	dsnRegex    = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// redactSecretValue masks credentials before they reach the log stream.
// Token-ish fields are masked down to a short prefix; bearer headers and
// DSN passwords embedded in generic values are scrubbed in place.
func redactSecretValue(key, val string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "token") || strings.Contains(k, "secret") || strings.Contains(k, "password") {
		return RedactToken(val)
	}
	val = bearerRegex.ReplaceAllString(val, "Bearer ***")
	val = dsnRegex.ReplaceAllString(val, "://$1:***@")
	return val
}

// RedactToken masks a credential for safe logging.
// "sk-abcdef123456" → "sk-a***"
// Short values (≤4 chars) are fully masked.
func RedactToken(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return token[:4] + "***"
}
