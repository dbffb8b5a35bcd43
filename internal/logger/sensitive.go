package logger

import (
	"regexp"
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// sensitiveDataPatterns match credentials that must not reach log output
var sensitiveDataPatterns = []redaction{
	// user:password@ in database DSNs (postgres:// URLs and mysql user:pass@tcp(...))
	{regexp.MustCompile(`(//[^/\s:@]+:|^[^/\s:@]+:)[^/\s@]+@`), "${1}[REDACTED]@"},
	// password=... in postgres keyword DSNs
	{regexp.MustCompile(`(?i)((?:password|passwd|pwd)\s*=\s*)[^\s&;]+`), "${1}[REDACTED]"},
	// api keys, tokens and secrets
	{regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret)[\s:=]+)[^;,\s]{5,}`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}[REDACTED]"},
}

// RedactSensitiveData replaces credentials in input with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, r := range sensitiveDataPatterns {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}
