// Package logging builds the zap loggers used across schemareflect and scrubs
// credentials out of anything that is about to be logged.
package logging

import (
	"regexp"

	"go.uber.org/zap"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

// MaxStatementLogLength is the maximum length of a statement to log
const MaxStatementLogLength = 200

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in URLs
	connStringPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`)

	// Matches user:pass@tcp(...) in MySQL driver DSNs
	dsnPattern = regexp.MustCompile(`^[^:/@\s]+:[^@\s]*@(tcp|unix)\(`)
)

// New returns a production JSON logger, or a development console logger when debug is set.
// The development logger runs at debug level, which is where every statement is echoed.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// SanitizeConnectionString removes sensitive data from connection strings.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
	sanitized = dsnPattern.ReplaceAllString(sanitized, RedactedText+"@${1}(")

	return sanitized
}

// SanitizeError sanitizes error messages that might carry a connection string
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionString(err.Error())
}

// TruncateStatement shortens long statements for logging
func TruncateStatement(stmt string) string {
	if len(stmt) > MaxStatementLogLength {
		return stmt[:MaxStatementLogLength] + "..."
	}
	return stmt
}
