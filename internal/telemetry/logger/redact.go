package logger

import (
	"log/slog"
	"strings"
)

// pemPrefix starts every inline PEM block. Inline TLS material is accepted
// wherever a file path is, so configuration values may carry private keys.
const pemPrefix = "-----BEGIN "

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, maskPEM(strVal))
		}

		// If key name suggests sensitive data and value is non-empty, fully redact
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskPEM keeps the block type of a PEM value and drops its body.
// Format: "-----BEGIN <TYPE>----- ***REDACTED***"
func maskPEM(value string) string {
	header := value
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		header = value[:i]
	}
	return strings.TrimSpace(header) + " " + redactedValue
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	if IsSensitiveValue(value) {
		return maskPEM(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value is an inline private key.
func IsSensitiveValue(value string) bool {
	v := strings.TrimSpace(value)
	return strings.HasPrefix(v, pemPrefix) && strings.Contains(v, "PRIVATE KEY")
}
