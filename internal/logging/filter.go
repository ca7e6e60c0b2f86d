// Package logging provides zerolog helpers that keep secrets out of logs.
//
// Workers report free-form failure reasons and JSON result payloads back to
// issueflow. Those strings are logged and written to the rotating log file,
// so anything resembling a credential is redacted on the way out.
package logging

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// maxPayloadPreview bounds how much of a result payload is logged.
const maxPayloadPreview = 256

// sensitivePatterns match common API key, token and credential formats.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?([a-zA-Z0-9_-]{16,})["']?`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),
	regexp.MustCompile(`(?i)(secret|password|credential|passwd)["']?\s*[:=]\s*["']?[^\s"',}]{8,}["']?`),
	regexp.MustCompile(`(?i)-----BEGIN[A-Z\s]+PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)(token|auth)["']?\s*[:=]\s*["']?[a-zA-Z0-9+/=_-]{32,}["']?`),
}

// ContainsSensitiveData reports whether s matches any sensitive pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every sensitive match in value with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// PayloadPreview returns a redacted, length-limited rendering of an
// executor payload suitable for a log field.
func PayloadPreview(payload []byte) string {
	s := strings.TrimSpace(FilterSensitiveValue(string(payload)))
	if len(s) <= maxPayloadPreview {
		return s
	}
	cut := maxPayloadPreview
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SensitiveDataHook flags log events whose message looks like it carries a
// secret. zerolog hooks cannot rewrite the message; FilteringWriter does the
// actual redaction for the log file.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// FilteringWriter wraps an io.Writer and redacts sensitive data from output.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a FilteringWriter around w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers do not
// see the redaction as a short write.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err = fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
