// Package validation contains pure checks and sanitizers applied to element
// values before they are written to the backend. No state, no I/O: every
// function returns a Result with descriptive error strings that callers
// aggregate and display.
package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind selects the rule set applied to a value.
type Kind string

const (
	KindText  Kind = "text"
	KindEmail Kind = "email"
	KindURL   Kind = "url"
	KindJSON  Kind = "json"
)

const (
	// DefaultMaxTextLength limits text values unless overridden.
	DefaultMaxTextLength = 10000

	// MaxJSONBytes limits the serialized size of structured values.
	MaxJSONBytes = 1 << 20
)

// Constraints tune per-kind rules. The zero value means "not required,
// default max length".
type Constraints struct {
	Required  bool
	MaxLength int
}

// Result is the outcome of a validation pass. Sanitized holds the value
// that should actually be stored; it is set even for some invalid inputs
// so callers can show what would have been saved.
type Result struct {
	Valid     bool
	Errors    []string
	Sanitized any
}

// Error carries validation messages across API boundaries as a regular
// error value.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NewError wraps a Result's messages into an *Error.
func NewError(messages []string) *Error {
	return &Error{Messages: messages}
}

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptOpenRe   = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	jsURLRe        = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	emailRe        = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// htmlEscaper escapes exactly the four characters that enable markup or
// attribute injection. The replacements contain none of the original four
// characters, so escaping is idempotent.
var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// SanitizeText strips script blocks, javascript: URLs and inline event
// handlers, then escapes the remaining markup characters.
func SanitizeText(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = scriptOpenRe.ReplaceAllString(s, "")
	s = jsURLRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	return htmlEscaper.Replace(s)
}

// ValidateText checks a text value against length and required rules and
// returns its sanitized form. maxLength <= 0 selects the default limit.
func ValidateText(value string, required bool, maxLength int) Result {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}

	var errs []string
	if required && strings.TrimSpace(value) == "" {
		errs = append(errs, "value is required")
	}
	if len(value) > maxLength {
		errs = append(errs, fmt.Sprintf("value exceeds maximum length of %d characters", maxLength))
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Sanitized: SanitizeText(value)}
}

// ValidateEmail checks the local@domain.tld shape. The sanitized form is
// trimmed and lower-cased.
func ValidateEmail(value string) Result {
	sanitized := strings.ToLower(strings.TrimSpace(value))

	var errs []string
	if !emailRe.MatchString(sanitized) {
		errs = append(errs, "invalid email address")
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Sanitized: sanitized}
}

// ValidateURL accepts absolute http/https URLs only.
func ValidateURL(value string) Result {
	sanitized := strings.TrimSpace(value)

	var errs []string
	u, err := url.Parse(sanitized)
	switch {
	case err != nil:
		errs = append(errs, "invalid URL")
	case !u.IsAbs():
		errs = append(errs, "URL must be absolute")
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, "URL scheme must be http or https")
	case u.Host == "":
		errs = append(errs, "URL must include a host")
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Sanitized: sanitized}
}

// ValidateJSON serializes the value and rejects payloads over MaxJSONBytes.
func ValidateJSON(value any) Result {
	b, err := json.Marshal(value)
	if err != nil {
		return Result{Errors: []string{"value is not serializable"}, Sanitized: value}
	}
	if len(b) > MaxJSONBytes {
		return Result{
			Errors:    []string{fmt.Sprintf("serialized value exceeds %d bytes", MaxJSONBytes)},
			Sanitized: value,
		}
	}
	return Result{Valid: true, Sanitized: value}
}

// Validate dispatches to the kind-specific check. String values of unknown
// kinds are treated as text; non-string values fall back to the JSON rules.
func Validate(value any, kind Kind, c Constraints) Result {
	switch kind {
	case KindEmail:
		if s, ok := value.(string); ok {
			return ValidateEmail(s)
		}
		return Result{Errors: []string{"email value must be a string"}, Sanitized: value}
	case KindURL:
		if s, ok := value.(string); ok {
			return ValidateURL(s)
		}
		return Result{Errors: []string{"URL value must be a string"}, Sanitized: value}
	case KindJSON:
		return ValidateJSON(value)
	default:
		if s, ok := value.(string); ok {
			return ValidateText(s, c.Required, c.MaxLength)
		}
		return ValidateJSON(value)
	}
}
