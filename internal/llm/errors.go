// Package llm holds what every generative completion backend shares:
// failure classification, rate-limit retry and the user-facing messages
// for each failure class.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrRateLimited = errors.New("llm: rate limited")
	ErrAuth        = errors.New("llm: authentication failed")
	ErrEmpty       = errors.New("llm: empty completion")
)

// APIError is a non-2xx response from a completion backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("llm: status %d: %s", e.Status, body)
}

// Is lets errors.Is(err, ErrRateLimited) and errors.Is(err, ErrAuth)
// match API errors by their classification.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return classifyText(e.Status, e.Body) == ClassRateLimit
	case ErrAuth:
		return classifyText(e.Status, e.Body) == ClassAuth
	}
	return false
}

// Class groups completion failures by how they are handled.
type Class int

const (
	ClassNone Class = iota
	ClassGeneric
	ClassRateLimit
	ClassAuth
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "ok"
	case ClassRateLimit:
		return "rate_limit"
	case ClassAuth:
		return "auth"
	default:
		return "error"
	}
}

// Classify maps err onto a failure class. Rate limiting wins over auth
// when a response carries both signals.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, ErrRateLimited) {
		return ClassRateLimit
	}
	if errors.Is(err, ErrAuth) {
		return ClassAuth
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassGeneric
	}
	return classifyText(0, err.Error())
}

// rateStatus finds a 429 reported as a status in free error text, not a
// bare number that may be a port or an id.
var rateStatus = regexp.MustCompile(`(?i)\bstatus(?: code)?\s*[:=]?\s*429\b|\btoo many requests\b`)

func classifyText(status int, text string) Class {
	switch {
	case status == 429,
		strings.Contains(text, "RATE_LIMIT_EXCEEDED"),
		strings.Contains(text, "RESOURCE_EXHAUSTED"),
		status == 0 && rateStatus.MatchString(text):
		return ClassRateLimit
	case status == 403,
		strings.Contains(strings.ToLower(text), "api key"):
		return ClassAuth
	}
	return ClassGeneric
}

// UserMessage turns a completion failure into the chat text shown to the
// user. It returns an empty string for a nil error.
func UserMessage(err error) string {
	switch Classify(err) {
	case ClassNone:
		return ""
	case ClassRateLimit:
		return "Przepraszam, ale przekroczono limit zapytań do API. Proszę odczekać kilka minut i spróbować ponownie."
	case ClassAuth:
		return "Przepraszam, wystąpił problem z uwierzytelnieniem klucza API. Proszę sprawdzić konfigurację klucza API modelu językowego."
	default:
		return "Przepraszam, wystąpił błąd podczas przetwarzania zapytania. Proszę spróbować ponownie za chwilę."
	}
}

// Unconfigured stands in for a backend whose credentials are missing.
// Every call fails with ErrAuth, which surfaces as a configuration hint.
type Unconfigured struct {
	Reason string
}

func (u Unconfigured) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("%s: %w", u.Reason, ErrAuth)
}
