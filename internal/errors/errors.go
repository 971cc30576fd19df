// Package errors provides structured, user-facing errors for the
// minimact CLI: a stable code, a category, and an optional fix
// suggestion, formatted for terminal display.
package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryProtocol  Category = "protocol"
	CategoryHydration Category = "hydration"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// MinimactError is a structured error with code, category, and a fix
// suggestion.
type MinimactError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// New creates a structured error.
func New(code string, category Category, message string) *MinimactError {
	return &MinimactError{Code: code, Category: category, Message: message}
}

// Error implements the error interface.
func (e *MinimactError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *MinimactError) Unwrap() error {
	return e.Wrapped
}

// Wrap attaches an underlying error.
func (e *MinimactError) Wrap(err error) *MinimactError {
	e.Wrapped = err
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *MinimactError) WithSuggestion(s string) *MinimactError {
	e.Suggestion = s
	return e
}

// Format returns the error formatted for terminal display.
func (e *MinimactError) Format() string {
	var b strings.Builder
	b.WriteString("ERROR ")
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  hint: %s", e.Suggestion)
	}
	return b.String()
}

// Well-known CLI errors.
var (
	// ErrConnectFailed is raised when the server cannot be reached.
	ErrConnectFailed = func(url string, cause error) *MinimactError {
		return New("E101", CategoryTransport, fmt.Sprintf("cannot connect to %s", url)).
			Wrap(cause).
			WithSuggestion("check that the minimact server is running and the --url flag points at its WebSocket endpoint")
	}

	// ErrNoComponents is raised when hydration finds nothing to bind.
	ErrNoComponents = func() *MinimactError {
		return New("E201", CategoryHydration, "no minimact components found in the page").
			WithSuggestion("the page must contain elements with the data-minimact-component attribute")
	}

	// ErrConfigInvalid is raised for an unreadable project file.
	ErrConfigInvalid = func(path string, cause error) *MinimactError {
		return New("E301", CategoryConfig, fmt.Sprintf("invalid config file %s", path)).
			Wrap(cause).
			WithSuggestion("minimact.json must be a JSON object; delete it to fall back to defaults")
	}
)
