package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Category groups errors by the subsystem that raised them.
type Category string

const (
	CategoryRoutes    Category = "routes"
	CategoryRuntime   Category = "runtime"
	CategoryHydration Category = "hydration"
	CategoryConfig    Category = "config"
	CategoryDev       Category = "dev"
	CategoryCLI       Category = "cli"
)

// Location is a source position inside the user's project.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// Error is a structured error with source location and fix suggestions.
type Error struct {
	// Code is a stable identifier (e.g. "B1002") registered in codes.go.
	Code string

	// Category is the subsystem the error belongs to.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Location points at the file (and line) that caused the error.
	Location *Location

	// Context holds source lines surrounding Location, when available.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL links to the error's documentation page.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap supports errors.Is/As on the wrapped error.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation records the source position and captures surrounding lines
// when the file is readable.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	if line > 0 {
		e.Context = readContextLines(file, line, 5)
	}
	return e
}

// WithFile records a file-level location with no line information. Route
// layout errors are per-file rather than per-line, so this is the common
// form during tree building.
func (e *Error) WithFile(file string) *Error {
	e.Location = &Location{File: file}
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *Error) WithSuggestion(format string, args ...any) *Error {
	e.Suggestion = fmt.Sprintf(format, args...)
	return e
}

// WithDetail replaces the template detail with a specific explanation.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap attaches an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around targetLine from a file on disk.
// Returns nil when the file cannot be read; callers treat context as
// best-effort.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates an Error from a registered code. Unknown codes still produce
// a usable error so a missing registry entry never masks the real failure.
func New(code string) *Error {
	template, ok := codes[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an ad-hoc Error with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a plain error. Existing *Error values pass through
// unchanged so codes assigned close to the failure are preserved.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return New(code).Wrap(err)
}

// List aggregates multiple errors from a single pass, so route building can
// report every problem at once instead of failing on the first.
type List struct {
	Errors []*Error
}

func (l *List) Error() string {
	switch len(l.Errors) {
	case 0:
		return "no errors"
	case 1:
		return l.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l.Errors))
	for _, e := range l.Errors {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Add appends an error to the list.
func (l *List) Add(e *Error) {
	l.Errors = append(l.Errors, e)
}

// Err returns the list as an error, or nil when nothing was collected. A
// single-element list unwraps to the bare *Error.
func (l *List) Err() error {
	switch len(l.Errors) {
	case 0:
		return nil
	case 1:
		return l.Errors[0]
	}
	return l
}

// AsList normalizes an error into the slice of structured errors it carries.
func AsList(err error) []*Error {
	switch e := err.(type) {
	case nil:
		return nil
	case *List:
		return e.Errors
	case *Error:
		return []*Error{e}
	}
	return []*Error{Newf(CategoryRuntime, "%s", err.Error()).Wrap(err)}
}
