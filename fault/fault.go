// Package fault implements the classed panic/recover exception idiom used
// throughout fi2rcs: fatal conditions panic with a *Error carrying a class
// tag, and a single recover point per run converts that into a diagnostic
// and an exit code.
package fault

import "fmt"

// Class names the five error kinds from the error-handling design: parse,
// semantic, capability, external, and io failures. There is no recovery
// policy distinction between them at runtime; the class exists so
// diagnostics and tests can identify what kind of thing went wrong.
type Class string

const (
	Parse      Class = "parse"
	Semantic   Class = "semantic"
	Capability Class = "capability"
	External   Class = "external"
	IO         Class = "io"
)

// Error is the payload carried by a panic raised via Throw.
type Error struct {
	Class Class
	Line  int // source stream line, or 0 if not applicable
	Msg   string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Throw builds an *Error for use with panic. It does not panic itself, so
// that a `return` can follow the call site to satisfy the compiler, in
// keeping with the teacher's convention.
func Throw(class Class, line int, format string, args ...interface{}) *Error {
	return &Error{Class: class, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Catch recovers a panic raised via Throw, re-panicking anything else so
// that genuine programming errors are never silently swallowed.
func Catch(x interface{}) *Error {
	if x == nil {
		return nil
	}
	if err, ok := x.(*Error); ok {
		return err
	}
	panic(x)
}
