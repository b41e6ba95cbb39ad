// Package errors implements a module+code scoped error registry, the same
// shape the engine's external collaborators expect: every error carries a
// stable (module, code) pair that survives refactors and upgrades, instead
// of being identified by its Go type or message text.
package errors

import "fmt"

// Error is a module-scoped error with a stable numeric code.
type Error struct {
	module  string
	code    uint32
	message string
}

// New registers a new error kind under module with the given code.
//
// Codes must be unique within a module; this is not enforced at runtime
// (there is no global registry to check against) but by convention each
// module's error list is declared together in one place, as in
// pool/errors.go.
func New(module string, code uint32, message string) *Error {
	return &Error{module: module, code: code, message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// Module returns the owning module name.
func (e *Error) Module() string {
	return e.module
}

// Code returns the stable error code within the module.
func (e *Error) Code() uint32 {
	return e.code
}

// Is reports whether err is the same registered error kind as e. This lets
// callers use errors.Is(err, pool.ErrPaused) instead of string/type
// matching, and is insensitive to wrapping via WithContext.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.module == other.module && e.code == other.code
}

// WithContext wraps e with additional non-structural context, preserving
// Is()-comparability against the original registered error.
func (e *Error) WithContext(format string, args ...interface{}) error {
	return &contextError{base: e, context: fmt.Sprintf(format, args...)}
}

type contextError struct {
	base    *Error
	context string
}

func (c *contextError) Error() string {
	return fmt.Sprintf("%s: %s", c.base.message, c.context)
}

func (c *contextError) Unwrap() error {
	return c.base
}

func (c *contextError) Is(target error) bool {
	return c.base.Is(target)
}
