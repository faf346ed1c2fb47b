package gpsd

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax matches any *SyntaxError via errors.Is.
	ErrSyntax = errors.New("gpsd: malformed json")
	// ErrUnknownClass matches any *UnknownClassError via errors.Is.
	ErrUnknownClass = errors.New("gpsd: unknown class")
)

// SyntaxError reports input that is not a well-formed JSON object.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("gpsd json parse failed: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// UnknownClassError reports an object that matched neither a known class nor
// any field fingerprint. Class is empty when the object had no class field.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("gpsd: unknown class %q", e.Class)
}

func (e *UnknownClassError) Is(target error) bool { return target == ErrUnknownClass }
