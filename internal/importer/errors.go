package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks text from which no estimate object could be recovered.
	// Callers usually respond by asking the generator again.
	ErrParse = errors.New("unparseable estimate")
	// ErrValidation marks a well-formed estimate whose fields break the project contract.
	ErrValidation = errors.New("invalid estimate")
)

// ParseError reports that text held no usable structured payload.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrParse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError points at one offending field, e.g. "materials[2].quantity".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in one candidate.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Warning flags a value the importer accepted but a user should double-check.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
