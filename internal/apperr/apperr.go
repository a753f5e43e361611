// Package apperr holds the error conditions services return and the HTTP layer
// translates. Nothing outside httpserver should turn these into status codes.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError is structural rejection of an input shape.
type ValidationError struct {
	Fields []FieldError
}

func Invalid(fields []FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "invalid field/s"
}

// FieldMap keeps the first message reported for each field.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}
	return out
}

type Duplicate struct {
	Field string
	Value string
}

// DuplicateCredentialError lists every natural-key field that is already taken,
// in the order the fields were checked.
type DuplicateCredentialError struct {
	Conflicts []Duplicate
}

func NewDuplicate(field, value string) *DuplicateCredentialError {
	return &DuplicateCredentialError{Conflicts: []Duplicate{{Field: field, Value: value}}}
}

func (e *DuplicateCredentialError) Error() string {
	fields := e.Fields()
	if len(fields) == 1 {
		return fields[0] + " already exist"
	}
	return "Duplicate credential(s): " + strings.Join(fields, ", ") + " already exist"
}

func (e *DuplicateCredentialError) Fields() []string {
	out := make([]string, 0, len(e.Conflicts))
	for _, d := range e.Conflicts {
		out = append(out, d.Field)
	}
	return out
}

func (e *DuplicateCredentialError) Duplicates() map[string]string {
	out := make(map[string]string, len(e.Conflicts))
	for _, d := range e.Conflicts {
		out[d.Field] = d.Value
	}
	return out
}

type NotFoundError struct {
	Resource string
	Message  string
}

func NotFound(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func (e *NotFoundError) Error() string {
	return e.Message
}

type ConstraintKind int

const (
	UniqueViolation ConstraintKind = iota + 1
	ForeignKeyViolation
	// InUse is a delete blocked by rows that still reference the target.
	InUse
)

// ConstraintError is a violation only the storage engine caught. Column is
// filled when the driver reports which unique column was hit.
type ConstraintError struct {
	Kind   ConstraintKind
	Column string
	Err    error
}

func (e *ConstraintError) Error() string {
	switch e.Kind {
	case UniqueViolation:
		if e.Column != "" {
			return e.Column + " already exist"
		}
		return "credential already exist"
	case ForeignKeyViolation:
		return "referenced record does not exist"
	case InUse:
		return "record is still in use"
	default:
		return "database constraint was violated"
	}
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
