// Package pipeline implements the filter-aggregate pipeline: declarative
// predicate filtering, grouped reductions, calendar bucketing, and
// descriptive statistics over immutable datasets.
//
// Every operation is a pure function of its inputs. Failures are typed,
// local, and recoverable; nothing is retried and no substitute value is
// ever guessed for a missing computation.
package pipeline

import (
	"errors"
	"fmt"
)

// Error codes for pipeline failures.
const (
	ErrCodeSchemaMismatch   = "SCHEMA_MISMATCH"
	ErrCodeInvalidRange     = "INVALID_RANGE"
	ErrCodeInvalidDateField = "INVALID_DATE_FIELD"
	ErrCodeEmptyReduction   = "EMPTY_REDUCTION"
	ErrCodeInvalidPredicate = "INVALID_PREDICATE"
	ErrCodeInvalidReduction = "INVALID_REDUCTION"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrSchemaMismatch is returned when a referenced field is absent from
	// the schema or has the wrong type for the operation.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidRange is returned when a range predicate has lower > upper.
	ErrInvalidRange = errors.New("invalid range: lower bound greater than upper bound")
	// ErrInvalidDateField is returned when a non-date field is bucketed or
	// too many of its values fail to parse.
	ErrInvalidDateField = errors.New("invalid date field")
	// ErrEmptyReduction is returned when a non-count reduction is requested
	// over a group with no usable values.
	ErrEmptyReduction = errors.New("reduction over empty group is undefined")
	// ErrInvalidPredicate is returned when a predicate is malformed
	// (unknown kind, missing required parts, bad expression).
	ErrInvalidPredicate = errors.New("invalid predicate")
	// ErrInvalidReduction is returned when an aggregation names an
	// unregistered reduction function.
	ErrInvalidReduction = errors.New("unknown reduction")
)

// Error carries structured context for a pipeline failure.
type Error struct {
	// Code is one of the ErrCode constants.
	Code string
	// Field is the schema field involved, if any.
	Field string
	// Group is the group key involved, if any (empty-reduction errors).
	Group string
	// Message is the human-readable description.
	Message string

	sentinel error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Group != "":
		return fmt.Sprintf("%s: field %q, group %q: %s", e.Code, e.Field, e.Group, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: field %q: %s", e.Code, e.Field, e.Message)
	case e.Group != "":
		return fmt.Sprintf("%s: group %q: %s", e.Code, e.Group, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the matching sentinel so errors.Is works against the taxonomy.
func (e *Error) Unwrap() error { return e.sentinel }

func newSchemaMismatch(field, message string) *Error {
	return &Error{Code: ErrCodeSchemaMismatch, Field: field, Message: message, sentinel: ErrSchemaMismatch}
}

func newInvalidRange(field string, min, max float64) *Error {
	return &Error{
		Code:     ErrCodeInvalidRange,
		Field:    field,
		Message:  fmt.Sprintf("lower bound %v greater than upper bound %v", min, max),
		sentinel: ErrInvalidRange,
	}
}

func newInvalidDateField(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidDateField, Field: field, Message: message, sentinel: ErrInvalidDateField}
}

func newEmptyReduction(field, group string) *Error {
	return &Error{
		Code:     ErrCodeEmptyReduction,
		Field:    field,
		Group:    group,
		Message:  "no usable values for reduction",
		sentinel: ErrEmptyReduction,
	}
}

func newInvalidPredicate(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidPredicate, Field: field, Message: message, sentinel: ErrInvalidPredicate}
}

func newInvalidReduction(name string) *Error {
	return &Error{Code: ErrCodeInvalidReduction, Message: name, sentinel: ErrInvalidReduction}
}
