// Package dataset defines the public value types shared by the loader,
// the filter-aggregate pipeline, and rendering callers: schemas, records,
// datasets, filtered views, and the declarative query model.
//
// A Dataset is immutable once constructed. Pipeline operations never modify
// it; they return views (index subsets) or new datasets. Concurrent callers
// may therefore share one Dataset as read-only without locking.
package dataset

import (
	"errors"
	"fmt"
	"time"
)

// FieldType is the semantic type of a schema field.
type FieldType string

// Supported field types.
const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
	TypeBool   FieldType = "bool"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeDate, TypeBool:
		return true
	}
	return false
}

// Field describes one named, typed column of a schema.
type Field struct {
	// Name is the field name (unique within a schema).
	Name string `json:"name"`
	// Type is the semantic type of the field's values.
	Type FieldType `json:"type"`
	// Nullable indicates whether nil values are allowed for this field.
	Nullable bool `json:"nullable,omitempty"`
}

// Common schema errors.
var (
	// ErrDuplicateField is returned when a schema declares the same field name twice.
	ErrDuplicateField = errors.New("duplicate field name in schema")
	// ErrUnknownFieldType is returned when a field declares an unsupported type.
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrEmptyFieldName is returned when a field has no name.
	ErrEmptyFieldName = errors.New("field name cannot be empty")
)

// Schema is an ordered set of named, typed fields.
// The zero value is an empty schema.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema creates a schema from the given fields.
// Field names must be non-empty and unique; types must be valid.
func NewSchema(fields ...Field) (Schema, error) {
	s := Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return Schema{}, ErrEmptyFieldName
		}
		if !f.Type.Valid() {
			return Schema{}, fmt.Errorf("%w: %q for field %q", ErrUnknownFieldType, f.Type, f.Name)
		}
		if _, exists := s.index[f.Name]; exists {
			return Schema{}, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Intended for statically known schemas in tests and examples.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields in the schema.
func (s Schema) Len() int { return len(s.fields) }

// Has reports whether the schema contains a field with the given name.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Field returns the field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns a copy of the schema's fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// WithField returns a new schema with the given field appended.
// The receiver is not modified.
func (s Schema) WithField(f Field) (Schema, error) {
	fields := make([]Field, 0, len(s.fields)+1)
	fields = append(fields, s.fields...)
	fields = append(fields, f)
	return NewSchema(fields...)
}

// Value is a single cell value: string, float64, time.Time, bool, or nil.
type Value = interface{}

// Record is one row of a dataset, keyed by field name.
// A missing key and an explicit nil value are both treated as null.
type Record map[string]Value

// Dataset errors.
var (
	// ErrNilSchema is returned when a dataset is constructed with an empty schema.
	ErrNilSchema = errors.New("dataset schema must have at least one field")
	// ErrValueType is returned when a record value does not match its field type.
	ErrValueType = errors.New("value does not match field type")
)

// Dataset is an immutable, ordered collection of records sharing one schema.
type Dataset struct {
	schema  Schema
	records []Record
}

// New creates a dataset from the given schema and records.
// Every non-nil record value is checked against the schema's field types;
// values for fields absent from the schema are rejected.
func New(schema Schema, records []Record) (*Dataset, error) {
	if schema.Len() == 0 {
		return nil, ErrNilSchema
	}
	for i, rec := range records {
		for name, val := range rec {
			field, ok := schema.Field(name)
			if !ok {
				return nil, fmt.Errorf("record %d: field %q not in schema", i, name)
			}
			if err := checkValueType(field, val); err != nil {
				return nil, fmt.Errorf("record %d, field %q: %w", i, name, err)
			}
		}
	}
	return &Dataset{schema: schema, records: records}, nil
}

// checkValueType verifies that val is acceptable for field.
func checkValueType(field Field, val Value) error {
	if val == nil {
		if !field.Nullable {
			return fmt.Errorf("%w: nil for non-nullable field", ErrValueType)
		}
		return nil
	}
	switch field.Type {
	case TypeString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("%w: expected string, got %T", ErrValueType, val)
		}
	case TypeNumber:
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("%w: expected float64, got %T", ErrValueType, val)
		}
	case TypeDate:
		if _, ok := val.(time.Time); !ok {
			return fmt.Errorf("%w: expected time.Time, got %T", ErrValueType, val)
		}
	case TypeBool:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("%w: expected bool, got %T", ErrValueType, val)
		}
	}
	return nil
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Schema returns the dataset's schema.
func (d *Dataset) Schema() Schema { return d.schema }

// Record returns the record at index i.
// Callers must treat the returned map as read-only.
func (d *Dataset) Record(i int) Record { return d.records[i] }

// Value returns the value of the named field at record i.
// Missing fields and explicit nils both return nil.
func (d *Dataset) Value(i int, field string) Value {
	return d.records[i][field]
}

// View returns a FilteredView covering the whole dataset.
func (d *Dataset) View() FilteredView {
	indices := make([]int, d.Len())
	for i := range indices {
		indices[i] = i
	}
	return FilteredView{source: d, indices: indices}
}
