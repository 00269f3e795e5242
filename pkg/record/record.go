// Package record implements a declarative codec for fixed-layout binary
// records. A record type is described once as an ordered list of field
// descriptors; Schema then decodes and encodes it without reflection.
package record

import (
	"errors"
	"fmt"

	"github.com/Faultbox/bwterrain/pkg/binio"
)

// Record codec errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrSchema     = errors.New("schema error")
)

// FieldError reports which field of which record failed.
type FieldError struct {
	Record string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Record, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Schema is the ordered field list of record type T.
type Schema[T any] struct {
	name   string
	fields []Field[T]
	refs   []countRef[T]
	size   int
}

// New builds a schema. It panics if a Slice refers to a field that is not an
// earlier Count field, or if two slices share one count; both are programming
// errors in the schema table.
func New[T any](name string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{name: name, fields: fields}

	counts := make(map[string]bool)
	used := make(map[string]bool)
	fixed := true
	for _, f := range fields {
		if ref, ok := f.(countRef[T]); ok {
			from, _ := ref.ref()
			if !counts[from] {
				panic(fmt.Sprintf("record %s: field %s counts from %q, which is not an earlier count field", name, f.fieldName(), from))
			}
			if used[from] {
				panic(fmt.Sprintf("record %s: count field %q used by more than one slice", name, from))
			}
			used[from] = true
			s.refs = append(s.refs, ref)
		}
		if _, ok := f.(countSink); ok {
			counts[f.fieldName()] = true
		}
		if n := f.fixedSize(); n > 0 && fixed {
			s.size += n
		} else {
			fixed = false
		}
	}
	if !fixed {
		s.size = 0
	}
	return s
}

// Name returns the record type name.
func (s *Schema[T]) Name() string {
	return s.name
}

// Size returns the encoded size of a record, or 0 if it varies.
func (s *Schema[T]) Size() int {
	return s.size
}

// Fields returns the field names in declaration order.
func (s *Schema[T]) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.fieldName()
	}
	return names
}

// Decode reads a new record.
func (s *Schema[T]) Decode(r *binio.Reader) (*T, error) {
	rec := new(T)
	if err := s.DecodeInto(r, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DecodeInto reads fields in declaration order into rec.
func (s *Schema[T]) DecodeInto(r *binio.Reader, rec *T) error {
	seen := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if err := f.decode(r, rec, seen); err != nil {
			return &FieldError{Record: s.name, Field: f.fieldName(), Err: err}
		}
	}
	return nil
}

// Encode writes rec in declaration order. Count fields are refreshed from the
// live length of the slices that reference them before anything is written.
func (s *Schema[T]) Encode(w *binio.Writer, rec *T) error {
	var counts map[string]int
	if len(s.refs) > 0 {
		counts = make(map[string]int, len(s.refs))
		for _, ref := range s.refs {
			from, _ := ref.ref()
			counts[from] = ref.length(rec)
		}
	}
	for _, f := range s.fields {
		if err := f.encode(w, rec, counts); err != nil {
			return &FieldError{Record: s.name, Field: f.fieldName(), Err: err}
		}
	}
	return nil
}

// Marshal encodes rec into a new byte slice.
func (s *Schema[T]) Marshal(rec *T) ([]byte, error) {
	w := binio.NewWriter(s.size)
	if err := s.Encode(w, rec); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
