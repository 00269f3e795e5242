package record

import (
	"fmt"
	"math"

	"github.com/Faultbox/bwterrain/pkg/binio"
)

// Check validates a freshly decoded value.
type Check[V any] func(V) error

// Expect builds a Check from a predicate; desc names the expectation in errors.
func Expect[V any](pred func(V) bool, desc string) Check[V] {
	return func(v V) error {
		if !pred(v) {
			return fmt.Errorf("%w: expected %s, got %v", ErrValidation, desc, v)
		}
		return nil
	}
}

// Equals expects the decoded value to be exactly want.
func Equals[V comparable](want V) Check[V] {
	return Expect(func(v V) bool { return v == want }, fmt.Sprintf("%v", want))
}

// OneOf expects the decoded value to be one of the allowed values.
func OneOf[V comparable](allowed ...V) Check[V] {
	return Expect(func(v V) bool {
		for _, a := range allowed {
			if v == a {
				return true
			}
		}
		return false
	}, fmt.Sprintf("one of %v", allowed))
}

// Integer is the set of types a repeat count can be stored as.
type Integer interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~int
}

// Field describes one member of a record of type T.
// Values are created with Scalar, Count, Array and Slice.
type Field[T any] interface {
	fieldName() string
	fixedSize() int // 0 when variable
	decode(r *binio.Reader, rec *T, seen map[string]any) error
	encode(w *binio.Writer, rec *T, counts map[string]int) error
}

// countRef is implemented by fields whose length comes from a sibling.
type countRef[T any] interface {
	ref() (name string, unit int)
	length(rec *T) int
}

// countSink is implemented by fields that can hold a derived count.
type countSink interface {
	isCount()
}

func runChecks[V any](v V, checks []Check[V]) error {
	for _, c := range checks {
		if err := c(v); err != nil {
			return err
		}
	}
	return nil
}

type scalarField[T, V any] struct {
	name   string
	codec  Codec[V]
	get    func(*T) *V
	checks []Check[V]
}

// Scalar declares a single value.
func Scalar[T, V any](name string, codec Codec[V], get func(*T) *V, checks ...Check[V]) Field[T] {
	return &scalarField[T, V]{name: name, codec: codec, get: get, checks: checks}
}

func (f *scalarField[T, V]) fieldName() string { return f.name }
func (f *scalarField[T, V]) fixedSize() int    { return f.codec.Size }

func (f *scalarField[T, V]) decode(r *binio.Reader, rec *T, seen map[string]any) error {
	v, err := f.codec.Read(r)
	if err != nil {
		return err
	}
	*f.get(rec) = v
	seen[f.name] = v
	return runChecks(v, f.checks)
}

func (f *scalarField[T, V]) encode(w *binio.Writer, rec *T, _ map[string]int) error {
	return f.codec.Write(w, *f.get(rec))
}

type countField[T any, V Integer] struct {
	scalarField[T, V]
}

// Count declares an integer whose value is the repeat count of a later Slice.
// On encode the value is recomputed from the live slice length and stored
// back into the record.
func Count[T any, V Integer](name string, codec Codec[V], get func(*T) *V, checks ...Check[V]) Field[T] {
	return &countField[T, V]{scalarField[T, V]{name: name, codec: codec, get: get, checks: checks}}
}

func (f *countField[T, V]) isCount() {}

func (f *countField[T, V]) decode(r *binio.Reader, rec *T, seen map[string]any) error {
	if err := f.scalarField.decode(r, rec, seen); err != nil {
		return err
	}
	seen[f.name] = int(*f.get(rec))
	return nil
}

func (f *countField[T, V]) encode(w *binio.Writer, rec *T, counts map[string]int) error {
	if n, ok := counts[f.name]; ok {
		v := V(n)
		if int(v) != n || n < 0 {
			return fmt.Errorf("count %d does not fit field %s", n, f.name)
		}
		*f.get(rec) = v
	}
	return f.codec.Write(w, *f.get(rec))
}

type arrayField[T, V any] struct {
	name   string
	codec  Codec[V]
	n      int
	get    func(*T) []V
	checks []Check[[]V]
}

// Array declares n consecutive values. get must return a view of length n
// into the record (typically rec.Field[:]).
func Array[T, V any](name string, codec Codec[V], n int, get func(*T) []V, checks ...Check[[]V]) Field[T] {
	return &arrayField[T, V]{name: name, codec: codec, n: n, get: get, checks: checks}
}

func (f *arrayField[T, V]) fieldName() string { return f.name }

func (f *arrayField[T, V]) fixedSize() int {
	if f.codec.Size == 0 {
		return 0
	}
	return f.codec.Size * f.n
}

func (f *arrayField[T, V]) decode(r *binio.Reader, rec *T, seen map[string]any) error {
	dst := f.get(rec)
	if len(dst) != f.n {
		return fmt.Errorf("%w: view has %d elements, want %d", ErrSchema, len(dst), f.n)
	}
	for i := range dst {
		v, err := f.codec.Read(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		dst[i] = v
	}
	seen[f.name] = dst
	return runChecks(dst, f.checks)
}

func (f *arrayField[T, V]) encode(w *binio.Writer, rec *T, _ map[string]int) error {
	src := f.get(rec)
	if len(src) != f.n {
		return fmt.Errorf("%w: view has %d elements, want %d", ErrSchema, len(src), f.n)
	}
	for i, v := range src {
		if err := f.codec.Write(w, v); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type sliceField[T, V any] struct {
	name   string
	codec  Codec[V]
	from   string
	unit   int
	get    func(*T) *[]V
	checks []Check[[]V]
}

// CountSpec names the sibling field holding a repeat count. The sibling's
// value divided by Unit gives the number of elements; a byte-length field
// paired with 2-byte elements uses Unit 2.
type CountSpec struct {
	Field string
	Unit  int
}

// CountFrom reads the repeat count from an earlier Count field.
func CountFrom(field string, unit int) CountSpec {
	if unit <= 0 {
		unit = 1
	}
	return CountSpec{Field: field, Unit: unit}
}

// Slice declares a variable number of values whose count comes from an earlier field.
func Slice[T, V any](name string, codec Codec[V], count CountSpec, get func(*T) *[]V, checks ...Check[[]V]) Field[T] {
	return &sliceField[T, V]{name: name, codec: codec, from: count.Field, unit: count.Unit, get: get, checks: checks}
}

func (f *sliceField[T, V]) fieldName() string  { return f.name }
func (f *sliceField[T, V]) fixedSize() int     { return 0 }
func (f *sliceField[T, V]) ref() (string, int) { return f.from, f.unit }
func (f *sliceField[T, V]) length(rec *T) int  { return len(*f.get(rec)) * f.unit }

func (f *sliceField[T, V]) decode(r *binio.Reader, rec *T, seen map[string]any) error {
	raw, ok := seen[f.from]
	if !ok {
		return fmt.Errorf("%w: count field %q not decoded", ErrSchema, f.from)
	}
	total, ok := toInt(raw)
	if !ok {
		return fmt.Errorf("%w: count field %q is %T, not an integer", ErrSchema, f.from, raw)
	}
	if total < 0 || total%f.unit != 0 {
		return fmt.Errorf("%w: %s=%d is not a multiple of %d", ErrValidation, f.from, total, f.unit)
	}
	n := total / f.unit
	if f.codec.Size > 0 && n > r.Remaining()/f.codec.Size {
		return fmt.Errorf("%w: %d elements of %d bytes at offset 0x%x, %d bytes left",
			binio.ErrShortBuffer, n, f.codec.Size, r.Pos(), r.Remaining())
	}
	out := make([]V, n)
	for i := range out {
		v, err := f.codec.Read(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	*f.get(rec) = out
	seen[f.name] = out
	return runChecks(out, f.checks)
}

func (f *sliceField[T, V]) encode(w *binio.Writer, rec *T, _ map[string]int) error {
	for i, v := range *f.get(rec) {
		if err := f.codec.Write(w, v); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
