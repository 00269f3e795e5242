package record

import (
	"github.com/Faultbox/bwterrain/pkg/binio"
)

// Codec is a decode/encode pair for one value of type V.
// Size is the encoded width in bytes, or 0 when it varies.
type Codec[V any] struct {
	Size  int
	Read  func(r *binio.Reader) (V, error)
	Write func(w *binio.Writer, v V) error
}

// Stock codecs for the primitive types used by the terrain format.
var (
	U8 = Codec[uint8]{
		Size: 1,
		Read: func(r *binio.Reader) (uint8, error) { return r.U8() },
		Write: func(w *binio.Writer, v uint8) error {
			w.PutU8(v)
			return nil
		},
	}
	U16BE     = u16(binio.BigEndian)
	U32BE     = u32(binio.BigEndian)
	U32Native = u32(binio.Native)
	I16BE     = Codec[int16]{
		Size: 2,
		Read: func(r *binio.Reader) (int16, error) { return r.I16(binio.BigEndian) },
		Write: func(w *binio.Writer, v int16) error {
			w.PutI16(binio.BigEndian, v)
			return nil
		},
	}
	Tag = Codec[binio.Tag]{
		Size: 4,
		Read: func(r *binio.Reader) (binio.Tag, error) { return r.Tag() },
		Write: func(w *binio.Writer, v binio.Tag) error {
			w.PutTag(v)
			return nil
		},
	}
)

func u16(order binio.ByteOrder) Codec[uint16] {
	return Codec[uint16]{
		Size: 2,
		Read: func(r *binio.Reader) (uint16, error) { return r.U16(order) },
		Write: func(w *binio.Writer, v uint16) error {
			w.PutU16(order, v)
			return nil
		},
	}
}

func u32(order binio.ByteOrder) Codec[uint32] {
	return Codec[uint32]{
		Size: 4,
		Read: func(r *binio.Reader) (uint32, error) { return r.U32(order) },
		Write: func(w *binio.Writer, v uint32) error {
			w.PutU32(order, v)
			return nil
		},
	}
}

// Nested turns a record schema into a field codec, so one record can embed another.
func Nested[V any](s *Schema[V]) Codec[V] {
	return Codec[V]{
		Size: s.Size(),
		Read: func(r *binio.Reader) (V, error) {
			var v V
			err := s.DecodeInto(r, &v)
			return v, err
		},
		Write: func(w *binio.Writer, v V) error {
			return s.Encode(w, &v)
		},
	}
}
