package record

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/bwterrain/pkg/binio"
)

type point struct {
	X, Y uint16
}

var pointSchema = New("point",
	Scalar("x", U16BE, func(p *point) *uint16 { return &p.X }),
	Scalar("y", U16BE, func(p *point) *uint16 { return &p.Y }),
)

type blob struct {
	Magic    binio.Tag
	Kind     uint8
	Origin   point
	Corners  [2]point
	ByteLen  uint32
	Values   []int16
	Trailing uint8
}

var blobSchema = New("blob",
	Scalar("magic", Tag, func(b *blob) *binio.Tag { return &b.Magic }, Equals(binio.MakeTag("BLOB"))),
	Scalar("kind", U8, func(b *blob) *uint8 { return &b.Kind }, OneOf[uint8](1, 2)),
	Scalar("origin", Nested(pointSchema), func(b *blob) *point { return &b.Origin }),
	Array("corners", Nested(pointSchema), 2, func(b *blob) []point { return b.Corners[:] }),
	Count("byteLen", U32BE, func(b *blob) *uint32 { return &b.ByteLen }),
	Slice("values", I16BE, CountFrom("byteLen", 2), func(b *blob) *[]int16 { return &b.Values }),
	Scalar("trailing", U8, func(b *blob) *uint8 { return &b.Trailing }),
)

func blobBytes(kind uint8, byteLen uint32, values ...int16) []byte {
	w := binio.NewWriter(0)
	w.PutTag(binio.MakeTag("BLOB"))
	w.PutU8(kind)
	for i := 0; i < 3; i++ {
		w.PutU16(binio.BigEndian, uint16(i+1))
		w.PutU16(binio.BigEndian, uint16(10*(i+1)))
	}
	w.PutU32(binio.BigEndian, byteLen)
	for _, v := range values {
		w.PutI16(binio.BigEndian, v)
	}
	w.PutU8(0xEE)
	return w.Bytes()
}

func TestSchema_Decode(t *testing.T) {
	data := blobBytes(2, 6, -1, 0, 300)

	b, err := blobSchema.Decode(binio.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b.Magic.String() != "BLOB" || b.Kind != 2 {
		t.Errorf("header = %s/%d", b.Magic, b.Kind)
	}
	if b.Origin != (point{1, 10}) {
		t.Errorf("origin = %+v", b.Origin)
	}
	if b.Corners[1] != (point{3, 30}) {
		t.Errorf("corners = %+v", b.Corners)
	}
	if len(b.Values) != 3 || b.Values[0] != -1 || b.Values[2] != 300 {
		t.Errorf("values = %v", b.Values)
	}
	if b.Trailing != 0xEE {
		t.Errorf("trailing = %x", b.Trailing)
	}
}

func TestSchema_EncodeRoundTrip(t *testing.T) {
	data := blobBytes(1, 4, 7, 8)
	b, err := blobSchema.Decode(binio.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	out, err := blobSchema.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip mismatch:\n got % x\nwant % x", out, data)
	}
}

func TestSchema_EncodeRecomputesCount(t *testing.T) {
	b := &blob{
		Magic:   binio.MakeTag("BLOB"),
		Kind:    1,
		ByteLen: 999, // stale
		Values:  []int16{1, 2, 3, 4},
	}
	out, err := blobSchema.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if b.ByteLen != 8 {
		t.Errorf("ByteLen = %d after encode, want 8", b.ByteLen)
	}

	back, err := blobSchema.Decode(binio.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Values) != 4 {
		t.Errorf("decoded %d values, want 4", len(back.Values))
	}
}

func TestSchema_ValidationError(t *testing.T) {
	data := blobBytes(3, 0)

	_, err := blobSchema.Decode(binio.NewReader(data))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fe.Record != "blob" || fe.Field != "kind" {
		t.Errorf("error names %s.%s, want blob.kind", fe.Record, fe.Field)
	}
}

func TestSchema_MisalignedCount(t *testing.T) {
	data := blobBytes(1, 3, 1, 2)
	if _, err := blobSchema.Decode(binio.NewReader(data)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for odd byte length, got %v", err)
	}
}

func TestSchema_TruncatedSlice(t *testing.T) {
	data := blobBytes(1, 2000, 1)
	_, err := blobSchema.Decode(binio.NewReader(data))
	if !errors.Is(err, binio.ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestSchema_Size(t *testing.T) {
	if got := pointSchema.Size(); got != 4 {
		t.Errorf("point size = %d, want 4", got)
	}
	if got := blobSchema.Size(); got != 0 {
		t.Errorf("blob size = %d, want 0 (variable)", got)
	}
	want := []string{"magic", "kind", "origin", "corners", "byteLen", "values", "trailing"}
	got := blobSchema.Fields()
	if len(got) != len(want) {
		t.Fatalf("fields = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNew_PanicsOnForwardCount(t *testing.T) {
	type bad struct {
		N    uint32
		Vals []uint8
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for slice counting from a later field")
		}
	}()
	New("bad",
		Slice("vals", U8, CountFrom("n", 1), func(b *bad) *[]uint8 { return &b.Vals }),
		Count("n", U32BE, func(b *bad) *uint32 { return &b.N }),
	)
}

func TestNew_PanicsOnNonCountReference(t *testing.T) {
	type bad struct {
		N    uint32
		Vals []uint8
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for slice counting from a plain scalar")
		}
	}()
	New("bad",
		Scalar("n", U32BE, func(b *bad) *uint32 { return &b.N }),
		Slice("vals", U8, CountFrom("n", 1), func(b *bad) *[]uint8 { return &b.Vals }),
	)
}
