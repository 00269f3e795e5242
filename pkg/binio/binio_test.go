package binio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestReader_Values(t *testing.T) {
	data := []byte{
		0x7F,
		0x12, 0x34,
		0x34, 0x12,
		0xFF, 0xFE,
		0x00, 0x00, 0x00, 0x40,
		0x40, 0x00, 0x00, 0x00,
		0x3F, 0x80, 0x00, 0x00,
	}
	r := NewReader(data)

	if v, err := r.U8(); err != nil || v != 0x7F {
		t.Fatalf("U8 = %x, %v", v, err)
	}
	if v, err := r.U16(BigEndian); err != nil || v != 0x1234 {
		t.Fatalf("U16 BE = %x, %v", v, err)
	}
	if v, err := r.U16(Native); err != nil || v != 0x1234 {
		t.Fatalf("U16 native = %x, %v", v, err)
	}
	if v, err := r.I16(BigEndian); err != nil || v != -2 {
		t.Fatalf("I16 = %d, %v", v, err)
	}
	if v, err := r.U32(BigEndian); err != nil || v != 64 {
		t.Fatalf("U32 BE = %d, %v", v, err)
	}
	if v, err := r.U32(Native); err != nil || v != 64 {
		t.Fatalf("U32 native = %d, %v", v, err)
	}
	if v, err := r.F32(BigEndian); err != nil || v != 1.0 {
		t.Fatalf("F32 = %f, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected reader to be drained, %d bytes left", r.Remaining())
	}
}

func TestReader_ShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.U32(BigEndian); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
	// A failed read must not move the cursor.
	if r.Pos() != 0 {
		t.Errorf("cursor moved to %d after failed read", r.Pos())
	}
}

func TestReader_SubKeepsAbsoluteOffsets(t *testing.T) {
	r := NewReader(make([]byte, 16))
	if err := r.Skip(4); err != nil {
		t.Fatal(err)
	}
	sub, err := r.Sub(8)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Pos() != 4 || sub.Len() != 8 {
		t.Errorf("sub reader pos=%d len=%d, want 4 and 8", sub.Pos(), sub.Len())
	}
	if r.Pos() != 12 {
		t.Errorf("parent pos=%d, want 12", r.Pos())
	}
}

func TestTag_Reversed(t *testing.T) {
	w := NewWriter(4)
	w.PutTag(MakeTag("TERR"))
	if !bytes.Equal(w.Bytes(), []byte("RRET")) {
		t.Fatalf("on-disk tag = %q, want %q", w.Bytes(), "RRET")
	}

	tag, err := NewReader(w.Bytes()).Tag()
	if err != nil {
		t.Fatal(err)
	}
	if tag.String() != "TERR" {
		t.Errorf("tag = %s, want TERR", tag)
	}
}

func TestWriter_Values(t *testing.T) {
	w := NewWriter(0)
	w.PutU8(1)
	w.PutU16(BigEndian, 0x0203)
	w.PutU16(Native, 0x0504)
	w.PutI16(BigEndian, -1)
	w.PutU32(Native, 0x09080706)
	w.PutF32(BigEndian, 1.0)
	w.PutBytes([]byte{0xAA})

	want := []byte{1, 2, 3, 4, 5, 0xFF, 0xFF, 6, 7, 8, 9, 0x3F, 0x80, 0, 0, 0xAA}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x\nwant % x", w.Bytes(), want)
	}
}

func TestMakeTag_PanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for 3-byte tag")
		}
	}()
	MakeTag("ABC")
}

func TestUV_RoundTrip(t *testing.T) {
	for i := 0; i < 4096*4; i++ {
		x := float64(i) / (4096 * 4)
		raw, err := EncodeUV(x)
		if err != nil {
			t.Fatalf("EncodeUV(%f): %v", x, err)
		}
		if got := DecodeUV(raw); math.Abs(got-x) > 1.0/4096 {
			t.Fatalf("DecodeUV(EncodeUV(%f)) = %f", x, got)
		}
	}
}

func TestUV_Boundary(t *testing.T) {
	tests := []struct {
		x       float64
		wantErr bool
	}{
		{0, false},
		{65535.0 / 4096, false},
		{65536.0 / 4096, true},
		{20, true},
		{-1.0 / 4096, true},
		{math.NaN(), true},
	}
	for _, tc := range tests {
		_, err := EncodeUV(tc.x)
		if (err != nil) != tc.wantErr {
			t.Errorf("EncodeUV(%g) err=%v, wantErr=%v", tc.x, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, ErrFixedPointRange) {
			t.Errorf("EncodeUV(%g) error %v is not ErrFixedPointRange", tc.x, err)
		}
	}
}

func TestHeight_RoundTrip(t *testing.T) {
	for raw := 0; raw <= math.MaxUint16; raw += 7 {
		v := DecodeHeight(uint16(raw))
		back, err := EncodeHeight(v)
		if err != nil {
			t.Fatalf("EncodeHeight(%f): %v", v, err)
		}
		if back != uint16(raw) {
			t.Fatalf("height %d round-tripped to %d", raw, back)
		}
	}
	if _, err := EncodeHeight(4096); !errors.Is(err, ErrFixedPointRange) {
		t.Errorf("expected range error for 4096, got %v", err)
	}
}

func TestSample_RoundTrip(t *testing.T) {
	for raw := math.MinInt16; raw <= math.MaxInt16; raw += 5 {
		v := DecodeSample(int16(raw))
		back, err := EncodeSample(v)
		if err != nil {
			t.Fatalf("EncodeSample(%f): %v", v, err)
		}
		if back != int16(raw) {
			t.Fatalf("sample %d round-tripped to %d", raw, back)
		}
	}
	if _, err := EncodeSample(2048); !errors.Is(err, ErrFixedPointRange) {
		t.Errorf("expected range error for 2048, got %v", err)
	}
	if _, err := EncodeSample(-2048); err != nil {
		t.Errorf("EncodeSample(-2048): %v", err)
	}
}
