package terrain

import (
	"errors"
	"fmt"
)

// Terrain format errors.
var (
	ErrMalformedTag      = errors.New("malformed section tag")
	ErrMisalignedSection = errors.New("misaligned section length")
	ErrInvariant         = errors.New("terrain invariant violated")
	ErrTrailingData      = errors.New("trailing data after last section")
	ErrOutOfGrid         = errors.New("chunk cell outside the 64x64 grid")
	ErrTextureName       = errors.New("invalid texture name")
)

// RangeError reports a fixed-point value that cannot be stored.
type RangeError struct {
	CellX, CellY int    // chunk grid cell
	Tile         int    // tile index within the chunk
	Field        string // "surfaceUV", "detailUV" or "height"
	Slot         int    // vertex index within the field
	Err          error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("chunk (%d,%d) tile %d: %s[%d] out of range: %v",
		e.CellX, e.CellY, e.Tile, e.Field, e.Slot, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// NameError reports a texture name that cannot be encoded.
type NameError struct {
	Material int
	Slot     string // "main" or "detail"
	Name     string
	Err      error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("material %d %s texture %q: %v", e.Material, e.Slot, e.Name, e.Err)
}

func (e *NameError) Unwrap() error {
	return e.Err
}
