package terrain

import (
	"fmt"

	"github.com/Faultbox/bwterrain/pkg/binio"
)

// Collision map geometry.
const (
	CollisionVersion  = 0x66
	CollisionInfoSize = 14 * 4
	BlockSize         = 16                        // samples per block side
	BlockSamples      = BlockSize * BlockSize     // 256
	BlocksPerAxis     = 48                        // blocks per field side
	FieldSize         = BlocksPerAxis * BlockSize // 768 samples per field side
	CellSpan          = 12                        // field samples per chunk cell
	TileSpan          = 3                         // field samples per tile

	// BaselineHeight fills every sample not covered by a chunk.
	BaselineHeight = 44.0
)

// CollisionMapInfo is the fixed header of the COLM payload.
type CollisionMapInfo struct {
	Version        uint32
	Unk04          uint32
	Unk08          uint32
	Unk0C          uint32
	Unk10          uint32
	Unk14          uint32
	SizeX          uint32 // blocks per row
	SizeY          uint32
	Unk20          uint32
	Unk24          uint32
	Section1Length uint32 // bytes of Indices, recomputed on encode
	Section2Length uint32 // bytes of Samples, recomputed on encode
	Unk30          uint32
	Unk34          uint32
}

// DefaultCollisionMapInfo returns the header of a freshly created terrain.
func DefaultCollisionMapInfo() CollisionMapInfo {
	return CollisionMapInfo{
		Version: CollisionVersion,
		SizeX:   BlocksPerAxis,
		SizeY:   BlocksPerAxis,
	}
}

// CollisionMap is a block-deduplicated height field. Indices maps every
// 16x16 block to a run of BlockSamples values in Samples.
type CollisionMap struct {
	Info    CollisionMapInfo
	Indices []uint16
	Samples []float64
}

// HeightField is a dense FieldSize x FieldSize grid indexed [x][y].
type HeightField struct {
	data []float64
}

// NewHeightField returns the baseline field: BaselineHeight everywhere except
// every twelfth row and column, which are 0.
func NewHeightField() *HeightField {
	f := &HeightField{data: make([]float64, FieldSize*FieldSize)}
	for x := 0; x < FieldSize; x++ {
		for y := 0; y < FieldSize; y++ {
			if x%CellSpan == 0 || y%CellSpan == 0 {
				f.data[x*FieldSize+y] = 0
			} else {
				f.data[x*FieldSize+y] = BaselineHeight
			}
		}
	}
	return f
}

// At returns the sample at (x, y).
func (f *HeightField) At(x, y int) float64 {
	return f.data[x*FieldSize+y]
}

// Set stores the sample at (x, y).
func (f *HeightField) Set(x, y int, v float64) {
	f.data[x*FieldSize+y] = v
}

// block copies the samples of block (bx, by), x outer.
func (f *HeightField) block(bx, by int) [BlockSamples]float64 {
	var out [BlockSamples]float64
	for i := 0; i < BlockSize; i++ {
		row := (bx*BlockSize+i)*FieldSize + by*BlockSize
		copy(out[i*BlockSize:(i+1)*BlockSize], f.data[row:row+BlockSize])
	}
	return out
}

// buildHeightField rasterizes the present chunks over the baseline field.
// Only samples 0..2 of each tile axis are used; the fourth duplicates the
// first sample of the neighbouring tile.
func buildHeightField(m *ChunkMap, chunks []*Chunk) (*HeightField, error) {
	f := NewHeightField()
	for cx := 0; cx < GridSize; cx++ {
		for cy := 0; cy < GridSize; cy++ {
			entry := m[cx][cy]
			if !entry.Present() {
				continue
			}
			if int(entry.Index) >= len(chunks) {
				return nil, fmt.Errorf("%w: cell (%d,%d) references chunk %d of %d", ErrInvariant, cx, cy, entry.Index, len(chunks))
			}
			chunk := chunks[entry.Index]
			if chunk == nil {
				return nil, fmt.Errorf("%w: cell (%d,%d) references nil chunk %d", ErrInvariant, cx, cy, entry.Index)
			}
			for tx := 0; tx < TilesPerAxis; tx++ {
				for ty := 0; ty < TilesPerAxis; ty++ {
					tile := chunk.Tile(tx, ty)
					for ix := 0; ix < TileSpan; ix++ {
						for iy := 0; iy < TileSpan; iy++ {
							x := cx*CellSpan + tx*TileSpan + ix
							y := cy*CellSpan + ty*TileSpan + iy
							if x >= FieldSize || y >= FieldSize {
								continue
							}
							slot := ix*TilesPerAxis + iy
							h := tile.Height(slot)
							if _, err := binio.EncodeSample(h); err != nil {
								return nil, &RangeError{CellX: cx, CellY: cy, Tile: tx*TilesPerAxis + ty, Field: "height", Slot: slot, Err: err}
							}
							f.Set(x, y, h)
						}
					}
				}
			}
		}
	}
	return f, nil
}

// compress splits the field into blocks and stores each distinct block once.
func compress(f *HeightField) (indices []uint16, samples []float64) {
	seen := make(map[[BlockSamples]float64]uint16)
	indices = make([]uint16, 0, BlocksPerAxis*BlocksPerAxis)
	for bx := 0; bx < BlocksPerAxis; bx++ {
		for by := 0; by < BlocksPerAxis; by++ {
			blk := f.block(bx, by)
			idx, ok := seen[blk]
			if !ok {
				idx = uint16(len(seen))
				seen[blk] = idx
				samples = append(samples, blk[:]...)
			}
			indices = append(indices, idx)
		}
	}
	return indices, samples
}

// Regenerate rebuilds the collision map from the tile heights of every
// present chunk. Info is kept except for the section lengths, which the
// encoder derives from the new arrays.
func (c *CollisionMap) Regenerate(m *ChunkMap, chunks []*Chunk) error {
	f, err := buildHeightField(m, chunks)
	if err != nil {
		return err
	}
	c.Indices, c.Samples = compress(f)
	c.Info.Section1Length = uint32(len(c.Indices) * 2)
	c.Info.Section2Length = uint32(len(c.Samples) * 2)
	return nil
}

// BlockCount returns the number of distinct blocks stored.
func (c *CollisionMap) BlockCount() int {
	return len(c.Samples) / BlockSamples
}

// CompressionRatio compares the dense sample count with the stored one.
func (c *CollisionMap) CompressionRatio() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	return float64(len(c.Indices)*BlockSamples) / float64(len(c.Samples))
}

// Width and Height return the renderable size in pixels.
func (c *CollisionMap) Width() int  { return int(c.Info.SizeX) * BlockSize }
func (c *CollisionMap) Height() int { return int(c.Info.SizeY) * BlockSize }

// Pixel returns the sample at pixel (px, py) using the game's addressing:
// block Indices[SizeX*(py/16) + px/16], offset (px%16) | (py%16)<<4.
func (c *CollisionMap) Pixel(px, py int) (float64, error) {
	if px < 0 || py < 0 || px >= c.Width() || py >= c.Height() {
		return 0, fmt.Errorf("pixel (%d,%d) outside %dx%d map", px, py, c.Width(), c.Height())
	}
	bi := int(c.Info.SizeX)*(py/BlockSize) + px/BlockSize
	if bi >= len(c.Indices) {
		return 0, fmt.Errorf("%w: block %d of %d", ErrInvariant, bi, len(c.Indices))
	}
	off := (px % BlockSize) | (py%BlockSize)<<4
	si := int(c.Indices[bi])*BlockSamples + off
	if si >= len(c.Samples) {
		return 0, fmt.Errorf("%w: sample %d of %d", ErrInvariant, si, len(c.Samples))
	}
	return c.Samples[si], nil
}

// HeightAt returns the sample at field position (x, y), the same axes the
// field is rasterized in. The pixel addressing runs with the axes swapped.
func (c *CollisionMap) HeightAt(x, y int) (float64, error) {
	return c.Pixel(y, x)
}

// Field expands the map back into a dense height field.
func (c *CollisionMap) Field() (*HeightField, error) {
	if c.Width() != FieldSize || c.Height() != FieldSize {
		return nil, fmt.Errorf("map is %dx%d, expected %dx%d", c.Width(), c.Height(), FieldSize, FieldSize)
	}
	f := &HeightField{data: make([]float64, FieldSize*FieldSize)}
	for x := 0; x < FieldSize; x++ {
		for y := 0; y < FieldSize; y++ {
			v, err := c.HeightAt(x, y)
			if err != nil {
				return nil, err
			}
			f.Set(x, y, v)
		}
	}
	return f, nil
}
