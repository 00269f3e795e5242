// Package terrain reads and writes Battalion Wars terrain (.out) files.
package terrain

import (
	"github.com/Faultbox/bwterrain/pkg/binio"
	"github.com/Faultbox/bwterrain/pkg/texname"
)

// Section tags in file order.
var (
	TagTERR = binio.MakeTag("TERR")
	TagCHNK = binio.MakeTag("CHNK")
	TagGPNF = binio.MakeTag("GPNF")
	TagCMAP = binio.MakeTag("CMAP")
	TagUWCT = binio.MakeTag("UWCT")
	TagCOLM = binio.MakeTag("COLM")
	TagMATL = binio.MakeTag("MATL")
)

// Layout constants.
const (
	GridSize       = 64 // chunk cells per axis
	TilesPerChunk  = 16
	TilesPerAxis   = 4
	VertsPerTile   = 16
	HeaderSize     = 8
	TerrainInfoLen = 0x10
	TileSize       = 180
	ChunkSize      = TileSize * TilesPerChunk
	TransformLen   = 0x4C
	ChunkMapLen    = GridSize * GridSize * 4
	UWCTEntrySize  = 0xB4
	MaterialSize   = 48

	// ChunkMap entry states.
	ChunkPresent = 1
	ChunkAbsent  = 2
	noChunkIndex = 0xFFFF
)

// SectionHeader precedes every section payload.
type SectionHeader struct {
	Tag    binio.Tag
	Length uint32 // payload bytes, native byte order
}

// TerrainInfo is the TERR section.
type TerrainInfo struct {
	Header        SectionHeader
	ChunksX       uint32
	ChunksY       uint32
	Reserved      uint32
	MaterialCount uint32 // derived from the material table on encode
}

// Color is an RGBA vertex color.
type Color struct {
	R, G, B, A uint8
}

// UVPoint is a texture coordinate pair stored as 4096ths.
type UVPoint struct {
	X, Y float64
}

// Tile is a 4x4 patch of height samples with colors, UVs and one material.
type Tile struct {
	Heights       [VertsPerTile]uint16 // fixed point, 1/16 units
	Colors        [VertsPerTile]Color
	SurfaceUV     [4]UVPoint
	DetailUV      [VertsPerTile]UVPoint
	MaterialIndex uint32
}

// Height returns sample i in world units.
func (t *Tile) Height(i int) float64 {
	return binio.DecodeHeight(t.Heights[i])
}

// SetHeight stores sample i from world units.
func (t *Tile) SetHeight(i int, v float64) error {
	raw, err := binio.EncodeHeight(v)
	if err != nil {
		return err
	}
	t.Heights[i] = raw
	return nil
}

// DefaultTile returns a flat white tile using material 0.
func DefaultTile() Tile {
	var t Tile
	for i := range t.Colors {
		t.Colors[i] = Color{255, 255, 255, 255}
	}
	return t
}

// Chunk is a 4x4 arrangement of tiles, indexed tileX*4 + tileY.
type Chunk struct {
	Tiles [TilesPerChunk]Tile
}

// Tile returns the tile at tile column tx and row ty.
func (c *Chunk) Tile(tx, ty int) *Tile {
	return &c.Tiles[tx*TilesPerAxis+ty]
}

// DefaultChunk returns a new chunk of default tiles.
func DefaultChunk() *Chunk {
	c := new(Chunk)
	for i := range c.Tiles {
		c.Tiles[i] = DefaultTile()
	}
	return c
}

// VertexOffset is one corner offset of the tile transform table.
type VertexOffset struct {
	X, Y uint16
}

// TileTransform is the GPNF section. It is constant in every known file.
type TileTransform struct {
	Header        SectionHeader
	VertexOffsets [VertsPerTile]VertexOffset
	Extra1        VertexOffset
	Extra2        VertexOffset
	TileOffset    VertexOffset
}

// DefaultTileTransform returns the table written by the game's own tools.
func DefaultTileTransform() TileTransform {
	steps := [4]uint16{0, 0x55, 0xAA, 0x100}
	t := TileTransform{
		Header:     SectionHeader{Tag: TagGPNF, Length: TransformLen},
		Extra1:     VertexOffset{0, 0},
		Extra2:     VertexOffset{0x100, 0x100},
		TileOffset: VertexOffset{0x100, 0x100},
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			t.VertexOffsets[y*4+x] = VertexOffset{steps[x], steps[y]}
		}
	}
	return t
}

// ChunkMapEntry marks whether a grid cell holds a chunk.
type ChunkMapEntry struct {
	A     uint8 // always 0
	B     uint8 // ChunkPresent or ChunkAbsent
	Index uint16
}

// Present reports whether the cell holds a chunk.
func (e ChunkMapEntry) Present() bool {
	return e.B == ChunkPresent
}

// ChunkMap is the 64x64 presence grid, indexed [x][y].
type ChunkMap [GridSize][GridSize]ChunkMapEntry

// NewChunkMap returns a grid with every cell absent.
func NewChunkMap() *ChunkMap {
	var m ChunkMap
	for x := range m {
		for y := range m[x] {
			m[x][y] = ChunkMapEntry{A: 0, B: ChunkAbsent, Index: noChunkIndex}
		}
	}
	return &m
}

// UWCTEntry is an opaque 45-word record preserved byte for byte.
type UWCTEntry struct {
	Data [UWCTEntrySize / 4]uint32
}

var defaultUWCT = UWCTEntry{Data: [45]uint32{
	537010178, 537010178, 537010178, 537010178,
	537010178, 537010178, 537010178, 537010178,
	16777215, 4281808695, 4281808695, 4281808695,
	16777215, 4281808695, 4281808695, 4281808695,
	16777215, 4281808695, 4281808695, 4281808695,
	16777215, 4281808695, 4281808695, 4281808695,
	1048576, 1048592, 0, 16, 0, 21765, 43530, 16,
	1426391040, 1426412805, 1426434570, 1426391056,
	2852782080, 2852803845, 2852825610, 2852782096,
	1048576, 1070341, 1092106, 1048592, 0,
}}

// DefaultUWCT returns the 16 entries a fresh terrain carries.
func DefaultUWCT() []UWCTEntry {
	entries := make([]UWCTEntry, 16)
	for i := range entries {
		entries[i] = defaultUWCT
	}
	return entries
}

// MapMaterial pairs a main and a detail texture with four opaque parameters.
type MapMaterial struct {
	TextureMain   [texname.Size]byte
	TextureDetail [texname.Size]byte
	Params        [4]uint32 // native byte order
}

// MainName returns the main texture name without padding.
func (m *MapMaterial) MainName() string {
	return texname.String(m.TextureMain)
}

// DetailName returns the detail texture name without padding.
func (m *MapMaterial) DetailName() string {
	return texname.String(m.TextureDetail)
}

// sortKey is the byte concatenation used to order materials.
func (m *MapMaterial) sortKey() string {
	return string(m.TextureMain[:]) + string(m.TextureDetail[:])
}
