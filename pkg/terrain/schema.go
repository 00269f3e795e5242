package terrain

import (
	"fmt"

	"github.com/Faultbox/bwterrain/pkg/binio"
	"github.com/Faultbox/bwterrain/pkg/record"
)

var headerSchema = record.New("SectionHeader",
	record.Scalar("tag", record.Tag, func(h *SectionHeader) *binio.Tag { return &h.Tag }),
	record.Scalar("length", record.U32Native, func(h *SectionHeader) *uint32 { return &h.Length }),
)

// expectHeader validates an embedded section header against a tag and exact length.
func expectHeader(tag binio.Tag, length uint32) record.Check[SectionHeader] {
	return func(h SectionHeader) error {
		if h.Tag != tag {
			return fmt.Errorf("%w: expected %s, got %q", ErrMalformedTag, tag, h.Tag.String())
		}
		if h.Length != length {
			return fmt.Errorf("%w: %s length 0x%x, expected 0x%x", ErrMisalignedSection, tag, h.Length, length)
		}
		return nil
	}
}

var terrainInfoSchema = record.New("TerrainInfo",
	record.Scalar("header", record.Nested(headerSchema), func(t *TerrainInfo) *SectionHeader { return &t.Header },
		expectHeader(TagTERR, TerrainInfoLen)),
	record.Scalar("chunksX", record.U32Native, func(t *TerrainInfo) *uint32 { return &t.ChunksX }),
	record.Scalar("chunksY", record.U32Native, func(t *TerrainInfo) *uint32 { return &t.ChunksY }),
	record.Scalar("reserved", record.U32Native, func(t *TerrainInfo) *uint32 { return &t.Reserved }),
	record.Scalar("materialCount", record.U32Native, func(t *TerrainInfo) *uint32 { return &t.MaterialCount }),
)

var colorSchema = record.New("Color",
	record.Scalar("r", record.U8, func(c *Color) *uint8 { return &c.R }),
	record.Scalar("g", record.U8, func(c *Color) *uint8 { return &c.G }),
	record.Scalar("b", record.U8, func(c *Color) *uint8 { return &c.B }),
	record.Scalar("a", record.U8, func(c *Color) *uint8 { return &c.A }),
)

// uvCodec stores both coordinates as big-endian 4096ths.
var uvCodec = record.Codec[UVPoint]{
	Size: 4,
	Read: func(r *binio.Reader) (UVPoint, error) {
		x, err := r.U16(binio.BigEndian)
		if err != nil {
			return UVPoint{}, err
		}
		y, err := r.U16(binio.BigEndian)
		if err != nil {
			return UVPoint{}, err
		}
		return UVPoint{X: binio.DecodeUV(x), Y: binio.DecodeUV(y)}, nil
	},
	Write: func(w *binio.Writer, p UVPoint) error {
		x, err := binio.EncodeUV(p.X)
		if err != nil {
			return fmt.Errorf("u: %w", err)
		}
		y, err := binio.EncodeUV(p.Y)
		if err != nil {
			return fmt.Errorf("v: %w", err)
		}
		w.PutU16(binio.BigEndian, x)
		w.PutU16(binio.BigEndian, y)
		return nil
	},
}

var tileSchema = record.New("Tile",
	record.Array("heights", record.U16BE, VertsPerTile, func(t *Tile) []uint16 { return t.Heights[:] }),
	record.Array("colors", record.Nested(colorSchema), VertsPerTile, func(t *Tile) []Color { return t.Colors[:] }),
	record.Array("surfaceUV", uvCodec, 4, func(t *Tile) []UVPoint { return t.SurfaceUV[:] }),
	record.Array("detailUV", uvCodec, VertsPerTile, func(t *Tile) []UVPoint { return t.DetailUV[:] }),
	record.Scalar("materialIndex", record.U32BE, func(t *Tile) *uint32 { return &t.MaterialIndex }),
)

var chunkSchema = record.New("Chunk",
	record.Array("tiles", record.Nested(tileSchema), TilesPerChunk, func(c *Chunk) []Tile { return c.Tiles[:] }),
)

var vertexOffsetSchema = record.New("VertexOffset",
	record.Scalar("x", record.U16BE, func(v *VertexOffset) *uint16 { return &v.X }),
	record.Scalar("y", record.U16BE, func(v *VertexOffset) *uint16 { return &v.Y }),
)

var tileTransformSchema = record.New("TileTransform",
	record.Scalar("header", record.Nested(headerSchema), func(t *TileTransform) *SectionHeader { return &t.Header },
		expectHeader(TagGPNF, TransformLen)),
	record.Array("vertexOffsets", record.Nested(vertexOffsetSchema), VertsPerTile,
		func(t *TileTransform) []VertexOffset { return t.VertexOffsets[:] }),
	record.Scalar("extra1", record.Nested(vertexOffsetSchema), func(t *TileTransform) *VertexOffset { return &t.Extra1 }),
	record.Scalar("extra2", record.Nested(vertexOffsetSchema), func(t *TileTransform) *VertexOffset { return &t.Extra2 }),
	record.Scalar("tileOffset", record.Nested(vertexOffsetSchema), func(t *TileTransform) *VertexOffset { return &t.TileOffset }),
)

var chunkMapEntrySchema = record.New("ChunkMapEntry",
	record.Scalar("a", record.U8, func(e *ChunkMapEntry) *uint8 { return &e.A }, record.Equals[uint8](0)),
	record.Scalar("b", record.U8, func(e *ChunkMapEntry) *uint8 { return &e.B },
		record.OneOf[uint8](ChunkPresent, ChunkAbsent)),
	record.Scalar("index", record.U16BE, func(e *ChunkMapEntry) *uint16 { return &e.Index }),
)

var uwctSchema = record.New("UWCTEntry",
	record.Array("data", record.U32BE, UWCTEntrySize/4, func(e *UWCTEntry) []uint32 { return e.Data[:] }),
)

var materialSchema = record.New("MapMaterial",
	record.Array("textureMain", record.U8, 16, func(m *MapMaterial) []uint8 { return m.TextureMain[:] }),
	record.Array("textureDetail", record.U8, 16, func(m *MapMaterial) []uint8 { return m.TextureDetail[:] }),
	record.Array("params", record.U32Native, 4, func(m *MapMaterial) []uint32 { return m.Params[:] }),
)

// sampleCodec stores collision heights as signed 16ths.
var sampleCodec = record.Codec[float64]{
	Size: 2,
	Read: func(r *binio.Reader) (float64, error) {
		v, err := r.I16(binio.BigEndian)
		return binio.DecodeSample(v), err
	},
	Write: func(w *binio.Writer, v float64) error {
		raw, err := binio.EncodeSample(v)
		if err != nil {
			return err
		}
		w.PutI16(binio.BigEndian, raw)
		return nil
	},
}

func infoField(name string, get func(i *CollisionMapInfo) *uint32) record.Field[CollisionMap] {
	return record.Scalar(name, record.U32BE, func(c *CollisionMap) *uint32 { return get(&c.Info) })
}

// collisionSchema covers the whole COLM payload: the 14-word info block
// followed by the index and sample arrays whose byte lengths it declares.
var collisionSchema = record.New("CollisionMap",
	record.Scalar("version", record.U32BE, func(c *CollisionMap) *uint32 { return &c.Info.Version },
		record.Equals[uint32](CollisionVersion)),
	infoField("unk04", func(i *CollisionMapInfo) *uint32 { return &i.Unk04 }),
	infoField("unk08", func(i *CollisionMapInfo) *uint32 { return &i.Unk08 }),
	infoField("unk0C", func(i *CollisionMapInfo) *uint32 { return &i.Unk0C }),
	infoField("unk10", func(i *CollisionMapInfo) *uint32 { return &i.Unk10 }),
	infoField("unk14", func(i *CollisionMapInfo) *uint32 { return &i.Unk14 }),
	infoField("sizeX", func(i *CollisionMapInfo) *uint32 { return &i.SizeX }),
	infoField("sizeY", func(i *CollisionMapInfo) *uint32 { return &i.SizeY }),
	infoField("unk20", func(i *CollisionMapInfo) *uint32 { return &i.Unk20 }),
	infoField("unk24", func(i *CollisionMapInfo) *uint32 { return &i.Unk24 }),
	record.Count("section1Length", record.U32BE, func(c *CollisionMap) *uint32 { return &c.Info.Section1Length }),
	record.Count("section2Length", record.U32BE, func(c *CollisionMap) *uint32 { return &c.Info.Section2Length }),
	infoField("unk30", func(i *CollisionMapInfo) *uint32 { return &i.Unk30 }),
	infoField("unk34", func(i *CollisionMapInfo) *uint32 { return &i.Unk34 }),
	record.Slice("indices", record.U16BE, record.CountFrom("section1Length", 2),
		func(c *CollisionMap) *[]uint16 { return &c.Indices }),
	record.Slice("samples", sampleCodec, record.CountFrom("section2Length", 2),
		func(c *CollisionMap) *[]float64 { return &c.Samples }),
)
