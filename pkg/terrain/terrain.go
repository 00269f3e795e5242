package terrain

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/bwterrain/pkg/binio"
	"github.com/Faultbox/bwterrain/pkg/texname"
)

// TerrainFile is a decoded .out file.
type TerrainFile struct {
	Info      TerrainInfo
	Chunks    []*Chunk
	Transform TileTransform
	ChunkMap  *ChunkMap
	UWCT      []UWCTEntry
	Collision CollisionMap
	Materials []MapMaterial

	log *zap.Logger
}

// Stats summarizes a terrain.
type Stats struct {
	Chunks           int
	PresentCells     int
	Materials        int
	CollisionBlocks  int
	CompressionRatio float64
}

// New returns an empty terrain with the defaults the game's tools write.
func New(opts ...Option) *TerrainFile {
	o := collectOptions(opts)
	return &TerrainFile{
		Info: TerrainInfo{
			Header:   SectionHeader{Tag: TagTERR, Length: TerrainInfoLen},
			ChunksX:  GridSize,
			ChunksY:  GridSize,
			Reserved: 1,
		},
		Transform: DefaultTileTransform(),
		ChunkMap:  NewChunkMap(),
		UWCT:      DefaultUWCT(),
		Collision: CollisionMap{Info: DefaultCollisionMapInfo()},
		log:       logOrNop(o.log),
	}
}

func logOrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Decode parses a complete terrain file.
func Decode(data []byte, opts ...Option) (*TerrainFile, error) {
	o := collectOptions(opts)
	t := &TerrainFile{log: logOrNop(o.log)}
	r := binio.NewReader(data)

	if err := terrainInfoSchema.DecodeInto(r, &t.Info); err != nil {
		return nil, fmt.Errorf("reading TERR: %w", err)
	}

	payload, n, err := readSection(r, TagCHNK, ChunkSize)
	if err != nil {
		return nil, err
	}
	t.Chunks = make([]*Chunk, n)
	for i := range t.Chunks {
		c := new(Chunk)
		if err := chunkSchema.DecodeInto(payload, c); err != nil {
			return nil, fmt.Errorf("reading chunk %d: %w", i, err)
		}
		t.Chunks[i] = c
	}
	t.log.Debug("read chunks", zap.Int("count", n))

	if err := tileTransformSchema.DecodeInto(r, &t.Transform); err != nil {
		return nil, fmt.Errorf("reading GPNF: %w", err)
	}

	payload, err = readFixedSection(r, TagCMAP, ChunkMapLen)
	if err != nil {
		return nil, err
	}
	t.ChunkMap = new(ChunkMap)
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			if err := chunkMapEntrySchema.DecodeInto(payload, &t.ChunkMap[x][y]); err != nil {
				return nil, fmt.Errorf("%w: chunk map cell (%d,%d): %w", ErrInvariant, x, y, err)
			}
		}
	}

	payload, n, err = readSection(r, TagUWCT, UWCTEntrySize)
	if err != nil {
		return nil, err
	}
	t.UWCT = make([]UWCTEntry, n)
	for i := range t.UWCT {
		if err := uwctSchema.DecodeInto(payload, &t.UWCT[i]); err != nil {
			return nil, fmt.Errorf("reading UWCT entry %d: %w", i, err)
		}
	}

	payload, _, err = readSection(r, TagCOLM, 1)
	if err != nil {
		return nil, err
	}
	if err := collisionSchema.DecodeInto(payload, &t.Collision); err != nil {
		return nil, fmt.Errorf("reading COLM: %w", err)
	}
	if payload.Remaining() != 0 {
		return nil, fmt.Errorf("%w: COLM has %d bytes after its arrays", ErrMisalignedSection, payload.Remaining())
	}
	t.log.Debug("read collision map",
		zap.Int("indices", len(t.Collision.Indices)),
		zap.Int("blocks", t.Collision.BlockCount()))

	payload, n, err = readSection(r, TagMATL, MaterialSize)
	if err != nil {
		return nil, err
	}
	t.Materials = make([]MapMaterial, n)
	for i := range t.Materials {
		if err := materialSchema.DecodeInto(payload, &t.Materials[i]); err != nil {
			return nil, fmt.Errorf("reading material %d: %w", i, err)
		}
	}

	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x", ErrTrailingData, r.Remaining(), r.Pos())
	}

	if err := t.checkChunkMap(); err != nil {
		return nil, err
	}
	if err := t.checkMaterialIndices(); err != nil {
		return nil, err
	}
	if int(t.Info.MaterialCount) != len(t.Materials) {
		t.log.Warn("material count mismatch",
			zap.Uint32("declared", t.Info.MaterialCount),
			zap.Int("actual", len(t.Materials)))
	}

	if o.canonicalizeMaterials {
		if _, err := t.CanonicalizeMaterials(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Encode regenerates the collision map, canonicalizes chunk and material
// order and serializes all seven sections. Validation runs first, so a
// failed Encode leaves the terrain untouched.
func (t *TerrainFile) Encode() ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if err := t.Collision.Regenerate(t.ChunkMap, t.Chunks); err != nil {
		return nil, err
	}
	if err := t.Canonicalize(); err != nil {
		return nil, err
	}
	t.Info.Header = SectionHeader{Tag: TagTERR, Length: TerrainInfoLen}
	t.Info.MaterialCount = uint32(len(t.Materials))
	t.Transform.Header = SectionHeader{Tag: TagGPNF, Length: TransformLen}

	size := HeaderSize*7 + TerrainInfoLen + len(t.Chunks)*ChunkSize + TransformLen + ChunkMapLen +
		len(t.UWCT)*UWCTEntrySize + CollisionInfoSize + 2*len(t.Collision.Indices) + 2*len(t.Collision.Samples) +
		len(t.Materials)*MaterialSize
	w := binio.NewWriter(size)

	if err := terrainInfoSchema.Encode(w, &t.Info); err != nil {
		return nil, fmt.Errorf("writing TERR: %w", err)
	}

	body := binio.NewWriter(len(t.Chunks) * ChunkSize)
	for i, c := range t.Chunks {
		if err := chunkSchema.Encode(body, c); err != nil {
			return nil, fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}
	if err := writeSection(w, TagCHNK, body.Bytes()); err != nil {
		return nil, err
	}

	if err := tileTransformSchema.Encode(w, &t.Transform); err != nil {
		return nil, fmt.Errorf("writing GPNF: %w", err)
	}

	body = binio.NewWriter(ChunkMapLen)
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			if err := chunkMapEntrySchema.Encode(body, &t.ChunkMap[x][y]); err != nil {
				return nil, fmt.Errorf("writing chunk map: %w", err)
			}
		}
	}
	if err := writeSection(w, TagCMAP, body.Bytes()); err != nil {
		return nil, err
	}

	body = binio.NewWriter(len(t.UWCT) * UWCTEntrySize)
	for i := range t.UWCT {
		if err := uwctSchema.Encode(body, &t.UWCT[i]); err != nil {
			return nil, fmt.Errorf("writing UWCT entry %d: %w", i, err)
		}
	}
	if err := writeSection(w, TagUWCT, body.Bytes()); err != nil {
		return nil, err
	}

	body = binio.NewWriter(0)
	if err := collisionSchema.Encode(body, &t.Collision); err != nil {
		return nil, fmt.Errorf("writing COLM: %w", err)
	}
	if err := writeSection(w, TagCOLM, body.Bytes()); err != nil {
		return nil, err
	}

	body = binio.NewWriter(len(t.Materials) * MaterialSize)
	for i := range t.Materials {
		if err := materialSchema.Encode(body, &t.Materials[i]); err != nil {
			return nil, fmt.Errorf("writing material %d: %w", i, err)
		}
	}
	if err := writeSection(w, TagMATL, body.Bytes()); err != nil {
		return nil, err
	}

	t.log.Debug("encoded terrain",
		zap.Int("bytes", w.Len()),
		zap.Int("chunks", len(t.Chunks)),
		zap.Int("materials", len(t.Materials)),
		zap.Int("collisionBlocks", t.Collision.BlockCount()))
	return w.Bytes(), nil
}

// validate checks everything Encode could fail on before it mutates state.
func (t *TerrainFile) validate() error {
	for i := range t.Materials {
		m := &t.Materials[i]
		if err := texname.Check(m.TextureMain); err != nil {
			return &NameError{Material: i, Slot: "main", Name: m.MainName(), Err: fmt.Errorf("%w: %w", ErrTextureName, err)}
		}
		if err := texname.Check(m.TextureDetail); err != nil {
			return &NameError{Material: i, Slot: "detail", Name: m.DetailName(), Err: fmt.Errorf("%w: %w", ErrTextureName, err)}
		}
	}
	if err := t.checkChunkMap(); err != nil {
		return err
	}
	if err := t.checkMaterialIndices(); err != nil {
		return err
	}
	return t.checkUVs()
}

func (t *TerrainFile) checkChunkMap() error {
	if t.ChunkMap == nil {
		return fmt.Errorf("%w: no chunk map", ErrInvariant)
	}
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			e := t.ChunkMap[x][y]
			if e.A != 0 {
				return fmt.Errorf("%w: cell (%d,%d) a=%d", ErrInvariant, x, y, e.A)
			}
			if e.B != ChunkPresent && e.B != ChunkAbsent {
				return fmt.Errorf("%w: cell (%d,%d) b=%d", ErrInvariant, x, y, e.B)
			}
			if !e.Present() {
				continue
			}
			if int(e.Index) >= len(t.Chunks) {
				return fmt.Errorf("%w: cell (%d,%d) references chunk %d of %d", ErrInvariant, x, y, e.Index, len(t.Chunks))
			}
			if t.Chunks[e.Index] == nil {
				return fmt.Errorf("%w: cell (%d,%d) references nil chunk %d", ErrInvariant, x, y, e.Index)
			}
		}
	}
	return nil
}

func (t *TerrainFile) checkMaterialIndices() error {
	for c, chunk := range t.Chunks {
		if chunk == nil {
			continue
		}
		for i := range chunk.Tiles {
			idx := chunk.Tiles[i].MaterialIndex
			if int(idx) >= len(t.Materials) {
				return fmt.Errorf("%w: chunk %d tile %d uses material %d of %d", ErrInvariant, c, i, idx, len(t.Materials))
			}
		}
	}
	return nil
}

// checkUVs walks the chunks of present cells; other chunks are dropped on encode.
func (t *TerrainFile) checkUVs() error {
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			e := t.ChunkMap[x][y]
			if !e.Present() {
				continue
			}
			chunk := t.Chunks[e.Index]
			for ti := range chunk.Tiles {
				tile := &chunk.Tiles[ti]
				for s, uv := range tile.SurfaceUV {
					if err := checkUV(uv); err != nil {
						return &RangeError{CellX: x, CellY: y, Tile: ti, Field: "surfaceUV", Slot: s, Err: err}
					}
				}
				for s, uv := range tile.DetailUV {
					if err := checkUV(uv); err != nil {
						return &RangeError{CellX: x, CellY: y, Tile: ti, Field: "detailUV", Slot: s, Err: err}
					}
				}
			}
		}
	}
	return nil
}

func checkUV(p UVPoint) error {
	if _, err := binio.EncodeUV(p.X); err != nil {
		return err
	}
	_, err := binio.EncodeUV(p.Y)
	return err
}

func checkCell(x, y int) error {
	if x < 0 || y < 0 || x >= GridSize || y >= GridSize {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfGrid, x, y)
	}
	return nil
}

// Chunk returns the chunk at grid cell (x, y). An absent cell yields nil
// unless create is set, in which case a default chunk is appended and the
// cell is marked present. The pointer stays valid while other chunks are
// created; ClearChunks detaches it.
func (t *TerrainFile) Chunk(x, y int, create bool) (*Chunk, error) {
	if err := checkCell(x, y); err != nil {
		return nil, err
	}
	entry := &t.ChunkMap[x][y]
	if entry.Present() {
		if int(entry.Index) >= len(t.Chunks) {
			return nil, fmt.Errorf("%w: cell (%d,%d) references chunk %d of %d", ErrInvariant, x, y, entry.Index, len(t.Chunks))
		}
		if c := t.Chunks[entry.Index]; c != nil {
			return c, nil
		}
		return nil, fmt.Errorf("%w: cell (%d,%d) references nil chunk %d", ErrInvariant, x, y, entry.Index)
	}
	if !create {
		return nil, nil
	}
	if len(t.Chunks) >= noChunkIndex {
		return nil, fmt.Errorf("%w: chunk array full", ErrInvariant)
	}
	c := DefaultChunk()
	t.Chunks = append(t.Chunks, c)
	entry.B = ChunkPresent
	entry.Index = uint16(len(t.Chunks) - 1)
	t.log.Debug("created chunk", zap.Int("x", x), zap.Int("y", y), zap.Uint16("index", entry.Index))
	return c, nil
}

// SetChunkPresence marks a cell present or absent. The stored index is left
// as is, so marking a cell present only makes sense if it still refers to a
// valid chunk.
func (t *TerrainFile) SetChunkPresence(x, y int, exists bool) error {
	if err := checkCell(x, y); err != nil {
		return err
	}
	if exists {
		t.ChunkMap[x][y].B = ChunkPresent
	} else {
		t.ChunkMap[x][y].B = ChunkAbsent
	}
	return nil
}

// ClearChunks drops every chunk and resets the chunk map.
func (t *TerrainFile) ClearChunks() {
	t.Chunks = nil
	t.ChunkMap = NewChunkMap()
}

// AddMaterial appends a material and returns its index. Names are lowercased
// and must be ASCII of at most 16 bytes.
func (t *TerrainFile) AddMaterial(main, detail string, params [4]uint32) (int, error) {
	idx := len(t.Materials)
	m := MapMaterial{Params: params}
	var err error
	if m.TextureMain, err = texname.Normalize(main); err != nil {
		return 0, &NameError{Material: idx, Slot: "main", Name: main, Err: fmt.Errorf("%w: %w", ErrTextureName, err)}
	}
	if m.TextureDetail, err = texname.Normalize(detail); err != nil {
		return 0, &NameError{Material: idx, Slot: "detail", Name: detail, Err: fmt.Errorf("%w: %w", ErrTextureName, err)}
	}
	t.Materials = append(t.Materials, m)
	return idx, nil
}

// Stats reports counts for display.
func (t *TerrainFile) Stats() Stats {
	s := Stats{
		Chunks:           len(t.Chunks),
		Materials:        len(t.Materials),
		CollisionBlocks:  t.Collision.BlockCount(),
		CompressionRatio: t.Collision.CompressionRatio(),
	}
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			if t.ChunkMap[x][y].Present() {
				s.PresentCells++
			}
		}
	}
	return s
}
