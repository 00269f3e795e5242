package terrain

import (
	"fmt"
	"sort"
)

type placedChunk struct {
	order int
	x, y  int
	chunk *Chunk
}

// CanonicalizeChunks orders the chunk array by grid position (y + x*64) and
// rewrites every present cell's index to match. Chunks no present cell
// refers to are dropped.
func (t *TerrainFile) CanonicalizeChunks() error {
	var placed []placedChunk
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			entry := t.ChunkMap[x][y]
			if !entry.Present() {
				continue
			}
			if int(entry.Index) >= len(t.Chunks) {
				return fmt.Errorf("%w: cell (%d,%d) references chunk %d of %d", ErrInvariant, x, y, entry.Index, len(t.Chunks))
			}
			if t.Chunks[entry.Index] == nil {
				return fmt.Errorf("%w: cell (%d,%d) references nil chunk %d", ErrInvariant, x, y, entry.Index)
			}
			placed = append(placed, placedChunk{order: y + x*GridSize, x: x, y: y, chunk: t.Chunks[entry.Index]})
		}
	}

	sort.SliceStable(placed, func(i, j int) bool { return placed[i].order < placed[j].order })

	chunks := make([]*Chunk, len(placed))
	for i, p := range placed {
		chunks[i] = p.chunk
		t.ChunkMap[p.x][p.y].Index = uint16(i)
	}
	t.Chunks = chunks
	return nil
}

// CanonicalizeMaterials sorts the material table by the raw bytes of
// TextureMain followed by TextureDetail and rewrites every tile's material
// index through the resulting permutation. The returned slice maps old
// indices to new ones.
func (t *TerrainFile) CanonicalizeMaterials() ([]int, error) {
	if err := t.checkMaterialIndices(); err != nil {
		return nil, err
	}

	order := make([]int, len(t.Materials))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return t.Materials[order[i]].sortKey() < t.Materials[order[j]].sortKey()
	})

	remap := make([]int, len(order))
	sorted := make([]MapMaterial, len(order))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
		sorted[newIdx] = t.Materials[oldIdx]
	}

	for _, c := range t.Chunks {
		if c == nil {
			continue
		}
		for i := range c.Tiles {
			tile := &c.Tiles[i]
			tile.MaterialIndex = uint32(remap[tile.MaterialIndex])
		}
	}
	t.Materials = sorted
	return remap, nil
}

// Canonicalize orders chunks and then materials.
func (t *TerrainFile) Canonicalize() error {
	if err := t.CanonicalizeChunks(); err != nil {
		return err
	}
	_, err := t.CanonicalizeMaterials()
	return err
}
