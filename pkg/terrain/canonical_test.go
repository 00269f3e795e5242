package terrain

import (
	"math/rand"
	"testing"
)

func TestCanonicalizeChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tf := New()

	// Create 40 chunks at random cells in random order, tagging each chunk
	// with its cell so the mapping can be checked after sorting.
	perm := rng.Perm(GridSize * GridSize)[:40]
	for _, cell := range perm {
		x, y := cell/GridSize, cell%GridSize
		c, err := tf.Chunk(x, y, true)
		if err != nil {
			t.Fatal(err)
		}
		c.Tiles[0].Heights[0] = uint16(x)
		c.Tiles[0].Heights[1] = uint16(y)
	}

	if err := tf.CanonicalizeChunks(); err != nil {
		t.Fatal(err)
	}
	if len(tf.Chunks) != 40 {
		t.Fatalf("chunks = %d, want 40", len(tf.Chunks))
	}

	prev := -1
	for i, c := range tf.Chunks {
		x, y := int(c.Tiles[0].Heights[0]), int(c.Tiles[0].Heights[1])
		order := y + x*GridSize
		if order <= prev {
			t.Fatalf("chunk %d at (%d,%d) out of order", i, x, y)
		}
		prev = order
		if e := tf.ChunkMap[x][y]; !e.Present() || int(e.Index) != i {
			t.Errorf("cell (%d,%d) entry = %+v, want index %d", x, y, e, i)
		}
	}
}

func TestCanonicalizeChunks_DropsUnreferenced(t *testing.T) {
	tf := New()
	tf.Chunk(5, 5, true)
	tf.Chunk(1, 1, true)
	tf.SetChunkPresence(5, 5, false)

	if err := tf.CanonicalizeChunks(); err != nil {
		t.Fatal(err)
	}
	if len(tf.Chunks) != 1 || tf.ChunkMap[1][1].Index != 0 {
		t.Errorf("chunks = %d, (1,1) index = %d", len(tf.Chunks), tf.ChunkMap[1][1].Index)
	}
}

func TestCanonicalizeChunks_Idempotent(t *testing.T) {
	tf := sampleTerrain(t)
	if err := tf.CanonicalizeChunks(); err != nil {
		t.Fatal(err)
	}
	before := append([]*Chunk(nil), tf.Chunks...)
	beforeMap := *tf.ChunkMap

	if err := tf.CanonicalizeChunks(); err != nil {
		t.Fatal(err)
	}
	for i := range before {
		if before[i] != tf.Chunks[i] {
			t.Fatalf("chunk %d moved on second pass", i)
		}
	}
	if beforeMap != *tf.ChunkMap {
		t.Error("chunk map changed on second pass")
	}
}

func TestCanonicalizeMaterials(t *testing.T) {
	tf := New()
	names := [][2]string{
		{"zeta", "b"},
		{"alpha", "z"},
		{"alpha", "a"},
		{"mid", ""},
		{"alpha", "z"},
	}
	for _, n := range names {
		if _, err := tf.AddMaterial(n[0], n[1], [4]uint32{}); err != nil {
			t.Fatal(err)
		}
	}
	chunk, _ := tf.Chunk(0, 0, true)
	for i := range chunk.Tiles {
		chunk.Tiles[i].MaterialIndex = uint32(i % len(names))
	}
	var wantNames [TilesPerChunk][2]string
	for i, tile := range chunk.Tiles {
		m := tf.Materials[tile.MaterialIndex]
		wantNames[i] = [2]string{m.MainName(), m.DetailName()}
	}

	remap, err := tf.CanonicalizeMaterials()
	if err != nil {
		t.Fatal(err)
	}

	// bijection on [0, n)
	seen := make(map[int]bool)
	for _, v := range remap {
		if v < 0 || v >= len(names) || seen[v] {
			t.Fatalf("remap %v is not a permutation", remap)
		}
		seen[v] = true
	}
	// stable: the two identical alpha/z materials keep their relative order
	if remap[1] >= remap[4] {
		t.Errorf("equal materials reordered: remap = %v", remap)
	}

	for i := 1; i < len(tf.Materials); i++ {
		if tf.Materials[i-1].sortKey() > tf.Materials[i].sortKey() {
			t.Errorf("materials %d and %d out of order", i-1, i)
		}
	}
	if tf.Materials[0].MainName() != "alpha" || tf.Materials[0].DetailName() != "a" {
		t.Errorf("first material = %s/%s", tf.Materials[0].MainName(), tf.Materials[0].DetailName())
	}

	chunk, _ = tf.Chunk(0, 0, false)
	for i, tile := range chunk.Tiles {
		m := tf.Materials[tile.MaterialIndex]
		if got := [2]string{m.MainName(), m.DetailName()}; got != wantNames[i] {
			t.Errorf("tile %d material = %v, want %v", i, got, wantNames[i])
		}
	}

	// second pass is the identity
	remap, err = tf.CanonicalizeMaterials()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range remap {
		if v != i {
			t.Fatalf("second pass remap = %v, want identity", remap)
		}
	}
}

func TestCanonicalizeMaterials_PaddingOrdersShorterFirst(t *testing.T) {
	tf := New()
	tf.AddMaterial("ab", "x", [4]uint32{})
	tf.AddMaterial("a", "z", [4]uint32{})

	if _, err := tf.CanonicalizeMaterials(); err != nil {
		t.Fatal(err)
	}
	// NUL padding sorts before any letter
	if tf.Materials[0].MainName() != "a" {
		t.Errorf("first = %q, want a", tf.Materials[0].MainName())
	}
}

func TestCanonicalizeMaterials_BadIndex(t *testing.T) {
	tf := New()
	tf.AddMaterial("a", "b", [4]uint32{})
	chunk, _ := tf.Chunk(0, 0, true)
	chunk.Tiles[3].MaterialIndex = 1

	if _, err := tf.CanonicalizeMaterials(); err == nil {
		t.Error("expected error for out-of-range material index")
	}
}
