package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/bwterrain/internal/config"
	"github.com/Faultbox/bwterrain/pkg/terrain"
)

func newTestApp() (*app, *bytes.Buffer) {
	var out bytes.Buffer
	return &app{cfg: config.Default(), log: zap.NewNop(), out: &out}, &out
}

// writeSample saves a terrain with two chunks and two materials.
func writeSample(t *testing.T, path string) {
	t.Helper()
	tf := terrain.New()
	if _, err := tf.AddMaterial("sand", "sanddetail", [4]uint32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	for _, cell := range [][2]int{{4, 4}, {1, 2}} {
		c, err := tf.Chunk(cell[0], cell[1], true)
		if err != nil {
			t.Fatal(err)
		}
		c.Tiles[0].Heights[0] = 80
	}
	if err := tf.Save(path); err != nil {
		t.Fatal(err)
	}
}

func TestCmdNewAndInfo(t *testing.T) {
	a, out := newTestApp()
	path := filepath.Join(t.TempDir(), "empty.out")

	if err := a.dispatch("new", []string{path}); err != nil {
		t.Fatalf("new: %v", err)
	}
	out.Reset()
	if err := a.dispatch("info", []string{path}); err != nil {
		t.Fatalf("info: %v", err)
	}

	text := out.String()
	for _, want := range []string{"TERR", "CHNK", "GPNF", "CMAP", "UWCT", "COLM", "MATL", "Chunks:    0", "9 blocks"} {
		if !strings.Contains(text, want) {
			t.Errorf("info output missing %q:\n%s", want, text)
		}
	}
}

func TestCmdDump(t *testing.T) {
	a, out := newTestApp()
	path := filepath.Join(t.TempDir(), "map.out.gz")
	writeSample(t, path)

	if err := a.dispatch("dump", []string{path}); err != nil {
		t.Fatalf("dump: %v", err)
	}

	var doc dumpDoc
	if err := yaml.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("dump is not YAML: %v", err)
	}
	if len(doc.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(doc.Chunks))
	}
	// canonical order: (1,2) before (4,4)
	if doc.Chunks[0].X != 1 || doc.Chunks[0].Index != 0 {
		t.Errorf("first chunk = %+v", doc.Chunks[0])
	}
	if doc.Chunks[0].MaxHeight != 5 {
		t.Errorf("max height = %v, want 5", doc.Chunks[0].MaxHeight)
	}
	if len(doc.Materials) != 1 || doc.Materials[0].Main != "sand" || len(doc.Materials[0].Params) != 4 || doc.Materials[0].Params[3] != 4 {
		t.Errorf("materials = %+v", doc.Materials)
	}
	if doc.Collision.Version != terrain.CollisionVersion {
		t.Errorf("collision version = %d", doc.Collision.Version)
	}
}

func TestCmdCanonAndVerify(t *testing.T) {
	a, out := newTestApp()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.out")
	outPath := filepath.Join(dir, "out.out.zst")
	writeSample(t, in)

	if err := a.dispatch("canon", []string{in, outPath}); err != nil {
		t.Fatalf("canon: %v", err)
	}
	if !strings.Contains(out.String(), "2 chunks") {
		t.Errorf("canon output = %q", out.String())
	}

	out.Reset()
	if err := a.dispatch("verify", []string{outPath}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.HasPrefix(out.String(), "OK:") {
		t.Errorf("verify output = %q", out.String())
	}
}

func TestCmdVerify_Corrupt(t *testing.T) {
	a, _ := newTestApp()
	path := filepath.Join(t.TempDir(), "bad.out")
	if err := os.WriteFile(path, []byte("not a terrain file"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := a.dispatch("verify", []string{path}); err == nil {
		t.Error("verify accepted garbage")
	}
}

func TestCmdColmap(t *testing.T) {
	a, _ := newTestApp()
	dir := t.TempDir()
	in := filepath.Join(dir, "map.out")
	img := filepath.Join(dir, "col.png")
	writeSample(t, in)

	if err := a.dispatch("colmap", []string{in, img}); err != nil {
		t.Fatalf("colmap: %v", err)
	}
	f, err := os.Open(img)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if decoded.Bounds().Dx() != terrain.FieldSize {
		t.Errorf("width = %d", decoded.Bounds().Dx())
	}

	// unknown extension falls back to the configured format
	a.cfg.Collision.ImageFormat = "bmp"
	if err := a.dispatch("colmap", []string{"-raw", in, filepath.Join(dir, "col.img")}); err != nil {
		t.Fatalf("colmap -raw: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "col.img"))
	if !bytes.HasPrefix(data, []byte("BM")) {
		t.Error("expected BMP output")
	}
}

func TestCmdMaterials(t *testing.T) {
	a, out := newTestApp()
	dir := t.TempDir()
	in := filepath.Join(dir, "map.out")
	dst := filepath.Join(dir, "more.out")
	writeSample(t, in)

	if err := a.dispatch("materials", []string{"-add", "Beach:Wet", "-o", dst, in}); err != nil {
		t.Fatalf("materials -add: %v", err)
	}
	if !strings.Contains(out.String(), "beach") {
		t.Errorf("listing missing new material:\n%s", out.String())
	}

	tf, err := terrain.Load(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(tf.Materials) != 2 || tf.Materials[0].MainName() != "beach" {
		t.Errorf("saved materials = %d, first %q", len(tf.Materials), tf.Materials[0].MainName())
	}

	err = a.dispatch("materials", []string{"-add", "nocolon", in})
	var usage usageError
	if !errors.As(err, &usage) {
		t.Errorf("error = %v, want usage error", err)
	}
}

func TestCmdTexID(t *testing.T) {
	a, out := newTestApp()
	if err := a.dispatch("texid", []string{"-n", "3", "1100000007"}); err != nil {
		t.Fatal(err)
	}
	want := "1100000000\n1100000014\n1100000021\n"
	if out.String() != want {
		t.Errorf("texid output = %q, want %q", out.String(), want)
	}

	if err := a.dispatch("texid", []string{"abc"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestCmdConfig(t *testing.T) {
	a, _ := newTestApp()
	path := filepath.Join(t.TempDir(), "bwterrain.yaml")
	a.cfg.Terrain.Compression = "zstd"

	if err := a.dispatch("config", []string{path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "compression: zstd") {
		t.Errorf("config file:\n%s", data)
	}
}

func TestCmdConfig_PrintsYAML(t *testing.T) {
	a, out := newTestApp()
	a.cfg.Terrain.Compression = "gzip"
	a.cfg.Textures.IDStep = 11

	if err := a.dispatch("config", nil); err != nil {
		t.Fatal(err)
	}
	var got config.Config
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.String())
	}
	if got.Terrain.Compression != "gzip" || got.Textures.IDStep != 11 {
		t.Errorf("printed config = %+v", got)
	}
}

func TestDispatch_Errors(t *testing.T) {
	a, _ := newTestApp()

	if err := a.dispatch("bogus", nil); err == nil {
		t.Error("unknown command should fail")
	}
	for _, cmd := range []string{"info", "dump", "canon", "verify", "colmap", "new", "materials"} {
		var usage usageError
		if err := a.dispatch(cmd, nil); !errors.As(err, &usage) {
			t.Errorf("%s without args: error = %v, want usage error", cmd, err)
		}
	}

	a.cfg.Terrain.Compression = "lz4"
	if err := a.dispatch("new", []string{filepath.Join(t.TempDir(), "x.out")}); err == nil {
		t.Error("bad compression setting should fail")
	}
}
