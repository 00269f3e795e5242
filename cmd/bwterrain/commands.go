package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/bwterrain/pkg/terrain"
	"github.com/Faultbox/bwterrain/pkg/texid"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) cmdInfo(args []string) error {
	if len(args) < 1 {
		return usageError("info <file.out>")
	}
	path := args[0]

	raw, err := terrain.ReadFile(path)
	if err != nil {
		return err
	}
	sections, err := terrain.ScanSections(raw)
	if err != nil {
		return err
	}
	opts, err := a.options()
	if err != nil {
		return err
	}
	t, err := terrain.Decode(raw, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	stats := t.Stats()

	fmt.Fprintf(a.out, "File:      %s\n", path)
	fmt.Fprintf(a.out, "Size:      %d bytes\n", len(raw))
	fmt.Fprintln(a.out, "Sections:")
	for _, s := range sections {
		fmt.Fprintf(a.out, "  %s  offset 0x%06x  length %d\n", s.Tag, s.Offset, s.Length)
	}
	fmt.Fprintf(a.out, "Chunks:    %d (%d cells present)\n", stats.Chunks, stats.PresentCells)
	fmt.Fprintf(a.out, "Materials: %d\n", stats.Materials)
	fmt.Fprintf(a.out, "UWCT:      %d entries\n", len(t.UWCT))
	fmt.Fprintf(a.out, "Collision: %d blocks, %.1fx compression\n", stats.CollisionBlocks, stats.CompressionRatio)
	return nil
}

type dumpDoc struct {
	Info      dumpInfo       `yaml:"info"`
	Chunks    []dumpCell     `yaml:"chunks"`
	Materials []dumpMaterial `yaml:"materials"`
	Collision dumpCollision  `yaml:"collision"`
}

type dumpInfo struct {
	ChunksX       uint32 `yaml:"chunks_x"`
	ChunksY       uint32 `yaml:"chunks_y"`
	Reserved      uint32 `yaml:"reserved"`
	MaterialCount uint32 `yaml:"material_count"`
	UWCTEntries   int    `yaml:"uwct_entries"`
}

type dumpCell struct {
	X         int     `yaml:"x"`
	Y         int     `yaml:"y"`
	Index     uint16  `yaml:"index"`
	MinHeight float64 `yaml:"min_height"`
	MaxHeight float64 `yaml:"max_height"`
}

type dumpMaterial struct {
	Index  int      `yaml:"index"`
	Main   string   `yaml:"main"`
	Detail string   `yaml:"detail"`
	Params []uint32 `yaml:"params,flow"`
}

type dumpCollision struct {
	Version uint32  `yaml:"version"`
	SizeX   uint32  `yaml:"size_x"`
	SizeY   uint32  `yaml:"size_y"`
	Blocks  int     `yaml:"blocks"`
	Ratio   float64 `yaml:"ratio"`
}

func heightRange(c *terrain.Chunk) (lo, hi float64) {
	lo, hi = c.Tiles[0].Height(0), c.Tiles[0].Height(0)
	for i := range c.Tiles {
		for v := 0; v < terrain.VertsPerTile; v++ {
			h := c.Tiles[i].Height(v)
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

func (a *app) cmdDump(args []string) error {
	if len(args) < 1 {
		return usageError("dump <file.out>")
	}
	t, _, err := a.load(args[0])
	if err != nil {
		return err
	}

	doc := dumpDoc{
		Info: dumpInfo{
			ChunksX:       t.Info.ChunksX,
			ChunksY:       t.Info.ChunksY,
			Reserved:      t.Info.Reserved,
			MaterialCount: t.Info.MaterialCount,
			UWCTEntries:   len(t.UWCT),
		},
		Collision: dumpCollision{
			Version: t.Collision.Info.Version,
			SizeX:   t.Collision.Info.SizeX,
			SizeY:   t.Collision.Info.SizeY,
			Blocks:  t.Collision.BlockCount(),
			Ratio:   t.Collision.CompressionRatio(),
		},
	}
	for x := 0; x < terrain.GridSize; x++ {
		for y := 0; y < terrain.GridSize; y++ {
			c, err := t.Chunk(x, y, false)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			lo, hi := heightRange(c)
			doc.Chunks = append(doc.Chunks, dumpCell{X: x, Y: y, Index: t.ChunkMap[x][y].Index, MinHeight: lo, MaxHeight: hi})
		}
	}
	for i := range t.Materials {
		m := &t.Materials[i]
		doc.Materials = append(doc.Materials, dumpMaterial{Index: i, Main: m.MainName(), Detail: m.DetailName(), Params: m.Params[:]})
	}

	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) cmdCanon(args []string) error {
	if len(args) < 1 {
		return usageError("canon <in.out> [out.out]")
	}
	in, out := args[0], args[0]
	if len(args) > 1 {
		out = args[1]
	}

	t, opts, err := a.load(in)
	if err != nil {
		return err
	}
	if err := t.Save(out, opts...); err != nil {
		return err
	}
	stats := t.Stats()
	fmt.Fprintf(a.out, "Wrote %s: %d chunks, %d materials, %d collision blocks\n",
		out, stats.Chunks, stats.Materials, stats.CollisionBlocks)
	return nil
}

func (a *app) cmdVerify(args []string) error {
	if len(args) < 1 {
		return usageError("verify <file.out>")
	}
	path := args[0]

	raw, err := terrain.ReadFile(path)
	if err != nil {
		return err
	}
	orig, err := terrain.ScanSections(raw)
	if err != nil {
		return err
	}
	opts, err := a.options()
	if err != nil {
		return err
	}

	first, err := roundTrip(raw, opts)
	if err != nil {
		return fmt.Errorf("first pass: %w", err)
	}
	second, err := roundTrip(first, opts)
	if err != nil {
		return fmt.Errorf("second pass: %w", err)
	}

	got, err := terrain.ScanSections(first)
	if err != nil {
		return err
	}
	if len(got) != len(orig) {
		return fmt.Errorf("section count changed: %d -> %d", len(orig), len(got))
	}
	for i := range orig {
		if got[i].Tag != orig[i].Tag {
			return fmt.Errorf("section %d: tag %s -> %s", i, orig[i].Tag, got[i].Tag)
		}
		switch got[i].Tag {
		case terrain.TagCHNK, terrain.TagCOLM:
			if got[i].Length != orig[i].Length {
				a.log.Info("section length changed",
					zap.String("tag", got[i].Tag.String()),
					zap.Int("before", orig[i].Length),
					zap.Int("after", got[i].Length))
			}
		default:
			if got[i].Length != orig[i].Length {
				return fmt.Errorf("%s length %d -> %d", got[i].Tag, orig[i].Length, got[i].Length)
			}
		}
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("re-encoding is not stable")
	}

	fmt.Fprintf(a.out, "OK: %s (%d sections, %d bytes canonical)\n", path, len(got), len(first))
	return nil
}

func roundTrip(data []byte, opts []terrain.Option) ([]byte, error) {
	t, err := terrain.Decode(data, opts...)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func (a *app) cmdColmap(args []string) error {
	fs := newFlagSet("colmap")
	raw := fs.Bool("raw", false, "Render the stored map without regenerating it")
	if err := fs.Parse(args); err != nil || fs.NArg() < 2 {
		return usageError("colmap [-raw] <file.out> <out.png|out.bmp>")
	}

	t, _, err := a.load(fs.Arg(0))
	if err != nil {
		return err
	}
	if !*raw {
		if err := t.Collision.Regenerate(t.ChunkMap, t.Chunks); err != nil {
			return err
		}
	}

	outPath := fs.Arg(1)
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	if format != "png" && format != "bmp" {
		format = a.cfg.Collision.ImageFormat
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := t.Collision.WriteImage(f, format, a.cfg.Collision.FlipVertical); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Wrote %s (%dx%d %s)\n", outPath, t.Collision.Width(), t.Collision.Height(), format)
	return nil
}

func (a *app) cmdNew(args []string) error {
	if len(args) < 1 {
		return usageError("new <out.out>")
	}
	opts, err := a.options()
	if err != nil {
		return err
	}
	if err := terrain.New(opts...).Save(args[0], opts...); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", args[0])
	return nil
}

func (a *app) cmdMaterials(args []string) error {
	fs := newFlagSet("materials")
	add := fs.String("add", "", "Append a material as main:detail")
	out := fs.String("o", "", "Output file when adding (default: overwrite input)")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return usageError("materials [-add main:detail] [-o out] <file.out>")
	}
	path := fs.Arg(0)

	t, opts, err := a.load(path)
	if err != nil {
		return err
	}

	if *add != "" {
		mainTex, detailTex, ok := strings.Cut(*add, ":")
		if !ok {
			return usageError("materials -add main:detail <file.out>")
		}
		if _, err := t.AddMaterial(mainTex, detailTex, [4]uint32{}); err != nil {
			return err
		}
		target := path
		if *out != "" {
			target = *out
		}
		if err := t.Save(target, opts...); err != nil {
			return err
		}
	}

	for i := range t.Materials {
		m := &t.Materials[i]
		fmt.Fprintf(a.out, "%3d  %-16s  %-16s  %v\n", i, m.MainName(), m.DetailName(), m.Params)
	}
	return nil
}

func (a *app) cmdTexID(args []string) error {
	fs := newFlagSet("texid")
	n := fs.Int("n", 1, "Number of ids to print")
	if err := fs.Parse(args); err != nil || *n < 1 {
		return usageError("texid [-n count] [used ids...]")
	}

	var used []uint32
	for _, s := range fs.Args() {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("bad id %q: %w", s, err)
		}
		used = append(used, uint32(v))
	}

	alloc := texid.NewAllocator(a.cfg.Textures.IDBase, a.cfg.Textures.IDStep, used...)
	for i := 0; i < *n; i++ {
		id, err := alloc.Next()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
	}
	return nil
}

func (a *app) cmdConfig(args []string) error {
	if len(args) == 0 {
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = a.out.Write(data)
		return err
	}
	if err := a.cfg.SaveTo(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", args[0])
	return nil
}
