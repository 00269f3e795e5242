// bwterrain is a CLI utility for Battalion Wars terrain (.out) files.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/bwterrain/internal/config"
	"github.com/Faultbox/bwterrain/internal/logger"
	"github.com/Faultbox/bwterrain/pkg/terrain"
)

// usageError is returned for bad command arguments. It holds the usage line.
type usageError string

func (u usageError) Error() string {
	return "usage: bwterrain " + string(u)
}

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	a := &app{cfg: cfg, log: logger.Named("bwterrain"), out: os.Stdout}
	if err := a.dispatch(args[0], args[1:]); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "Usage: bwterrain %s\n", string(usage))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

func (a *app) dispatch(command string, args []string) error {
	switch command {
	case "info":
		return a.cmdInfo(args)
	case "dump":
		return a.cmdDump(args)
	case "canon":
		return a.cmdCanon(args)
	case "verify":
		return a.cmdVerify(args)
	case "colmap":
		return a.cmdColmap(args)
	case "new":
		return a.cmdNew(args)
	case "materials", "mat":
		return a.cmdMaterials(args)
	case "texid":
		return a.cmdTexID(args)
	case "config":
		return a.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage(a.out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// options builds the terrain options from the effective config.
func (a *app) options() ([]terrain.Option, error) {
	c, err := terrain.ParseCompression(a.cfg.Terrain.Compression)
	if err != nil {
		return nil, err
	}
	return []terrain.Option{
		terrain.WithLogger(a.log.Named("terrain")),
		terrain.WithMaterialCanonicalization(a.cfg.Terrain.CanonicalizeMaterialsOnLoad),
		terrain.WithCompression(c),
		terrain.WithCompressionLevel(a.cfg.Terrain.CompressionLevel),
	}, nil
}

func (a *app) load(path string) (*terrain.TerrainFile, []terrain.Option, error) {
	opts, err := a.options()
	if err != nil {
		return nil, nil, err
	}
	t, err := terrain.Load(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return t, opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `bwterrain - Battalion Wars terrain utility

Usage:
  bwterrain [global options] <command> [options]

Commands:
  info <file.out>                  Show sections and statistics
  dump <file.out>                  Print a YAML summary
  canon <in.out> [out.out]         Canonicalize, regenerate collision and save
  verify <file.out>                Check that re-encoding is stable
  colmap [-raw] <file.out> <img>   Render the collision map (png or bmp)
  new <out.out>                    Write an empty terrain
  materials [-add main:detail] [-o out] <file.out>
                                   List or append materials
  texid [-n count] [used ids...]   Print unused texture resource ids
  config [path]                    Print the effective config, or write it to path

Global options:
  --config <path>          Config file (default ./bwterrain.yaml)
  --debug                  Enable debug logging
  --log-file <path>        Also log to a rotated file
  --compression <kind>     auto, none, gzip or zstd
  --compression-level <n>  Compression level
  --image-format <fmt>     png or bmp
  --keep-material-order    Do not sort materials on load

Files ending in .gz or .zst are compressed transparently.

Examples:
  bwterrain info C1_OnPatrol.out
  bwterrain canon C1_OnPatrol.out fixed.out.gz
  bwterrain colmap C1_OnPatrol.out collision.png`)
}
