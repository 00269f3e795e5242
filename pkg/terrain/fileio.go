package terrain

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Compression selects the container a terrain file is wrapped in.
type Compression string

// Supported containers.
const (
	CompressionAuto Compression = "auto"
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"

	DefaultCompressionLevel = 0
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ParseCompression converts a config or flag value.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	case "":
		return CompressionAuto, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// CompressionForPath picks a container from the file extension.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// decompress unwraps gzip or zstd data by magic number; anything else is
// returned unchanged.
func decompress(data []byte) ([]byte, Compression, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, CompressionGzip, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, CompressionGzip, fmt.Errorf("reading gzip stream: %w", err)
		}
		return out, CompressionGzip, nil
	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, CompressionZstd, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, CompressionZstd, fmt.Errorf("reading zstd stream: %w", err)
		}
		return out, CompressionZstd, nil
	default:
		return data, CompressionNone, nil
	}
}

func compressTo(w io.Writer, data []byte, c Compression, level int) error {
	switch c {
	case CompressionNone, CompressionAuto:
		_, err := w.Write(data)
		return err
	case CompressionGzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case CompressionZstd:
		var encOpts []zstd.EOption
		if level != 0 {
			encOpts = append(encOpts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		enc, err := zstd.NewWriter(w, encOpts...)
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown compression %q", c)
	}
}

// Read decodes a terrain from r, unwrapping gzip or zstd when present.
func Read(r io.Reader, opts ...Option) (*TerrainFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	t, _, _, err := decodeMaybeCompressed(data, opts)
	return t, err
}

// ReadFile returns the contents of a terrain file with any gzip or zstd
// wrapping removed.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read terrain file: %w", err)
	}
	raw, _, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

// Load reads a terrain file from disk.
func Load(path string, opts ...Option) (*TerrainFile, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read terrain file: %w", err)
	}
	t, raw, c, err := decodeMaybeCompressed(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.logFile("loaded terrain", path, c, raw, start)
	return t, nil
}

func decodeMaybeCompressed(data []byte, opts []Option) (*TerrainFile, []byte, Compression, error) {
	raw, c, err := decompress(data)
	if err != nil {
		return nil, nil, c, err
	}
	t, err := Decode(raw, opts...)
	if err != nil {
		return nil, nil, c, err
	}
	return t, raw, c, nil
}

// logFile records a completed load or save. data is the uncompressed file.
func (t *TerrainFile) logFile(msg, path string, c Compression, data []byte, start time.Time) {
	fields := []zap.Field{
		zap.String("path", path),
		zap.String("compression", string(c)),
		zap.Int("bytes", len(data)),
		zap.Int("chunks", len(t.Chunks)),
		zap.Int("materials", len(t.Materials)),
		zap.Int("collisionBlocks", t.Collision.BlockCount()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if sections, err := ScanSections(data); err == nil {
		sizes := make([]zap.Field, len(sections))
		for i, s := range sections {
			sizes[i] = zap.Int(s.Tag.String(), s.Length)
		}
		fields = append(fields, zap.Dict("sections", sizes...))
	}
	t.log.Info(msg, fields...)
}

// Write encodes the terrain to w. CompressionAuto writes raw bytes.
func (t *TerrainFile) Write(w io.Writer, opts ...Option) error {
	o := collectOptions(opts)
	data, err := t.Encode()
	if err != nil {
		return err
	}
	return compressTo(w, data, o.compression, o.level)
}

// Save encodes the terrain and replaces path atomically. With
// CompressionAuto the container follows the extension of path.
func (t *TerrainFile) Save(path string, opts ...Option) error {
	start := time.Now()
	o := collectOptions(opts)
	c := o.compression
	if c == CompressionAuto {
		c = CompressionForPath(path)
	}

	data, err := t.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := compressTo(tmp, data, c, o.level); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write terrain: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	t.logFile("saved terrain", path, c, data, start)
	return nil
}
