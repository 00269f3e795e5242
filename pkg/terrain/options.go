package terrain

import (
	"go.uber.org/zap"
)

// Option configures decoding and file I/O.
type Option func(*options)

type options struct {
	log                   *zap.Logger
	canonicalizeMaterials bool
	compression           Compression
	level                 int
}

func defaultOptions() options {
	return options{
		canonicalizeMaterials: true,
		compression:           CompressionAuto,
		level:                 DefaultCompressionLevel,
	}
}

func collectOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger routes debug output to log. The default discards it.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMaterialCanonicalization controls whether Decode sorts the material
// table right after reading it. Enabled by default.
func WithMaterialCanonicalization(enabled bool) Option {
	return func(o *options) {
		o.canonicalizeMaterials = enabled
	}
}

// WithCompression selects the container used by Save and Write.
// CompressionAuto picks by file extension.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCompressionLevel sets the gzip level (1-9) or zstd level (1-22).
// Zero keeps the library default.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}
