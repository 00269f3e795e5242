package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log-file", "", "Also write logs to this file")
	flagCompression = flag.String("compression", "", "Output compression: auto, none, gzip, zstd")
	flagLevel       = flag.Int("compression-level", 0, "gzip (1-9) or zstd (1-22) level")
	flagImage       = flag.String("image-format", "", "Collision image format: png, bmp")
	flagNoSort      = flag.Bool("keep-material-order", false, "Do not sort materials when loading")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagCompression != "" {
		cfg.Terrain.Compression = *flagCompression
	}
	if *flagLevel > 0 {
		cfg.Terrain.CompressionLevel = *flagLevel
	}
	if *flagImage != "" {
		cfg.Collision.ImageFormat = *flagImage
	}
	if *flagNoSort {
		cfg.Terrain.CanonicalizeMaterialsOnLoad = false
	}
}
