package pipeline

import "spooltracker/internal/config"

// Options bounds and tunes parsing. Zero or negative fields fall back to
// DefaultOptions.
type Options struct {
	GCodeScanLines int
	GramsPerMeter  float64
	MaxEntryBytes  int64
}

func DefaultOptions() Options {
	return Options{
		GCodeScanLines: 1000,
		GramsPerMeter:  3,
		MaxEntryBytes:  64 << 20,
	}
}

func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	if cfg.GCodeScanLines > 0 {
		opts.GCodeScanLines = cfg.GCodeScanLines
	}
	if cfg.GramsPerMeter > 0 {
		opts.GramsPerMeter = cfg.GramsPerMeter
	}
	if cfg.MaxArchiveEntryBytes > 0 {
		opts.MaxEntryBytes = cfg.MaxArchiveEntryBytes
	}
	return opts
}
