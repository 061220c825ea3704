package config

import (
	"flag"
	"path/filepath"

	"taverntapesd/internal/model"
)

// Config is the bootstrap configuration for the taverntapesd binary.
type Config struct {
	DataDir              string // directory holding the badger database
	RecordingsDir        string // directory segment files are exported under
	DefaultInputDevice   string
	LogLevel             string
	Format               model.Format
	QualityKbps          int
	SplitIntervalMinutes int
	SplitSizeMB          int64
}

// Load parses flags and returns the resulting Config.
func Load() *Config {
	dataDir := flag.String("data-dir", "data", "Directory for the session/blob/recovery store")
	recordingsDir := flag.String("recordings-dir", "", "Directory recordings are exported under (default: dataDir/recordings)")
	device := flag.String("default-device", "default", "Default input device id")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	format := flag.String("format", string(model.FormatWAV), "Default recording format: wav or compressed")
	quality := flag.Int("quality-kbps", 320, "Default compressed bitrate in kbps")
	splitMinutes := flag.Int("split-interval-minutes", 30, "Default split interval in minutes (0 disables)")
	splitSizeMB := flag.Int64("split-size-mb", 500, "Default split size in MB (0 disables)")

	flag.Parse()

	finalRecordingsDir := *recordingsDir
	if finalRecordingsDir == "" {
		finalRecordingsDir = filepath.Join(*dataDir, "recordings")
	}

	return &Config{
		DataDir:              *dataDir,
		RecordingsDir:        finalRecordingsDir,
		DefaultInputDevice:   *device,
		LogLevel:             *logLevel,
		Format:               model.Format(*format),
		QualityKbps:          *quality,
		SplitIntervalMinutes: *splitMinutes,
		SplitSizeMB:          *splitSizeMB,
	}
}
