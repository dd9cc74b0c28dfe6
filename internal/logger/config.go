package logger

import (
	"io"
	"os"
)

// Config holds logger configuration.
type Config struct {
	Level       string          // debug, info, warn, error
	Format      string          // json, text
	Output      io.Writer       // output destination; overrides Rotation when set
	ServiceName string          // service name for log tagging
	Rotation    *RotationConfig // optional rotated log file next to stdout
}

// RotationConfig describes the rotated service log file.
type RotationConfig struct {
	File       string // empty disables file output
	FileOnly   bool   // skip stdout when File is set
	MaxSize    int    // MB before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "catalogsync",
	}
}
