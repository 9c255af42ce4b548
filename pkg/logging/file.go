package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newFileSink opens <Dir>/<FilePrefix>.log, creating Dir if needed. The file
// rotates at MaxSizeMB; rotated files older than MaxAgeDays are removed.
func newFileSink(cfg config.LogConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", cfg.Dir, err)
	}

	prefix := cfg.FilePrefix
	if prefix == "" {
		prefix = "app"
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, prefix+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  false,
	}, nil
}
