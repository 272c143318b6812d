package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tebeka/atexit"
	"github.com/xyproto/env/v2"

	"github.com/sarchlab/collfold/ir"
)

// config holds the settings that come from the environment and can be
// overridden by flags.
type config struct {
	LogLevel   string
	LogFile    string
	Replicas   int
	Partitions int
}

func configFromEnv() config {
	return config{
		LogLevel:   env.Str("COLLFOLD_LOG_LEVEL", "info"),
		LogFile:    env.Str("COLLFOLD_LOG_FILE"),
		Replicas:   env.Int("COLLFOLD_REPLICAS", 2),
		Partitions: env.Int("COLLFOLD_PARTITIONS", 2),
	}
}

func parseLevel(name string) (slog.Level, error) {
	if strings.EqualFold(name, "trace") {
		return ir.LevelTrace, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// setupLogging routes the default slog logger to the log file, or to stderr
// when no file is configured.
func setupLogging(cfg config) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.Create(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		atexit.Register(func() {
			f.Sync()
			f.Close()
		})
		out = f
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}
