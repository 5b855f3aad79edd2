// Package logging wires OMOD's global zerolog logger: a console sink
// plus a rotating file sink, mirroring the dual-sink setup the CLI
// tooling in this codebase has always used.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init initializes the global logger with dual sinks: os.Stderr and a
// rotating file under cacheDir/logs. verbose raises the level to debug.
func Init(verbose bool, cacheDir string) {
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if verbose || os.Getenv("VERBOSE") == "true" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339Nano,
		NoColor:    !isTerminal,
	}

	if cacheDir == "" {
		cacheDir = "."
	}
	logDir := filepath.Join(cacheDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("failed to create log directory, file logging disabled")
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "omod.log"),
		MaxSize:    16,
		MaxBackups: 8,
		MaxAge:     90,
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
}

// SetLevel overrides the global log level with an explicit name
// (--log_level), taking precedence over the --verbose shorthand.
// Unknown names are reported and otherwise ignored.
func SetLevel(name string) {
	if name == "" {
		return
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		log.Warn().Str("level", name).Msg("unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(level)
}
