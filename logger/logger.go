package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide logger. Init replaces it.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the global logger. Development gets colored console output,
// every other environment gets JSON lines on stdout.
func Init(env string) {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		level = zerolog.DebugLevel
	}
	Set(zerolog.New(out).Level(level).With().Timestamp().Str("service", "indibox").Logger())
}

// Set swaps the global logger, mainly for tests.
func Set(l zerolog.Logger) {
	Logger = l
	log.Logger = l
}

// SetLevel parses lvl ("debug", "info", ...) and applies it. Unknown levels are ignored.
func SetLevel(lvl string) {
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil || lvl == "" {
		return
	}
	Set(Logger.Level(parsed))
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs and exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// With returns a child logger carrying the component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
