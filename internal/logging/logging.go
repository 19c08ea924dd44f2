// Package logging wires zerolog the way the teacher's CLI entry points do
// (src/cmd/cprotocol/main.go): a console writer with clock-time (time.Kitchen)
// stamps for interactive use, plain JSON with RFC3339 timestamps otherwise,
// and one named sub-logger per component rather than a shared untagged logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global logger. pretty=true selects the console writer
// (for a terminal); false keeps zerolog's default JSON encoder (for batch/
// CI runs where logs are collected, not read live).
func Init(pretty bool, level zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// Component returns a sub-logger tagged with the owning component name, so
// every log line can be filtered by stage (classifier, stager, reconciler,
// ...) without each component constructing its own writer.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
