package sundaecli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func Logger(service Service) zerolog.Logger {
	var w io.Writer = os.Stdout
	if CommonOpts.Console {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).With().
		Timestamp().
		Str("service", service.Name).
		Str("version", service.Version).
		Logger()
}
