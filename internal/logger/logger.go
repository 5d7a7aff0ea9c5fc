// Package logger provides the configured zerolog logger shared by the
// service binaries.
package logger

import (
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a zerolog.Logger tagged with the service name. The level is
// read from MEMORYCARE_LOG_LEVEL (default info). Call sites should use
// .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	// Marshal pkg/errors stack traces when present; attach a stack to
	// std errors so .Stack() always has something to render.
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	level := zerolog.InfoLevel
	if v := os.Getenv("MEMORYCARE_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
