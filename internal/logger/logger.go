package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init builds the process logger and installs it as the fallback for
// contexts that carry no request-scoped logger.
func Init(service, env, level string) zerolog.Logger {
	return initWith(os.Stdout, service, env, level)
}

func initWith(w io.Writer, service, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = w
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()
	zerolog.DefaultContextLogger = &l
	return l
}

// Ctx returns the logger bound to ctx, or the process logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// With attaches l to ctx.
func With(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
