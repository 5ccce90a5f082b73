// Package logger builds the process logger and carries request-scoped loggers
// through a context.
package logger

import (
	"context"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type ctxKey struct{}

// New returns a logger writing to w. JSON output is used when json is true,
// logfmt otherwise. Records below lvl are dropped.
func New(w io.Writer, lvl string, json bool) log.Logger {
	var logger log.Logger
	if json {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	logger = level.NewFilter(logger, parseLevel(lvl))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger
}

// FromContext returns the logger stored in ctx, or fallback if there is none.
func FromContext(ctx context.Context, fallback log.Logger) log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(log.Logger); ok {
		return l
	}
	return fallback
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func parseLevel(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
