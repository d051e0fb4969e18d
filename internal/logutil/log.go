// Package logutil は zerolog のロガーを context 経由で受け渡すためのヘルパーです。
package logutil

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

type (
	key byte
)

var (
	loggerKey = key(1)
)

// New は指定レベルのロガーを作成します。debug モードでは人が読みやすい形式で出力します。
func New(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}

// Error は oops エラーであれば code と context をフィールドとして付与したイベントを返します。
func Error(logger zerolog.Logger, err error) *zerolog.Event {
	ev := logger.Error().Err(err)
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			ev = ev.Interface("code", code)
		}
		if fields := oopsErr.Context(); len(fields) > 0 {
			ev = ev.Fields(fields)
		}
	}
	return ev
}
