package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/logger"
)

type dispatchFunc func(ctx context.Context) (*discordgo.InteractionResponse, error)

func handleWithSummary(ctx context.Context, handlerName string, start time.Time, fn dispatchFunc, extras ...slog.Attr) (*discordgo.InteractionResponse, error) {
	ctx = logger.WithHandler(ctx, handlerName)
	resp, err := fn(ctx)
	logHandlerSummary(ctx, handlerName, start, resp, err, extras...)
	return resp, err
}

func logHandlerSummary(ctx context.Context, handlerName string, start time.Time, resp *discordgo.InteractionResponse, err error, extras ...slog.Attr) {
	status, outcome := "ok", "ok"
	level := slog.LevelInfo
	switch {
	case errors.Is(err, ErrUnknownInteraction):
		status, outcome = "skip", "fail"
		level = slog.LevelWarn
	case err != nil:
		status, outcome = "fail", "fail"
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.Took(start)),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("response_type", int(resp.Type)))
		if resp.Data != nil && resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
			attrs = append(attrs, slog.Bool("ephemeral", true))
		}
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component(logger.CompDC), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnknownInteraction) {
		return "UNKNOWN_INTERACTION"
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
