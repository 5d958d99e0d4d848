package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID     contextKey = "rid"
	ctxMeta    contextKey = "interaction_meta"
	ctxLogger  contextKey = "logger"
	ctxHandler contextKey = "handler"
	ctxTraceID contextKey = "trace_id"
	ctxSpanID  contextKey = "span_id"
)

// InteractionMeta carries Discord identifiers of the interaction being served.
// Snowflakes are kept as strings, the way Discord transmits them.
type InteractionMeta struct {
	InteractionID string
	Type          string
	GuildID       string
	UserID        string
}

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns global default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return l
		}
	}
	return base
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithInteractionMeta attaches interaction identifiers to context.
func WithInteractionMeta(ctx context.Context, meta InteractionMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxMeta, meta)
}

// InteractionMetaFrom returns identifiers stored by WithInteractionMeta.
func InteractionMetaFrom(ctx context.Context) InteractionMeta {
	if ctx == nil {
		return InteractionMeta{}
	}
	meta, _ := ctx.Value(ctxMeta).(InteractionMeta)
	return meta
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

// WithTrace attaches trace and span identifiers to context.
func WithTrace(ctx context.Context, traceID, spanID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if traceID != "" {
		ctx = context.WithValue(ctx, ctxTraceID, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, ctxSpanID, spanID)
	}
	return ctx
}

// TraceIDFrom extracts trace id from context.
func TraceIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxTraceID)
}

// SpanIDFrom extracts span id from context.
func SpanIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxSpanID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Sanitize trims non-printable runes from s to keep logs clean.
// It removes control characters (Unicode categories Cc, Cf) except for tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// CompactRID shortens a numeric snowflake RID into base36 for readability.
// Request ids that are not snowflakes (e.g. UUIDs) are returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	if rid == "" {
		return ""
	}
	n, err := strconv.ParseUint(rid, 10, 64)
	if err != nil {
		return rid
	}
	return strconv.FormatUint(n, 36)
}
