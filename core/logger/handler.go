package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
	redacted         = "[redacted]"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders one line per record with a stable key order.
// Interaction context (rid, snowflakes, trace ids) is pulled from ctx so call
// sites only pass what is specific to the event.
type structuredHandler struct {
	level  slog.Leveler
	writer *asyncWriter
	enc    encoder
	order  []string
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	h := &structuredHandler{
		level:  cfg.level,
		writer: cfg.writer,
		order:  cfg.keyOrder,
		enc:    kvEncoder{},
	}
	if h.level == nil {
		h.level = slog.LevelInfo
	}
	if h.order == nil {
		h.order = append([]string(nil), defaultKeyOrder...)
	}
	if cfg.format == formatJSON {
		h.enc = jsonEncoder{}
	}
	return h
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = normalizeLevel(r.Level.String())
	if h.enc.verbose() {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.attrs {
		e.add(h.prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	e.fromContext(ctx)

	if rid := e.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if h.enc.verbose() {
				e.setDefault("rid_full", rid)
			}
			e["rid"] = compact
		}
	}
	event := r.Message
	if event == "" {
		event = "unknown"
	}
	e.setDefault("event", event)
	e.setDefault("component", CompApp)

	e.normalizeEnums()
	e.maskSecrets()
	e.prune()

	line, err := h.enc.encode(e, h.order)
	if err != nil {
		return err
	}
	return h.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix += "." + name
	}
	return &clone
}

// entry is the flattened field set of one log line. Empty keys are dropped
// on insertion; empty values are pruned before encoding.
type entry map[string]any

func (e entry) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := normalizeAttr(key, a.Value.Resolve()); ok {
		e[k] = v
	}
}

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (e entry) setDefault(key string, value any) {
	if s, ok := value.(string); ok && s == "" {
		return
	}
	if e.str(key) == "" {
		e[key] = value
	}
}

func (e entry) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	meta := InteractionMetaFrom(ctx)
	e.setDefault("rid", RIDFrom(ctx))
	e.setDefault("trace_id", TraceIDFrom(ctx))
	e.setDefault("span_id", SpanIDFrom(ctx))
	e.setDefault("interaction_id", meta.InteractionID)
	e.setDefault("interaction_type", meta.Type)
	e.setDefault("guild_id", meta.GuildID)
	e.setDefault("user_id", meta.UserID)
	e.setDefault("handler", HandlerFrom(ctx))
}

func (e entry) normalizeEnums() {
	if s := e.str("status"); s != "" {
		e["status"], _ = normalizeStatus(s)
	}
	for key, table := range map[string]map[string]string{
		"cache":   allowedCache,
		"outcome": allowedOutcome,
	} {
		raw := e.str(key)
		if raw == "" {
			continue
		}
		if v, ok := normalizeEnum(table, raw); ok {
			e[key] = v
		} else {
			delete(e, key)
		}
	}
}

// maskSecrets hides interaction and bot tokens passed as attributes. Tokens
// embedded in free text must go through Redact at the call site.
func (e entry) maskSecrets() {
	for k := range e {
		if isSecretKey(k) && e.str(k) != "" {
			e[k] = redacted
		}
	}
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	switch key {
	case "token", "authorization", "password", "secret_access_key":
		return true
	}
	return strings.HasSuffix(key, "_token")
}

func (e entry) prune() {
	for k, v := range e {
		switch val := v.(type) {
		case nil:
			delete(e, k)
		case string:
			if val == "" {
				delete(e, k)
			}
		case fmt.Stringer:
			if val.String() == "" {
				delete(e, k)
			}
		}
	}
}

// keys lists the entry's keys: those in order first, the rest sorted.
func (e entry) keys(order []string) []string {
	out := make([]string, 0, len(e))
	seen := make(map[string]struct{}, len(e))
	for _, k := range order {
		if _, ok := e[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	rest := make([]string, 0, len(e)-len(out))
	for k := range e {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func normalizeAttr(key string, val slog.Value) (string, any, bool) {
	switch val.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(val.String()), true
	case slog.KindBool:
		return key, val.Bool(), true
	case slog.KindInt64:
		return key, val.Int64(), true
	case slog.KindUint64:
		if u := val.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, val.Uint64(), true
	case slog.KindFloat64:
		return key, val.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(val.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, val.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := val.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey renames duration attributes so every emitted value is in milliseconds.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return strings.TrimSuffix(key, "_duration") + "_duration_ms"
	case !strings.HasSuffix(key, "_ms"):
		return key + "_ms"
	}
	return key
}

type encoder interface {
	encode(e entry, order []string) ([]byte, error)
	// verbose reports whether machine-only fields (ts_unix_nano, rid_full) belong in the line.
	verbose() bool
}

type jsonEncoder struct{}

func (jsonEncoder) verbose() bool { return true }

func (jsonEncoder) encode(e entry, order []string) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, k := range e.keys(order) {
		data, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %q: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

type kvEncoder struct{}

func (kvEncoder) verbose() bool { return false }

func (kvEncoder) encode(e entry, order []string) ([]byte, error) {
	var b strings.Builder
	for i, k := range e.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(e[k]))
	}
	return []byte(b.String()), nil
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(x)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= 32 || r == '=' || r == '"'
}
