package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func drain(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithInteractionMeta(ctx, InteractionMeta{InteractionID: "42", GuildID: "7", UserID: "9"})

	log := slog.New(handler).With("component", CompApp)
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	line := drain(t, aw, buf)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "interaction_id=42", "guild_id=7", "user_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	log := slog.New(handler).With("component", CompResults)
	LogEvent(ctx, log, slog.LevelError, "media.lookup",
		slog.String("status", "fail"),
		slog.Any("err", errors.New("boom")),
		slog.String("err_code", "STORAGE_FAIL"),
	)

	line := drain(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"results"`, `"event":"media.lookup"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "1187654321098765432"
	ctx := WithRID(context.Background(), rawRID)
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test")

	line := drain(t, aw, buf)
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"component":"app"`) {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestCompactRIDKeepsUUID(t *testing.T) {
	id := "5b0e8c1a-3f5e-4a8e-9a57-1d6f0c1e2b3a"
	if got := CompactRID(id); got != id {
		t.Fatalf("CompactRID(%q) = %q", id, got)
	}
	if got := CompactRID("35"); got != "z" {
		t.Fatalf("CompactRID(35) = %q, want z", got)
	}
}

func TestDurationAndEnumNormalization(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), slog.New(handler), slog.LevelInfo, "dur",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("queue_wait", 2*time.Second),
		slog.String("outcome", "bogus"),
		slog.String("cache", "HIT"),
	)
	line := drain(t, aw, buf)
	for _, want := range []string{"duration_ms=2", "queue_wait_ms=2000", "cache=hit"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("invalid outcome should be dropped: %s", line)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 4)
	passed := 0
	for i := 0; i < 8; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("passed = %d, want 2", passed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
	if n, d := parseRatioSpec("3/10"); n != 3 || d != 10 {
		t.Fatalf("parseRatioSpec = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("20"); n != 1 || d != 20 {
		t.Fatalf("parseRatioSpec bare = %d/%d", n, d)
	}
}

func TestRedact(t *testing.T) {
	msg := `Post "https://discord.com/api/v10/webhooks/1/aW50ZXJhY3Rpb24": EOF`
	got := Redact(msg, "aW50ZXJhY3Rpb24", "")
	if strings.Contains(got, "aW50ZXJhY3Rpb24") || !strings.Contains(got, "[redacted]") {
		t.Fatalf("Redact = %s", got)
	}
}

func TestStructuredHandlerMasksTokens(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	LogEvent(context.Background(), slog.New(handler).WithGroup("followup"), slog.LevelInfo, "followup.send",
		slog.String("token", "aW50ZXJhY3Rpb24"),
		slog.String("bot_token", "Qm90IHRva2Vu"),
		slog.String("app_id", "123"),
	)
	line := drain(t, aw, buf)
	for _, secret := range []string{"aW50ZXJhY3Rpb24", "Qm90IHRva2Vu"} {
		if strings.Contains(line, secret) {
			t.Fatalf("secret %s leaked: %s", secret, line)
		}
	}
	for _, want := range []string{`"followup.token":"[redacted]"`, `"followup.bot_token":"[redacted]"`, `"followup.app_id":"123"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestComponentLoggerReused(t *testing.T) {
	prev := base
	t.Cleanup(func() {
		base = prev
		components.Clear()
	})
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	base = slog.New(handler)
	components.Clear()

	first := Component(CompBoard)
	if first == nil || first != Component(" "+CompBoard+" ") {
		t.Fatal("component logger should be built once per name")
	}
	if Component("") != base {
		t.Fatal("empty component should return the base logger")
	}
	Info(context.Background(), CompBoard, "board.refresh", slog.String("status", "OK"))
	line := drain(t, aw, buf)
	for _, want := range []string{"component=board", "event=board.refresh", "status=ok"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}
