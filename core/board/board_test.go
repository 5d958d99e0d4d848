package board

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/kv"
)

type apiStub struct {
	channels []*discordgo.Channel
	created  []discordgo.GuildChannelCreateData
	sent     []*discordgo.MessageEmbed
	edits    []string
	editErr  error
}

func (a *apiStub) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return a.channels, nil
}

func (a *apiStub) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	a.created = append(a.created, data)
	return &discordgo.Channel{ID: "new-chan", Name: data.Name}, nil
}

func (a *apiStub) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	a.sent = append(a.sent, embed)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func (a *apiStub) ChannelMessageEditEmbed(channelID, messageID string, _ *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if a.editErr != nil {
		return nil, a.editErr
	}
	a.edits = append(a.edits, channelID+"/"+messageID)
	return &discordgo.Message{ID: messageID}, nil
}

func testOptions() Options {
	return Options{
		GuildID:      "guild",
		ChannelName:  "yarumotors",
		ImageBaseURL: "https://cdn.example",
		Now:          func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func TestEnsureChannelReusesExisting(t *testing.T) {
	api := &apiStub{channels: []*discordgo.Channel{{ID: "1", Name: "general"}, {ID: "2", Name: "yarumotors"}}}
	store := kv.NewMemory()
	b := New(api, store, testOptions())

	id, err := b.EnsureChannel(context.Background())
	if err != nil || id != "2" {
		t.Fatalf("EnsureChannel = %q, %v", id, err)
	}
	if len(api.created) != 0 {
		t.Fatal("channel created although one exists")
	}
	if cached, ok, _ := store.Get(context.Background(), KeyChannel); !ok || cached != "2" {
		t.Fatalf("cached = %q %v", cached, ok)
	}
}

func TestEnsureChannelCreatesMissing(t *testing.T) {
	api := &apiStub{}
	b := New(api, kv.NewMemory(), testOptions())

	id, err := b.EnsureChannel(context.Background())
	if err != nil || id != "new-chan" {
		t.Fatalf("EnsureChannel = %q, %v", id, err)
	}
	if len(api.created) != 1 {
		t.Fatalf("created = %d", len(api.created))
	}
	c := api.created[0]
	if c.Name != "yarumotors" || c.Type != discordgo.ChannelTypeGuildText || c.Topic != ChannelTopic {
		t.Fatalf("create data = %+v", c)
	}
}

func TestUpdateIsNoopWithoutIDs(t *testing.T) {
	api := &apiStub{}
	store := kv.NewMemory()
	_ = store.Put(context.Background(), KeyChannel, "c")
	b := New(api, store, testOptions())

	if err := b.Update(context.Background(), b.Embed()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(api.edits) != 0 {
		t.Fatal("edited without a message id")
	}
}

func TestRefreshCreatesThenEdits(t *testing.T) {
	api := &apiStub{}
	b := New(api, kv.NewMemory(), testOptions())
	ctx := context.Background()

	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if len(api.created) != 1 || len(api.sent) != 1 {
		t.Fatalf("created = %d sent = %d, want 1 each", len(api.created), len(api.sent))
	}
	if len(api.edits) != 2 || api.edits[1] != "new-chan/msg-1" {
		t.Fatalf("edits = %v", api.edits)
	}
	if got := api.sent[0].Image.URL; got != "https://cdn.example/standings/drivers.png?v=1700000000" {
		t.Fatalf("image url = %s", got)
	}
}

func TestRefreshErrors(t *testing.T) {
	opts := testOptions()
	opts.ImageBaseURL = ""
	if err := New(&apiStub{}, kv.NewMemory(), opts).Refresh(context.Background()); !errors.Is(err, ErrNoImageBase) {
		t.Fatalf("err = %v", err)
	}

	api := &apiStub{editErr: errors.New("403")}
	if err := New(api, kv.NewMemory(), testOptions()).Refresh(context.Background()); err == nil {
		t.Fatal("expected edit error")
	}
}

type refresherStub struct {
	calls int
	err   error
}

func (r *refresherStub) Refresh(context.Context) error {
	r.calls++
	return r.err
}

func TestUpdateHandlerAuth(t *testing.T) {
	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, "Unauthorized"},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized, "Unauthorized"},
		{"ok", "Bearer s3cret", http.StatusOK, `"status":"ok"`},
		{"ok lowercase scheme", "bearer s3cret", http.StatusOK, `"status":"ok"`},
	}
	for _, tc := range cases {
		ref := &refresherStub{}
		req := httptest.NewRequest(http.MethodPost, "/update", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		UpdateHandler("s3cret", ref).ServeHTTP(rec, req)

		if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.body) {
			t.Errorf("%s: %d %q", tc.name, rec.Code, rec.Body.String())
		}
		wantCalls := 0
		if tc.status == http.StatusOK {
			wantCalls = 1
		}
		if ref.calls != wantCalls {
			t.Errorf("%s: refresh calls = %d", tc.name, ref.calls)
		}
	}
}

func TestUpdateHandlerRefreshFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	UpdateHandler("s3cret", &refresherStub{err: errors.New("down")}).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("not a cron", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected parse error")
	}
	s, err := NewScheduler("*/5 * * * *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start()
	s.Stop(context.Background())
}
