package app

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/bootstrap"
	"github.com/yarumotors/bot/core/calendar"
	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/kv"
	"github.com/yarumotors/bot/core/results"
	"github.com/yarumotors/bot/core/storage"
)

type channelStub struct{ edits int }

func (c *channelStub) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return []*discordgo.Channel{{ID: "c1", Name: "yarumotors"}}, nil
}

func (c *channelStub) GuildChannelCreateComplex(string, discordgo.GuildChannelCreateData, ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "c2"}, nil
}

func (c *channelStub) ChannelMessageSendEmbed(string, *discordgo.MessageEmbed, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "m1"}, nil
}

func (c *channelStub) ChannelMessageEditEmbed(_, messageID string, _ *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.edits++
	return &discordgo.Message{ID: messageID}, nil
}

func newTestApp(t *testing.T) (*App, ed25519.PrivateKey, *channelStub) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &coreconfig.Config{
		Discord: coreconfig.DiscordConfig{PublicKey: hex.EncodeToString(pub), GuildID: "g1"},
		Storage: coreconfig.StorageConfig{Driver: coreconfig.StorageMemory},
		Board:   coreconfig.BoardConfig{APIToken: "tok", ImageBaseURL: "https://cdn.example"},
	}
	if err := coreconfig.Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cfg.HTTP.Port = 0
	api := &channelStub{}
	a, err := New(context.Background(), Options{
		Config:  cfg,
		Infra:   &bootstrap.Result{KV: kv.NewMemory(), Storage: storage.NewMemory()},
		Modules: bootstrap.Modules{results.Module(calendar.Default())},
		Session: api,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, priv, api
}

func signed(priv ed25519.PrivateKey, body string) *http.Request {
	ts := "1700000000"
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(ed25519.Sign(priv, []byte(ts+body))))
	req.Header.Set("X-Signature-Timestamp", ts)
	return req
}

func TestSignedPingEndToEnd(t *testing.T) {
	a, priv, _ := newTestApp(t)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, signed(priv, `{"id":"1","type":1}`))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"type":1}` {
		t.Fatalf("ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestResultsCommandEndToEnd(t *testing.T) {
	a, priv, _ := newTestApp(t)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, signed(priv, `{"id":"2","type":2,"data":{"id":"9","name":"results","type":1}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Type int `json:"type"`
		Data struct {
			Flags      int               `json:"flags"`
			Components []json.RawMessage `json:"components"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != 4 || resp.Data.Flags != int(discordgo.MessageFlagsEphemeral) || len(resp.Data.Components) != 1 {
		t.Fatalf("response = %s", rec.Body.String())
	}
}

func TestUpdateHookRefreshesBoard(t *testing.T) {
	a, _, api := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || api.edits != 1 {
		t.Fatalf("update = %d %q edits = %d", rec.Code, rec.Body.String(), api.edits)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
