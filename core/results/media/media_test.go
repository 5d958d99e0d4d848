package media

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/followup"
	"github.com/yarumotors/bot/core/discord/sender"
	"github.com/yarumotors/bot/core/results/selection"
	"github.com/yarumotors/bot/core/storage"
)

type queuedJob struct {
	action, endpoint string
	run              sender.RunFunc
}

type schedulerStub struct {
	jobs []queuedJob
	err  error
}

func (s *schedulerStub) Enqueue(_ context.Context, action, endpoint string, run sender.RunFunc) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, queuedJob{action: action, endpoint: endpoint, run: run})
	return nil
}

type sent struct {
	appID, token string
	msg          followup.Message
}

type delivererStub struct{ sent []sent }

func (d *delivererStub) Send(_ context.Context, appID, token string, msg followup.Message) error {
	d.sent = append(d.sent, sent{appID: appID, token: token, msg: msg})
	return nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("bucket unavailable")
}

var monaco = selection.Triple{Year: "2021", Event: "Monaco", Session: selection.Race}

func testInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{ID: "42", AppID: "app-1", Token: "tok-1"}
}

func TestResolveFoundSchedulesFollowup(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	store := storage.NewMemory()
	store.Put("2021/Monaco/race.png", png)
	sched := &schedulerStub{}
	deliver := &delivererStub{}
	r := New(store, sched, deliver)

	resp, err := r.Resolve(context.Background(), testInteraction(), monaco)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Type != discordgo.InteractionResponseUpdateMessage {
		t.Fatalf("response type = %v", resp.Type)
	}
	if resp.Data.Content != "Fetching Monaco Race 2021 results…" {
		t.Fatalf("content = %q", resp.Data.Content)
	}
	if resp.Data.Components == nil || len(resp.Data.Components) != 0 {
		t.Fatalf("components must be cleared, got %#v", resp.Data.Components)
	}
	if len(deliver.sent) != 0 {
		t.Fatal("follow-up sent before the job ran")
	}
	if len(sched.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(sched.jobs))
	}

	if err := sched.jobs[0].run(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	if len(deliver.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(deliver.sent))
	}
	got := deliver.sent[0]
	if got.appID != "app-1" || got.token != "tok-1" {
		t.Fatalf("credentials = %s/%s", got.appID, got.token)
	}
	if len(got.msg.Embeds) != 1 || got.msg.Embeds[0].Title != "Result for Monaco Race 2021" {
		t.Fatalf("embeds = %#v", got.msg.Embeds)
	}
	if got.msg.Embeds[0].Image == nil || got.msg.Embeds[0].Image.URL != "attachment://race.png" {
		t.Fatalf("embed image = %#v", got.msg.Embeds[0].Image)
	}
	if len(got.msg.Files) != 1 {
		t.Fatalf("files = %d", len(got.msg.Files))
	}
	f := got.msg.Files[0]
	if f.Name != "race.png" || f.ContentType != "image/png" || !bytes.Equal(f.Data, png) {
		t.Fatalf("file = %s %s %v", f.Name, f.ContentType, f.Data)
	}
}

func TestResolveNotFound(t *testing.T) {
	sched := &schedulerStub{}
	r := New(storage.NewMemory(), sched, &delivererStub{})

	resp, err := r.Resolve(context.Background(), testInteraction(), monaco)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatal("expected ephemeral reply")
	}
	if resp.Data.Content != "No data found for Monaco Race 2021." {
		t.Fatalf("content = %q", resp.Data.Content)
	}
	if len(sched.jobs) != 0 {
		t.Fatal("no background work expected")
	}
}

func TestResolveStoreError(t *testing.T) {
	r := New(failingStore{}, &schedulerStub{}, &delivererStub{})
	if _, err := r.Resolve(context.Background(), testInteraction(), monaco); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestResolveKeepsAckWhenQueueRejects(t *testing.T) {
	store := storage.NewMemory()
	store.Put("2021/Monaco/race.png", []byte("png"))
	r := New(store, &schedulerStub{err: sender.ErrQueueFull}, &delivererStub{})

	resp, err := r.Resolve(context.Background(), testInteraction(), monaco)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Type != discordgo.InteractionResponseUpdateMessage {
		t.Fatalf("response type = %v", resp.Type)
	}
}
