package wizard

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/components"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/results/selection"
)

type calendarStub map[string][]string

func (c calendarStub) Lookup(year string) []string { return c[year] }

type terminalStub struct {
	got   []selection.Triple
	reply *discordgo.InteractionResponse
}

func (t *terminalStub) Resolve(_ context.Context, _ *discordgo.Interaction, sel selection.Triple) (*discordgo.InteractionResponse, error) {
	t.got = append(t.got, sel)
	return t.reply, nil
}

func selectInteraction(customID string, values ...string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:   "1",
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.SelectMenuComponent,
			Values:        values,
		},
	}
}

func menuOf(t *testing.T, resp *discordgo.InteractionResponse) discordgo.SelectMenu {
	t.Helper()
	if resp == nil || resp.Data == nil {
		t.Fatalf("empty response: %#v", resp)
	}
	menu, ok := components.FirstSelect(resp.Data.Components)
	if !ok {
		t.Fatalf("response has no select menu: %#v", resp.Data.Components)
	}
	return menu
}

func optionValues(menu discordgo.SelectMenu) []string {
	out := make([]string, 0, len(menu.Options))
	for _, o := range menu.Options {
		out = append(out, o.Value)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestYearStepDedupesEvents(t *testing.T) {
	r := New(calendarStub{"2021": {"A", "B", "A"}}, &terminalStub{})

	resp, err := r.Handle(context.Background(), selectInteraction("select_year", " 2021 "))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Type != discordgo.InteractionResponseUpdateMessage {
		t.Fatalf("response type = %v, want UpdateMessage", resp.Type)
	}
	menu := menuOf(t, resp)
	if menu.CustomID != "select_gp:2021" {
		t.Fatalf("custom id = %q", menu.CustomID)
	}
	if got := optionValues(menu); !equal(got, []string{"A", "B"}) {
		t.Fatalf("options = %v", got)
	}
}

func TestEventsIgnoreSurroundingWhitespace(t *testing.T) {
	r := New(calendarStub{"2021": {"Monaco", " Monaco", "Monaco\t", "  ", "C", "A", "C", "D"}}, &terminalStub{})
	got := r.Events(context.Background(), "2021")
	if !equal(got, []string{"Monaco", "C", "A", "D"}) {
		t.Fatalf("Events = %q", got)
	}
}

func TestYearStepCapsOptions(t *testing.T) {
	events := make([]string, 0, 30)
	for n := range 30 {
		events = append(events, "GP"+strconv.Itoa(n))
	}
	r := New(calendarStub{"2022": events}, &terminalStub{})

	resp, err := r.Handle(context.Background(), selectInteraction("select_year", "2022"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := optionValues(menuOf(t, resp))
	if len(got) != components.MaxSelectOptions || got[0] != "GP0" || got[24] != "GP24" {
		t.Fatalf("options = %v", got)
	}
}

func TestYearWithoutEvents(t *testing.T) {
	r := New(calendarStub{}, &terminalStub{})

	resp, err := r.Handle(context.Background(), selectInteraction("select_year", "1999"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Fatalf("response type = %v", resp.Type)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatal("expected ephemeral reply")
	}
	if resp.Data.Content != "No grands prix found for 1999" {
		t.Fatalf("content = %q", resp.Data.Content)
	}
}

func TestEventStepOffersSessions(t *testing.T) {
	r := New(calendarStub{}, &terminalStub{})

	resp, err := r.Handle(context.Background(), selectInteraction("select_gp:2021", "Monaco"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	menu := menuOf(t, resp)
	if menu.CustomID != "select_identifier:2021:Monaco" {
		t.Fatalf("custom id = %q", menu.CustomID)
	}
	if got := optionValues(menu); !equal(got, []string{"Qualifying", "Sprint", "Race"}) {
		t.Fatalf("options = %v", got)
	}
}

func TestSessionStepReachesTerminal(t *testing.T) {
	term := &terminalStub{reply: interaction.Update("done", nil)}
	r := New(calendarStub{}, term)

	resp, err := r.Handle(context.Background(), selectInteraction("select_identifier:2021:Emilia: Romagna", "race"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp != term.reply {
		t.Fatal("terminal response not returned")
	}
	want := selection.Triple{Year: "2021", Event: "Emilia: Romagna", Session: selection.Race}
	if len(term.got) != 1 || term.got[0] != want {
		t.Fatalf("terminal got %v, want %v", term.got, want)
	}
}

func TestUnknownSelections(t *testing.T) {
	r := New(calendarStub{}, &terminalStub{})
	cases := []*discordgo.Interaction{
		selectInteraction("select_identifier:2021:Monaco", "Practice 1"),
		selectInteraction("select_gp:2021"),
		selectInteraction("select_gp:2021", "   "),
		selectInteraction("select_gp:2021:extra", "Monaco"),
		selectInteraction("select_year", "20:21"),
		{Type: discordgo.InteractionApplicationCommand, Data: discordgo.ApplicationCommandInteractionData{Name: "results"}},
	}
	for idx, i := range cases {
		if _, err := r.Handle(context.Background(), i); !errors.Is(err, interaction.ErrUnknownInteraction) {
			t.Errorf("case %d: err = %v, want ErrUnknownInteraction", idx, err)
		}
	}
}

func TestStartBuildsYearMenu(t *testing.T) {
	rows, err := Start([]string{"2025", "2024"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	menu, ok := components.FirstSelect(rows)
	if !ok || menu.CustomID != "select_year" {
		t.Fatalf("menu = %#v", menu)
	}
	if got := optionValues(menu); !equal(got, []string{"2025", "2024"}) {
		t.Fatalf("options = %v", got)
	}
}
