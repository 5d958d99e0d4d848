// Package wizard drives the three step results selection: season, grand prix,
// session. All wizard state travels in component custom ids; nothing is kept
// between interactions.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/life4/genesis/slices"

	"github.com/yarumotors/bot/core/discord/components"
	"github.com/yarumotors/bot/core/discord/format"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
	"github.com/yarumotors/bot/core/results/selection"
)

// EventLookup lists the grands prix of a season.
type EventLookup interface {
	Lookup(year string) []string
}

// Terminal handles the completed selection.
type Terminal interface {
	Resolve(ctx context.Context, i *discordgo.Interaction, sel selection.Triple) (*discordgo.InteractionResponse, error)
}

// Resolver turns one select menu activation into the next wizard message.
type Resolver struct {
	events   EventLookup
	terminal Terminal
}

// New returns a Resolver backed by the given calendar and terminal step.
func New(events EventLookup, terminal Terminal) *Resolver {
	return &Resolver{events: events, terminal: terminal}
}

// Start builds the year menu, newest season first.
func Start(years []string) ([]discordgo.MessageComponent, error) {
	token, err := Encode(Initial{})
	if err != nil {
		return nil, err
	}
	return components.SelectRow(token, "Select a season", components.Options(years...)), nil
}

// Handle is the component handler registered for every wizard key.
func (r *Resolver) Handle(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	data, ok := interaction.ComponentData(i)
	if !ok {
		return nil, interaction.ErrUnknownInteraction
	}
	step, err := Decode(data.CustomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interaction.ErrUnknownInteraction, err)
	}
	if len(data.Values) == 0 || strings.TrimSpace(data.Values[0]) == "" {
		return nil, fmt.Errorf("%w: %s carries no selected value", interaction.ErrUnknownInteraction, data.CustomID)
	}
	return r.Advance(ctx, step, strings.TrimSpace(data.Values[0]), i)
}

// Advance applies value to step. i is handed to the terminal step untouched.
func (r *Resolver) Advance(ctx context.Context, step Step, value string, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	switch s := step.(type) {
	case Initial:
		return r.yearChosen(ctx, value)
	case YearChosen:
		return r.eventChosen(s.Year, value)
	case EventChosen:
		session, ok := selection.ParseSession(value)
		if !ok {
			return nil, fmt.Errorf("%w: unknown session %q", interaction.ErrUnknownInteraction, value)
		}
		return r.terminal.Resolve(ctx, i, selection.Triple{Year: s.Year, Event: s.Event, Session: session})
	default:
		return nil, fmt.Errorf("%w: unexpected step %T", interaction.ErrUnknownInteraction, step)
	}
}

func (r *Resolver) yearChosen(ctx context.Context, year string) (*discordgo.InteractionResponse, error) {
	token, err := Encode(YearChosen{Year: year})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interaction.ErrUnknownInteraction, err)
	}
	events := r.Events(ctx, year)
	if len(events) == 0 {
		return interaction.Ephemeral(fmt.Sprintf("No grands prix found for %s", format.EscapeMarkdown(year))), nil
	}
	return interaction.Update(
		fmt.Sprintf("Season %s: select a grand prix", format.EscapeMarkdown(year)),
		components.SelectRow(token, "Select a grand prix", components.Options(events...)),
	), nil
}

func (r *Resolver) eventChosen(year, event string) (*discordgo.InteractionResponse, error) {
	token, err := Encode(EventChosen{Year: year, Event: event})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interaction.ErrUnknownInteraction, err)
	}
	sessions := make([]string, 0, len(selection.Sessions))
	for _, s := range selection.Sessions {
		sessions = append(sessions, string(s))
	}
	return interaction.Update(
		fmt.Sprintf("%s %s: select a session", format.EscapeMarkdown(event), format.EscapeMarkdown(year)),
		components.SelectRow(token, "Select a session", components.Options(sessions...)),
	), nil
}

// Events returns the distinct grands prix of year in calendar order, limited
// to what fits in one select menu. Names whose session token would exceed the
// custom id limit are skipped.
func (r *Resolver) Events(ctx context.Context, year string) []string {
	if r.events == nil {
		return nil
	}
	names := slices.Map(r.events.Lookup(year), strings.TrimSpace)
	names = slices.Filter(names, func(name string) bool { return name != "" })
	unique := slices.Uniq(names)
	out := make([]string, 0, len(unique))
	var skipped []string
	for _, name := range unique {
		if _, err := Encode(EventChosen{Year: year, Event: name}); err != nil {
			skipped = append(skipped, name)
			continue
		}
		out = append(out, name)
	}
	if len(skipped) > 0 {
		names, _ := logger.SummarizeStrings(skipped, 5)
		logger.Warn(ctx, logger.CompResults, "wizard.events_skipped",
			slog.String("year", year),
			slog.String("events", names),
		)
	}
	if len(out) > components.MaxSelectOptions {
		logger.Warn(ctx, logger.CompResults, "wizard.events_truncated",
			slog.String("year", year),
			slog.Int("total", len(out)),
			slog.Int("kept", components.MaxSelectOptions),
		)
		out = out[:components.MaxSelectOptions]
	}
	return out
}
