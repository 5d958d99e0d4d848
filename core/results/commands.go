// Package results wires the slash commands and the results wizard into a
// discord.Registry.
package results

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/bootstrap"
	"github.com/yarumotors/bot/core/discord"
	"github.com/yarumotors/bot/core/discord/commands"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/results/media"
	"github.com/yarumotors/bot/core/results/wizard"
	"github.com/yarumotors/bot/core/storage"
)

// Command names.
const (
	CmdPing    = "ping"
	CmdResults = "results"
)

var catalog = []struct{ name, description string }{
	{CmdPing, "Check the bot's latency"},
	{CmdResults, "Browse race weekend results"},
}

// ApplicationCommands is the registration payload of this feature. It needs
// none of the runtime collaborators Register takes.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, &discordgo.ApplicationCommand{
			Name:        c.name,
			Type:        discordgo.ChatApplicationCommand,
			Description: c.description,
		})
	}
	return out
}

// Deps are the collaborators of the results feature.
type Deps struct {
	Calendar  wizard.EventLookup
	Store     storage.Store
	Scheduler media.Scheduler
	Deliverer media.Deliverer

	FirstYear int
	LastYear  int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register adds the ping and results commands plus the wizard components.
func Register(reg *discord.Registry, deps Deps) error {
	if reg == nil {
		return fmt.Errorf("results: nil registry")
	}
	if deps.Calendar == nil || deps.Store == nil || deps.Scheduler == nil || deps.Deliverer == nil {
		return fmt.Errorf("results: calendar, store, scheduler and deliverer are required")
	}

	handlers := map[string]interaction.HandlerFunc{
		CmdPing:    Ping(deps.Now),
		CmdResults: StartWizard(Years(deps.FirstYear, deps.LastYear)),
	}
	for _, c := range catalog {
		reg.RegisterCommand(c.name, commands.Command{Description: c.description, Handler: handlers[c.name]})
	}

	resolver := wizard.New(deps.Calendar, media.New(deps.Store, deps.Scheduler, deps.Deliverer))
	for _, key := range []string{wizard.KeyYear, wizard.KeyEvent, wizard.KeyIdentifier} {
		if err := reg.RegisterComponent(key, resolver.Handle); err != nil {
			return fmt.Errorf("results: %w", err)
		}
	}
	return nil
}

// Ping reports the time elapsed since the interaction was created, as encoded
// in its snowflake id.
func Ping(now func() time.Time) interaction.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(_ context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
		created, err := discordgo.SnowflakeTimestamp(i.ID)
		if err != nil {
			return nil, fmt.Errorf("ping: decode interaction id %q: %w", i.ID, err)
		}
		latency := now().Sub(created).Milliseconds()
		return interaction.Message(fmt.Sprintf("Pong! Latency: %dms", latency)), nil
	}
}

// StartWizard opens the results wizard with the year menu.
func StartWizard(years []string) interaction.HandlerFunc {
	return func(context.Context, *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
		rows, err := wizard.Start(years)
		if err != nil {
			return nil, err
		}
		return interaction.Ephemeral("Select a season", rows...), nil
	}
}

// Years lists first..last newest first.
func Years(first, last int) []string {
	if last < first {
		return nil
	}
	out := make([]string, 0, last-first+1)
	for y := last; y >= first; y-- {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

// Module adapts Register to the bootstrap module hook, reading the season
// range from config and using the shared store, queue and follow-up client.
func Module(cal wizard.EventLookup) bootstrap.Module {
	return bootstrap.ModuleFunc(func(_ context.Context, reg *discord.Registry, deps bootstrap.Deps) error {
		if deps.Config == nil {
			return fmt.Errorf("results: nil config")
		}
		d := Deps{
			Calendar:  cal,
			Store:     deps.Storage,
			FirstYear: deps.Config.Wizard.FirstYear,
			LastYear:  deps.Config.Wizard.LastYear,
		}
		// Typed nils must not reach the interface fields.
		if deps.Dispatcher != nil {
			d.Scheduler = deps.Dispatcher
		}
		if deps.Followup != nil {
			d.Deliverer = deps.Followup
		}
		return Register(reg, d)
	})
}
