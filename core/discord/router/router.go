// Package router classifies verified interactions and dispatches them to the
// handlers held by a discord.Registry.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// ErrUnknownInteraction is returned by Dispatch for anything it cannot route.
var ErrUnknownInteraction = interaction.ErrUnknownInteraction

// Options configures the router.
type Options struct {
	// Middlewares wrap every command and component handler; the first is outermost.
	Middlewares []interaction.MiddlewareFunc
}

// Router dispatches interactions by type.
type Router struct {
	reg *discord.Registry
	mws []interaction.MiddlewareFunc
}

// New returns a Router over reg.
func New(reg *discord.Registry, opts Options) *Router {
	if reg == nil {
		reg = discord.NewRegistry()
	}
	logger.Info(context.Background(), logger.CompDCWire, "dc.wire",
		slog.String("status", "ok"),
		slog.Int("count", len(reg.Commands())),
		slog.Int("components", len(reg.ListComponents())),
		slog.Int("middlewares", len(opts.Middlewares)),
	)
	return &Router{reg: reg, mws: opts.Middlewares}
}

// Dispatch produces the immediate response for i.
func (rt *Router) Dispatch(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	if i == nil {
		return nil, fmt.Errorf("%w: empty interaction", ErrUnknownInteraction)
	}
	switch i.Type {
	case discordgo.InteractionPing:
		return interaction.Pong(), nil
	case discordgo.InteractionApplicationCommand:
		return rt.dispatchCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		return rt.dispatchComponent(ctx, i)
	}
	return nil, fmt.Errorf("%w: type %d", ErrUnknownInteraction, i.Type)
}

func (rt *Router) dispatchCommand(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	name := interaction.CommandName(i)
	key, cmd, ok := rt.reg.LookupCommand(name)
	if !ok || cmd.Handler == nil {
		return nil, fmt.Errorf("%w: command %q", ErrUnknownInteraction, name)
	}
	h := interaction.Chain(cmd.Handler, rt.mws...)
	return handleWithSummary(ctx, "command."+normalizeHandlerName(key), time.Now(), func(ctx context.Context) (*discordgo.InteractionResponse, error) {
		return h(ctx, i)
	}, slog.String("command", key))
}

func (rt *Router) dispatchComponent(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	data, ok := interaction.ComponentData(i)
	if !ok || data.ComponentType != discordgo.SelectMenuComponent {
		return nil, fmt.Errorf("%w: component type %d", ErrUnknownInteraction, data.ComponentType)
	}
	key := interaction.ComponentKey(data.CustomID)
	handler, ok := rt.reg.GetComponent(key)
	if !ok || handler == nil {
		return nil, fmt.Errorf("%w: component %q", ErrUnknownInteraction, key)
	}
	h := interaction.Chain(handler, rt.mws...)
	return handleWithSummary(ctx, "component."+normalizeHandlerName(key), time.Now(), func(ctx context.Context) (*discordgo.InteractionResponse, error) {
		return h(ctx, i)
	}, slog.String("custom_id", logger.SanitizeLimit(data.CustomID, 100)))
}
