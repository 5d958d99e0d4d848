package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/logger"
)

// CommandOverwriter is the subset of *discordgo.Session used to publish commands.
type CommandOverwriter interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// PublishCommands replaces the application's commands with cmds.
// An empty guildID publishes global commands.
func PublishCommands(ctx context.Context, s CommandOverwriter, appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if len(cmds) == 0 {
		return nil, fmt.Errorf("discord: no commands to publish")
	}
	created, err := s.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		logger.Error(ctx, logger.CompDCWire, "register.commands.set_failed",
			slog.String("err", err.Error()),
			slog.Int("count", len(cmds)),
		)
		return nil, fmt.Errorf("discord: bulk overwrite commands: %w", err)
	}
	scope := "global"
	if guildID != "" {
		scope = "guild"
	}
	for _, c := range created {
		logger.Info(ctx, logger.CompDCWire, "register.command",
			slog.String("command", c.Name),
			slog.String("id", c.ID),
			slog.String("scope", scope),
		)
	}
	return created, nil
}
