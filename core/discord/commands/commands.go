package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/interaction"
)

// Command represents a slash command with its handler, description, and metadata.
type Command struct {
	Handler     interaction.HandlerFunc
	Description string
	Options     []*discordgo.ApplicationCommandOption
	// Hidden commands are routable but not published by the registration tool.
	Hidden  bool
	Aliases []string
}
