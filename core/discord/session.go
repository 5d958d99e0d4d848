package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/buildinfo"
	"github.com/yarumotors/bot/core/config"
)

// NewSession returns a REST-only discordgo session authenticated with the bot
// token. The gateway is never opened; interactions arrive over HTTP.
func NewSession(cfg config.DiscordConfig) (*discordgo.Session, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	s.Client = BuildHTTPClient()
	s.UserAgent = buildinfo.UserAgent()
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 2
	return s, nil
}
