// Command register publishes the bot's slash commands. Commands go to the
// guild in discord.guild_id when set, globally otherwise.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	corecmd "github.com/yarumotors/bot/core/cmd"
	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/discord"
	"github.com/yarumotors/bot/core/logger"
	"github.com/yarumotors/bot/core/results"
)

func main() {
	corecmd.LoadEnv()
	cfg, err := coreconfig.LoadForRegistration(corecmd.ConfigPath("", ""))
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatal(err)
	}

	code := 0
	if err := run(cfg); err != nil {
		logger.Error(context.Background(), logger.CompDCWire, "register.failed",
			slog.String("err", err.Error()),
		)
		code = 1
	}
	_ = logger.Shutdown()
	os.Exit(code)
}

func run(cfg *coreconfig.Config) error {
	session, err := discord.NewSession(cfg.Discord)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	start := time.Now()
	created, err := discord.PublishCommands(ctx, session, cfg.Discord.ApplicationID, cfg.Discord.GuildID, results.ApplicationCommands())
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompDCWire, "register.done",
		slog.Int("count", len(created)),
		slog.String("guild_id", cfg.Discord.GuildID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
