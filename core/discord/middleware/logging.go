package middleware

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// Logger stores the Discord component logger in context and emits a sampled
// debug receipt line per interaction.
func Logger(next interaction.HandlerFunc) interaction.HandlerFunc {
	return func(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
		ctx = logger.WithLogger(ctx, logger.Component(logger.CompDC))

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("interaction_type", interaction.Kind(i)),
			}
			if name := interaction.CommandName(i); name != "" {
				attrs = append(attrs, slog.String("command", name))
			}
			if data, ok := interaction.ComponentData(i); ok {
				attrs = append(attrs, slog.String("custom_id", logger.SanitizeLimit(data.CustomID, 100)))
				if len(data.Values) > 0 {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(data.Values[0], 128)))
				}
			}
			if i.Locale != "" {
				attrs = append(attrs, slog.String("lang", string(i.Locale)))
			}
			logger.LogEvent(ctx, nil, slog.LevelDebug, "interaction.received", attrs...)
		}
		return next(ctx, i)
	}
}
