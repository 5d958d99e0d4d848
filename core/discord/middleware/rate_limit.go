package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists interaction kinds (interaction.KindCommand, KindComponent) that bypass the limit.
	Exclude map[string]struct{}
	// OnLimited builds the response for a throttled user; defaults to an ephemeral notice.
	OnLimited interaction.HandlerFunc
	// Now is the clock; tests inject a fake one.
	Now func() time.Time
}

// RateLimit enforces a minimum interval between interactions of the same user.
func RateLimit(opts RateLimitOptions) interaction.MiddlewareFunc {
	var (
		lastSeen   = make(map[string]time.Time)
		lastSeenMu sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	onLimited := opts.OnLimited
	if onLimited == nil {
		onLimited = func(context.Context, *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
			return interaction.Ephemeral("You're going too fast, try again in a moment."), nil
		}
	}
	return func(next interaction.HandlerFunc) interaction.HandlerFunc {
		return func(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
			user := interaction.UserID(i)
			if user == "" || opts.Interval <= 0 {
				return next(ctx, i)
			}
			if _, skip := opts.Exclude[interaction.Kind(i)]; skip {
				return next(ctx, i)
			}

			t := now()
			lastSeenMu.Lock()
			if last, ok := lastSeen[user]; ok && t.Sub(last) < opts.Interval {
				lastSeenMu.Unlock()
				logger.Warn(ctx, logger.CompDC, "dc.rate_limit",
					slog.String("status", "rate_limited"),
					slog.Bool("rate_limited", true),
				)
				return onLimited(ctx, i)
			}
			lastSeen[user] = t
			// Drop entries that can no longer throttle anyone.
			for id, seen := range lastSeen {
				if t.Sub(seen) >= opts.Interval {
					delete(lastSeen, id)
				}
			}
			lastSeenMu.Unlock()
			return next(ctx, i)
		}
	}
}
