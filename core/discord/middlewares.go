package discord

import (
	"strings"
	"time"

	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/discord/middleware"
)

// DefaultMiddlewares builds the shared handler chain: recover, optional rate limit, logger.
func DefaultMiddlewares(cfg *coreconfig.Config) []interaction.MiddlewareFunc {
	mws := []interaction.MiddlewareFunc{middleware.Recover}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeKinds))
			for _, k := range cfg.RateLimit.ExcludeKinds {
				ex[strings.ToLower(k)] = struct{}{}
			}
			mws = append(mws, middleware.RateLimit(middleware.RateLimitOptions{
				Interval: interval,
				Exclude:  ex,
			}))
		}
	}

	return append(mws, middleware.Logger)
}
