package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// PanicError carries a recovered handler panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code is used by the router to label the failure.
func (e *PanicError) Code() string { return "panic" }

// Recover turns panics in handlers into a PanicError so the request is still answered.
func Recover(next interaction.HandlerFunc) interaction.HandlerFunc {
	return func(ctx context.Context, i *discordgo.Interaction) (resp *discordgo.InteractionResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, logger.CompDC, "dc.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				resp, err = nil, &PanicError{Value: r}
			}
		}()
		return next(ctx, i)
	}
}
