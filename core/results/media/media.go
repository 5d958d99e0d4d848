// Package media answers a completed wizard selection with the stored result
// image, delivered as a follow-up after the interaction is acknowledged.
package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/followup"
	"github.com/yarumotors/bot/core/discord/format"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/discord/sender"
	"github.com/yarumotors/bot/core/logger"
	"github.com/yarumotors/bot/core/results/selection"
	"github.com/yarumotors/bot/core/storage"
)

const contentType = "image/png"

// Scheduler runs jobs after the response has been written.
type Scheduler interface {
	Enqueue(ctx context.Context, action, endpoint string, run sender.RunFunc) error
}

// Deliverer posts a follow-up through the interaction webhook.
type Deliverer interface {
	Send(ctx context.Context, appID, token string, msg followup.Message) error
}

// Resolver looks up result images and schedules their delivery.
type Resolver struct {
	store   storage.Store
	sched   Scheduler
	deliver Deliverer
}

// New wires a Resolver.
func New(store storage.Store, sched Scheduler, deliver Deliverer) *Resolver {
	return &Resolver{store: store, sched: sched, deliver: deliver}
}

// Resolve fetches the image for sel. A missing image is answered ephemerally.
// A present one is acknowledged at once by editing the wizard message, and the
// upload happens in the background with the interaction's own credentials.
func (r *Resolver) Resolve(ctx context.Context, i *discordgo.Interaction, sel selection.Triple) (*discordgo.InteractionResponse, error) {
	key := sel.Key()
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if !found {
		logger.Info(ctx, logger.CompResults, "media.not_found",
			slog.String("key", key),
			slog.String("outcome", "not_found"),
		)
		return interaction.Ephemeral(fmt.Sprintf("No data found for %s.", format.EscapeMarkdown(sel.String()))), nil
	}

	appID, token := i.AppID, i.Token
	msg := Result(sel, data)
	run := func(jobCtx context.Context) error {
		return r.deliver.Send(jobCtx, appID, token, msg)
	}
	endpoint := "webhooks/" + appID + "/" + token
	if err := r.sched.Enqueue(ctx, "followup.result", endpoint, run); err != nil {
		// The acknowledgment still stands; the user just never gets the image.
		logger.Warn(ctx, logger.CompResults, "media.enqueue_failed",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
	}
	logger.Debug(ctx, logger.CompResults, "media.scheduled",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	return interaction.Update(fmt.Sprintf("Fetching %s results…", format.EscapeMarkdown(sel.String())), nil), nil
}

// Result builds the follow-up carrying the image for sel.
func Result(sel selection.Triple, data []byte) followup.Message {
	name := sel.FileName()
	return followup.Message{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "Result for " + sel.String(),
			Image: &discordgo.MessageEmbedImage{URL: "attachment://" + name},
		}},
		Files: []followup.File{{Name: name, ContentType: contentType, Data: data}},
	}
}
