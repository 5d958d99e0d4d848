// Package board keeps one bot-owned message in a guild channel showing the
// latest standings image. Channel and message ids are memoized in a kv.Store
// so restarts edit the same message instead of posting a new one.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/kv"
	"github.com/yarumotors/bot/core/logger"
)

// KV keys holding the memoized ids.
const (
	KeyChannel = "yarumotors_channel"
	KeyMessage = "yarumotors_message"
)

// ChannelTopic is set on a channel the bot creates.
const ChannelTopic = "Automated results from Yarumotors bot"

// ErrNoImageBase is returned by Refresh when no image base URL is configured.
var ErrNoImageBase = errors.New("board: image base url is not configured")

// ChannelAPI is the subset of *discordgo.Session the board needs.
type ChannelAPI interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Options configures a Board.
type Options struct {
	GuildID      string
	ChannelName  string
	ImageBaseURL string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Board manages the results message.
type Board struct {
	api   ChannelAPI
	store kv.Store
	opts  Options

	// serializes Refresh so cron and the update hook never race on first creation
	mu sync.Mutex
}

// New returns a Board.
func New(api ChannelAPI, store kv.Store, opts Options) *Board {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Board{api: api, store: store, opts: opts}
}

// EnsureChannel returns the memoized channel id, finding the channel by name
// or creating it on first use.
func (b *Board) EnsureChannel(ctx context.Context) (string, error) {
	if id, ok, err := b.store.Get(ctx, KeyChannel); err != nil {
		return "", fmt.Errorf("board: read channel id: %w", err)
	} else if ok && id != "" {
		return id, nil
	}

	channels, err := b.api.GuildChannels(b.opts.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("board: list channels: %w", err)
	}
	var id string
	for _, c := range channels {
		if c != nil && c.Name == b.opts.ChannelName {
			id = c.ID
			break
		}
	}
	if id == "" {
		created, err := b.api.GuildChannelCreateComplex(b.opts.GuildID, discordgo.GuildChannelCreateData{
			Name:  b.opts.ChannelName,
			Type:  discordgo.ChannelTypeGuildText,
			Topic: ChannelTopic,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("board: create channel: %w", err)
		}
		id = created.ID
		logger.Info(ctx, logger.CompBoard, "board.channel_created",
			slog.String("channel_id", id),
			slog.String("name", b.opts.ChannelName),
		)
	}
	if err := b.store.Put(ctx, KeyChannel, id); err != nil {
		return "", fmt.Errorf("board: store channel id: %w", err)
	}
	return id, nil
}

// EnsureMessage returns the memoized message id, posting embed on first use.
func (b *Board) EnsureMessage(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	if id, ok, err := b.store.Get(ctx, KeyMessage); err != nil {
		return "", fmt.Errorf("board: read message id: %w", err)
	} else if ok && id != "" {
		return id, nil
	}

	msg, err := b.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("board: post message: %w", err)
	}
	if err := b.store.Put(ctx, KeyMessage, msg.ID); err != nil {
		return "", fmt.Errorf("board: store message id: %w", err)
	}
	logger.Info(ctx, logger.CompBoard, "board.message_created",
		slog.String("channel_id", channelID),
		slog.String("message_id", msg.ID),
	)
	return msg.ID, nil
}

// Update edits the memoized message. It does nothing until both ids exist.
func (b *Board) Update(ctx context.Context, embed *discordgo.MessageEmbed) error {
	channelID, okC, err := b.store.Get(ctx, KeyChannel)
	if err != nil {
		return fmt.Errorf("board: read channel id: %w", err)
	}
	messageID, okM, err := b.store.Get(ctx, KeyMessage)
	if err != nil {
		return fmt.Errorf("board: read message id: %w", err)
	}
	if !okC || !okM || channelID == "" || messageID == "" {
		logger.Debug(ctx, logger.CompBoard, "board.update_skipped",
			slog.Bool("has_channel", okC),
			slog.Bool("has_message", okM),
		)
		return nil
	}
	if _, err := b.api.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("board: edit message: %w", err)
	}
	return nil
}

// Embed renders the standings card. The image URL carries a version query so
// Discord's media proxy fetches the regenerated file.
func (b *Board) Embed() *discordgo.MessageEmbed {
	now := b.opts.Now().UTC()
	return &discordgo.MessageEmbed{
		Title:     "Driver standings",
		Color:     0xE10600,
		Image:     &discordgo.MessageEmbedImage{URL: b.opts.ImageBaseURL + "/standings/drivers.png?v=" + strconv.FormatInt(now.Unix(), 10)},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Yarumotors"},
		Timestamp: now.Format(time.RFC3339),
	}
}

// Refresh ensures the channel and message exist and points them at the
// current standings image.
func (b *Board) Refresh(ctx context.Context) error {
	if b.opts.ImageBaseURL == "" {
		return ErrNoImageBase
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	channelID, err := b.EnsureChannel(ctx)
	if err != nil {
		return err
	}
	embed := b.Embed()
	if _, err := b.EnsureMessage(ctx, channelID, embed); err != nil {
		return err
	}
	if err := b.Update(ctx, embed); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompBoard, "board.refreshed",
		slog.String("status", "ok"),
		slog.String("channel_id", channelID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
