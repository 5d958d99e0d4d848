// Package interaction defines the handler signature shared by every
// interaction endpoint and helpers to build the immediate responses.
package interaction

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrUnknownInteraction marks a request the bot does not know how to serve:
// an unsupported interaction type, an unregistered command or component, or a
// component token that does not decode. It is answered with 400.
var ErrUnknownInteraction = errors.New("unknown interaction")

// HandlerFunc produces the immediate response for an interaction.
type HandlerFunc func(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error)

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Interaction kinds used for logging and rate limit exclusions.
const (
	KindPing      = "ping"
	KindCommand   = "command"
	KindComponent = "component"
	KindOther     = "other"
)

// Kind classifies i into one of the Kind constants.
func Kind(i *discordgo.Interaction) string {
	if i == nil {
		return KindOther
	}
	switch i.Type {
	case discordgo.InteractionPing:
		return KindPing
	case discordgo.InteractionApplicationCommand:
		return KindCommand
	case discordgo.InteractionMessageComponent:
		return KindComponent
	}
	return KindOther
}

// UserID returns the invoking user's id. Guild interactions carry the user
// inside Member, direct messages carry it in User.
func UserID(i *discordgo.Interaction) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// CommandName returns the lowercased slash command name, or "" for other kinds.
func CommandName(i *discordgo.Interaction) string {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand || i.Data == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(i.ApplicationCommandData().Name))
}

// ComponentData returns the component payload when i is a component activation.
func ComponentData(i *discordgo.Interaction) (discordgo.MessageComponentInteractionData, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent || i.Data == nil {
		return discordgo.MessageComponentInteractionData{}, false
	}
	return i.MessageComponentData(), true
}

// ComponentKey returns the custom id prefix up to the first ':'.
func ComponentKey(customID string) string {
	key, _, _ := strings.Cut(customID, ":")
	return key
}

// Pong acknowledges a liveness probe.
func Pong() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
}

// Message replies with a plain channel message.
func Message(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
}

// Ephemeral replies with a message only the invoking user can see.
func Ephemeral(content string, components ...discordgo.MessageComponent) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}
}

// Update edits the message that carried the activated component. A nil
// components slice is replaced by an empty one so the old components are removed.
func Update(content string, components []discordgo.MessageComponent) *discordgo.InteractionResponse {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	}
}

// Chain applies middlewares so that the first one is outermost.
func Chain(h HandlerFunc, mws ...MiddlewareFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
