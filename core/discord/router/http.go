package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// GenericFailure is shown to the user when a handler fails unexpectedly.
const GenericFailure = "Something went wrong"

// ServeHTTP decodes a verified interaction body and writes the immediate response.
// It must sit behind the signature verifier.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var i discordgo.Interaction
	if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
		logger.Warn(r.Context(), logger.CompDC, "interaction.decode",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		writeJSON(r.Context(), w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	ctx := withInteraction(r.Context(), &i)
	resp, err := rt.Dispatch(ctx, &i)
	switch {
	case errors.Is(err, ErrUnknownInteraction):
		logger.Warn(ctx, logger.CompDC, "interaction.unknown",
			slog.String("status", "skip"),
			slog.Int("type", int(i.Type)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unknown type"})
		return
	case err != nil:
		// The summary line already carries the error; answer so the client
		// shows a message instead of "interaction failed".
		resp = interaction.Ephemeral(GenericFailure)
	case resp == nil:
		logger.Error(ctx, logger.CompDC, "interaction.empty_response", slog.String("status", "fail"))
		resp = interaction.Ephemeral(GenericFailure)
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// withInteraction attaches the interaction id as rid plus its identifiers.
func withInteraction(ctx context.Context, i *discordgo.Interaction) context.Context {
	if i.ID != "" {
		ctx = logger.WithRID(ctx, i.ID)
	}
	return logger.WithInteractionMeta(ctx, logger.InteractionMeta{
		InteractionID: i.ID,
		Type:          interaction.Kind(i),
		GuildID:       i.GuildID,
		UserID:        interaction.UserID(i),
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error(ctx, logger.CompDC, "response.encode", slog.String("err", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
