package board

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yarumotors/bot/core/logger"
)

// Refresher is implemented by *Board.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// UpdateHandler serves the hook the results pipeline calls after uploading new
// images. Callers authenticate with "Authorization: Bearer <token>".
func UpdateHandler(token string, board Refresher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}
		scheme, got, _ := strings.Cut(header, " ")
		if token == "" || !strings.EqualFold(scheme, "bearer") ||
			subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.Warn(ctx, logger.CompBoard, "board.update_rejected", slog.String("status", "unauthorized"))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := board.Refresh(ctx); err != nil {
			logger.Error(ctx, logger.CompBoard, "board.update",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			http.Error(w, "refresh failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
}
