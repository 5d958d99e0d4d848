// Package verify authenticates inbound interaction requests.
package verify

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/logger"
)

// Header names carrying the detached signature.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ParsePublicKey decodes the hex application public key.
func ParsePublicKey(raw string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("verify: decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("verify: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}

// Middleware rejects requests whose Ed25519 signature over timestamp||body
// does not verify. The raw body is checked byte for byte and handed to next
// untouched; next never runs for a rejected request.
func Middleware(key ed25519.PublicKey, maxBodyBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			if !discordgo.VerifyInteraction(r, key) {
				logger.Warn(r.Context(), logger.CompHTTP, "signature.reject",
					slog.String("status", "unauthorized"),
					slog.Bool("has_signature", r.Header.Get(HeaderSignature) != ""),
					slog.Bool("has_timestamp", r.Header.Get(HeaderTimestamp) != ""),
				)
				http.Error(w, "invalid request signature", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
