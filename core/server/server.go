// Package server exposes the bot's HTTP surface.
package server

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yarumotors/bot/core/discord/verify"
	"github.com/yarumotors/bot/core/logger"
)

// Liveness is the body served on GET /.
const Liveness = "Yarumotors bot is running"

// Routes configures the handler tree.
type Routes struct {
	// Interactions receives only requests whose signature verified.
	Interactions http.Handler
	PublicKey    ed25519.PublicKey
	MaxBodyBytes int64

	// Update serves POST /update; nil leaves the path unrouted.
	Update http.Handler

	RequestTimeout time.Duration
	ServiceName    string
}

// NewHandler builds the chi router. Unknown paths and wrong methods both
// answer 404 in plain text.
func NewHandler(rt Routes) (http.Handler, error) {
	if rt.Interactions == nil {
		return nil, errors.New("server: interactions handler is required")
	}
	if len(rt.PublicKey) != ed25519.PublicKeySize {
		return nil, errors.New("server: invalid public key")
	}
	if rt.RequestTimeout <= 0 {
		rt.RequestTimeout = 10 * time.Second
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, rt.ServiceName)
	})
	r.Use(Trace)
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(Timeout(rt.RequestTimeout))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Liveness))
	})
	r.With(verify.Middleware(rt.PublicKey, rt.MaxBodyBytes)).Method(http.MethodPost, "/interactions", rt.Interactions)
	if rt.Update != nil {
		r.Method(http.MethodPost, "/update", rt.Update)
	}
	return r, nil
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

// Server wraps http.Server with logged start and shutdown.
type Server struct {
	srv *http.Server
}

// New returns a Server listening on host:port.
func New(host string, port int, h http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.srv.Addr, err)
	}
	logger.Info(context.Background(), logger.CompHTTP, "http.listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
	)
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
