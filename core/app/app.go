// Package app owns every long-lived component of the bot and runs them until
// the context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/board"
	"github.com/yarumotors/bot/core/bootstrap"
	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/discord"
	"github.com/yarumotors/bot/core/discord/followup"
	"github.com/yarumotors/bot/core/discord/router"
	"github.com/yarumotors/bot/core/discord/sender"
	"github.com/yarumotors/bot/core/discord/verify"
	"github.com/yarumotors/bot/core/logger"
	"github.com/yarumotors/bot/core/server"
)

// Options controls the behaviour of New.
type Options struct {
	Config *coreconfig.Config
	Infra  *bootstrap.Result

	Registry *discord.Registry
	Modules  bootstrap.Modules

	// Session is used by the results board; built from discord.token when nil.
	Session board.ChannelAPI

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Dispatcher *sender.Dispatcher
	Registry   *discord.Registry
	Board      *board.Board
}

// App is the lifecycle object.
type App struct {
	cfg        *coreconfig.Config
	registry   *discord.Registry
	dispatcher *sender.Dispatcher
	board      *board.Board
	scheduler  *board.Scheduler
	handler    http.Handler
	server     *server.Server

	onStart func(ctx context.Context, rt Runtime) error
	onStop  func(ctx context.Context, rt Runtime) error
}

// New wires the registry, delivery queue, board and HTTP surface.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil || opts.Infra == nil {
		return nil, errors.New("app: config and infrastructure are required")
	}
	cfg := opts.Config

	key, err := verify.ParsePublicKey(cfg.Discord.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	reg := opts.Registry
	if reg == nil {
		reg = discord.NewRegistry()
	}
	dispatcher := sender.NewDispatcher(sender.Options{
		QueueSize:   cfg.Sender.QueueSize,
		Workers:     cfg.Sender.Workers,
		MaxDuration: time.Duration(cfg.Sender.MaxDurationMS) * time.Millisecond,
	})
	a := &App{
		cfg:        cfg,
		registry:   reg,
		dispatcher: dispatcher,
		onStart:    opts.OnStart,
		onStop:     opts.OnStop,
	}

	deps := bootstrap.Deps{
		Config:     cfg,
		KV:         opts.Infra.KV,
		Storage:    opts.Infra.Storage,
		Dispatcher: dispatcher,
		Followup:   followup.New(cfg.Discord.APIBase, time.Duration(cfg.HTTP.RequestTimeoutMS)*time.Millisecond),
	}
	if err := opts.Modules.RegisterAll(ctx, reg, deps); err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("app: register modules: %w", err)
	}

	if err := a.buildBoard(opts.Session, opts.Infra); err != nil {
		dispatcher.Close()
		return nil, err
	}

	rt := router.New(reg, router.Options{Middlewares: discord.DefaultMiddlewares(cfg)})
	routes := server.Routes{
		Interactions:   rt,
		PublicKey:      key,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RequestTimeout: time.Duration(cfg.HTTP.RequestTimeoutMS) * time.Millisecond,
		ServiceName:    cfg.Telemetry.ServiceName,
	}
	if a.board != nil && cfg.Board.APIToken != "" {
		routes.Update = board.UpdateHandler(cfg.Board.APIToken, a.board)
	}
	a.handler, err = server.NewHandler(routes)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}
	a.server = server.New(cfg.HTTP.Listen, cfg.HTTP.Port, a.handler)
	return a, nil
}

// buildBoard enables the results board when a guild and a bot session exist.
func (a *App) buildBoard(api board.ChannelAPI, infra *bootstrap.Result) error {
	cfg := a.cfg
	if cfg.Discord.GuildID == "" {
		return nil
	}
	if api == nil {
		if cfg.Discord.Token == "" {
			logger.Info(context.Background(), logger.CompBoard, "board.disabled",
				slog.String("cause", "no bot token"),
			)
			return nil
		}
		s, err := discord.NewSession(cfg.Discord)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		api = s
	}
	a.board = board.New(api, infra.KV, board.Options{
		GuildID:      cfg.Discord.GuildID,
		ChannelName:  cfg.Board.ChannelName,
		ImageBaseURL: cfg.Board.ImageBaseURL,
	})
	if cfg.Board.Schedule != "" {
		sched, err := board.NewScheduler(cfg.Board.Schedule, a.board.Refresh)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.scheduler = sched
	}
	return nil
}

// Handler is the HTTP handler tree.
func (a *App) Handler() http.Handler { return a.handler }

// Runtime returns the components visible to lifecycle hooks.
func (a *App) Runtime() Runtime {
	return Runtime{Dispatcher: a.dispatcher, Registry: a.registry, Board: a.board}
}

// Run serves until ctx is done, then shuts down the server, the scheduler and
// the delivery queue in that order so queued follow-ups still go out.
func (a *App) Run(ctx context.Context) error {
	rt := a.Runtime()
	if a.onStart != nil {
		if err := a.onStart(ctx, rt); err != nil {
			a.dispatcher.Close()
			return err
		}
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.server.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, logger.CompHTTP, "http.shutdown",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	if a.scheduler != nil {
		a.scheduler.Stop(shutdownCtx)
	}

	var stopErr error
	if a.onStop != nil {
		stopErr = a.onStop(shutdownCtx, rt)
	}
	a.dispatcher.Close()
	logger.Info(shutdownCtx, logger.CompSender, "sender.closed",
		slog.Uint64("errors", a.dispatcher.ErrorCount()),
		slog.Uint64("drops", a.dispatcher.DropCount()),
	)

	if runErr != nil {
		return runErr
	}
	return stopErr
}

// compile-time check that a real session satisfies the board API.
var _ board.ChannelAPI = (*discordgo.Session)(nil)
