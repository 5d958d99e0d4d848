package bootstrap

import (
	"context"

	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/discord"
	"github.com/yarumotors/bot/core/discord/followup"
	"github.com/yarumotors/bot/core/discord/sender"
	"github.com/yarumotors/bot/core/kv"
	"github.com/yarumotors/bot/core/storage"
)

// Deps is the shared infrastructure handed to feature modules.
type Deps struct {
	Config     *coreconfig.Config
	KV         kv.Store
	Storage    storage.Store
	Dispatcher *sender.Dispatcher
	Followup   *followup.Client
}

// Module registers a feature's commands and components.
type Module interface {
	Register(ctx context.Context, reg *discord.Registry, deps Deps) error
}

// ModuleFunc adapts a bare function to the Module interface.
type ModuleFunc func(ctx context.Context, reg *discord.Registry, deps Deps) error

// Register executes the underlying function.
func (f ModuleFunc) Register(ctx context.Context, reg *discord.Registry, deps Deps) error {
	return f(ctx, reg, deps)
}

// Modules groups feature modules in registration order.
type Modules []Module

// RegisterAll registers every module, stopping at the first failure.
func (m Modules) RegisterAll(ctx context.Context, reg *discord.Registry, deps Deps) error {
	for _, mod := range m {
		if mod == nil {
			continue
		}
		if err := mod.Register(ctx, reg, deps); err != nil {
			return err
		}
	}
	return nil
}
