package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/commands"
	"github.com/yarumotors/bot/core/discord/interaction"
	"github.com/yarumotors/bot/core/logger"
)

// commandNameRe mirrors Discord's CHAT_INPUT name rule restricted to lowercase.
var commandNameRe = regexp.MustCompile(`^[-_\p{Ll}\p{N}]{1,32}$`)

// Registry holds slash commands and component handlers.
type Registry struct {
	commands     map[string]commands.Command
	components   map[string]interaction.HandlerFunc
	componentsMu sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]commands.Command),
		components: make(map[string]interaction.HandlerFunc),
	}
}

// RegisterCommand adds a new command. Names are stored lowercased.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	name = strings.ToLower(strings.TrimSpace(name))
	ctx := context.Background()
	if r == nil || cmd.Handler == nil || cmd.Description == "" || len(cmd.Description) > 100 {
		logger.Warn(ctx, logger.CompDCWire, "register.command.skip",
			slog.String("command", name),
			slog.String("cause", "invalid"),
		)
		return
	}
	if !commandNameRe.MatchString(name) {
		logger.Warn(ctx, logger.CompDCWire, "register.command.skip",
			slog.String("command", name),
			slog.String("cause", "bad_name"),
		)
		return
	}
	if _, _, exists := r.LookupCommand(name); exists {
		logger.Warn(ctx, logger.CompDCWire, "register.command.duplicate",
			slog.String("command", name),
		)
		return
	}
	r.commands[name] = cmd
}

// LookupCommand searches for a command by name or alias, case-insensitively,
// and returns the canonical name with its metadata.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if strings.EqualFold(alias, name) {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// ApplicationCommands renders the registration payload. Each alias is
// published as its own command sharing the description and options.
func (r *Registry) ApplicationCommands(visibleOnly bool) []*discordgo.ApplicationCommand {
	var list []*discordgo.ApplicationCommand
	for name, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		names := append([]string{name}, meta.Aliases...)
		for _, n := range names {
			list = append(list, &discordgo.ApplicationCommand{
				Name:        strings.ToLower(n),
				Type:        discordgo.ChatApplicationCommand,
				Description: meta.Description,
				Options:     meta.Options,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// RegisterComponent maps a custom id key (the part before the first ':') to a handler.
func (r *Registry) RegisterComponent(key string, handler interaction.HandlerFunc) error {
	if r == nil || key == "" || handler == nil || strings.Contains(key, ":") {
		logger.Warn(context.Background(), logger.CompDCWire, "register.component.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid component registration")
	}
	r.componentsMu.Lock()
	defer r.componentsMu.Unlock()
	if _, exists := r.components[key]; exists {
		logger.Warn(context.Background(), logger.CompDCWire, "register.component.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("component already registered: %s", key)
	}
	r.components[key] = handler
	return nil
}

// GetComponent safely returns handler by key.
func (r *Registry) GetComponent(key string) (interaction.HandlerFunc, bool) {
	r.componentsMu.RLock()
	defer r.componentsMu.RUnlock()
	h, ok := r.components[key]
	return h, ok
}

// ListComponents returns sorted keys (for diagnostics).
func (r *Registry) ListComponents() []string {
	r.componentsMu.RLock()
	defer r.componentsMu.RUnlock()
	names := make([]string, 0, len(r.components))
	for k := range r.components {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
