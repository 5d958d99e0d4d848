package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/yarumotors/bot/core/discord/commands"
	"github.com/yarumotors/bot/core/discord/interaction"
)

func okHandler(context.Context, *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	return interaction.Message("ok"), nil
}

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("Ping", commands.Command{Description: "latency", Handler: okHandler})
	reg.RegisterCommand("ping", commands.Command{Description: "dup", Handler: okHandler})
	reg.RegisterCommand("bad name", commands.Command{Description: "space", Handler: okHandler})
	reg.RegisterCommand("nodesc", commands.Command{Handler: okHandler})
	reg.RegisterCommand("long", commands.Command{Description: strings.Repeat("x", 101), Handler: okHandler})
	reg.RegisterCommand("nohandler", commands.Command{Description: "nil"})

	if got := len(reg.Commands()); got != 1 {
		t.Fatalf("commands = %d, want 1", got)
	}
	name, cmd, ok := reg.LookupCommand("PING")
	if !ok || name != "ping" || cmd.Description != "latency" {
		t.Fatalf("lookup = %q %#v %v", name, cmd, ok)
	}
}

func TestLookupByAlias(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("results", commands.Command{Description: "wizard", Handler: okHandler, Aliases: []string{"r"}})
	name, _, ok := reg.LookupCommand("R")
	if !ok || name != "results" {
		t.Fatalf("alias lookup = %q %v", name, ok)
	}
}

func TestApplicationCommandsPayload(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("results", commands.Command{Description: "wizard", Handler: okHandler, Aliases: []string{"f1"}})
	reg.RegisterCommand("ping", commands.Command{Description: "latency", Handler: okHandler})
	reg.RegisterCommand("debug", commands.Command{Description: "internal", Handler: okHandler, Hidden: true})

	visible := reg.ApplicationCommands(true)
	names := make([]string, 0, len(visible))
	for _, c := range visible {
		if c.Type != discordgo.ChatApplicationCommand {
			t.Fatalf("%s: type = %v", c.Name, c.Type)
		}
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "f1,ping,results" {
		t.Fatalf("visible = %v", names)
	}
	if got := len(reg.ApplicationCommands(false)); got != 4 {
		t.Fatalf("all = %d, want 4", got)
	}
}

func TestRegisterComponent(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterComponent("select_year", okHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, key := range []string{"", "a:b", "select_year"} {
		if err := reg.RegisterComponent(key, okHandler); err == nil {
			t.Errorf("RegisterComponent(%q) succeeded", key)
		}
	}
	if err := reg.RegisterComponent("other", nil); err == nil {
		t.Error("nil handler accepted")
	}
	if _, ok := reg.GetComponent("select_year"); !ok {
		t.Fatal("component not found")
	}
	if got := reg.ListComponents(); len(got) != 1 || got[0] != "select_year" {
		t.Fatalf("components = %v", got)
	}
}

type overwriterStub struct {
	appID, guildID string
	cmds           []*discordgo.ApplicationCommand
}

func (o *overwriterStub) ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	o.appID, o.guildID, o.cmds = appID, guildID, cmds
	return cmds, nil
}

func TestPublishCommandsVisible(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("ping", commands.Command{Description: "latency", Handler: okHandler})
	reg.RegisterCommand("debug", commands.Command{Description: "internal", Handler: okHandler, Hidden: true})
	s := &overwriterStub{}

	created, err := PublishCommands(context.Background(), s, "app", "guild", reg.ApplicationCommands(true))
	if err != nil {
		t.Fatalf("PublishCommands: %v", err)
	}
	if s.appID != "app" || s.guildID != "guild" || len(created) != 1 || created[0].Name != "ping" {
		t.Fatalf("published %s/%s %v", s.appID, s.guildID, created)
	}
}

func TestPublishCommandsRejectsEmpty(t *testing.T) {
	s := &overwriterStub{}
	if _, err := PublishCommands(context.Background(), s, "app", "", nil); err == nil {
		t.Fatal("expected error for an empty payload")
	}
	if s.cmds != nil {
		t.Fatal("nothing should be sent")
	}
}
