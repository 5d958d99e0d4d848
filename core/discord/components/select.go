// Package components builds message components for interaction responses.
package components

import (
	"github.com/bwmarrin/discordgo"
)

// MaxSelectOptions is Discord's limit on options in one select menu.
const MaxSelectOptions = 25

// Options converts values into select options whose label equals the value.
func Options(values ...string) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, discordgo.SelectMenuOption{Label: v, Value: v})
	}
	return opts
}

// SelectRow returns a single action row holding one string select menu.
func SelectRow(customID, placeholder string, options []discordgo.SelectMenuOption) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    customID,
					Placeholder: placeholder,
					Options:     options,
				},
			},
		},
	}
}

// FirstSelect finds the first select menu in rows; useful to inspect responses.
func FirstSelect(rows []discordgo.MessageComponent) (discordgo.SelectMenu, bool) {
	for _, row := range rows {
		ar, ok := row.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if sm, ok := c.(discordgo.SelectMenu); ok {
				return sm, true
			}
		}
	}
	return discordgo.SelectMenu{}, false
}
