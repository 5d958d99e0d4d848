// Package calendar maps a season to the countries of its events, in schedule
// order. Pre-season testing is listed too, so a country may appear twice.
package calendar

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed grands_prix.json
var grandsPrixJSON []byte

// Calendar is an immutable year → event list table.
type Calendar struct {
	years map[string][]string
}

// Default returns the calendar compiled into the binary.
func Default() *Calendar {
	c, err := Parse(grandsPrixJSON)
	if err != nil {
		panic(fmt.Sprintf("calendar: embedded table: %v", err))
	}
	return c
}

// Parse decodes a JSON object of year keys to event name arrays.
func Parse(data []byte) (*Calendar, error) {
	var years map[string][]string
	if err := json.Unmarshal(data, &years); err != nil {
		return nil, fmt.Errorf("calendar: decode: %w", err)
	}
	return &Calendar{years: years}, nil
}

// FromMap builds a calendar from an in-memory table.
func FromMap(years map[string][]string) *Calendar {
	return &Calendar{years: years}
}

// Lookup returns the events of year in schedule order, possibly with
// duplicates. Unknown years yield an empty list.
func (c *Calendar) Lookup(year string) []string {
	events, ok := c.years[strings.TrimSpace(year)]
	if !ok {
		return []string{}
	}
	return append([]string(nil), events...)
}
