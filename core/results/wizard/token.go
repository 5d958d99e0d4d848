package wizard

import (
	"errors"
	"fmt"
	"strings"
)

// Component keys; each is the first field of the custom id of one wizard menu.
const (
	KeyYear       = "select_year"
	KeyEvent      = "select_gp"
	KeyIdentifier = "select_identifier"
)

// MaxCustomIDLength is Discord's limit on a component custom id.
const MaxCustomIDLength = 100

// ErrMalformedToken reports a custom id that is not a valid wizard step.
var ErrMalformedToken = errors.New("wizard: malformed token")

// Step is the wizard position carried by a select menu's custom id.
// Implemented by Initial, YearChosen and EventChosen only.
type Step interface {
	fields() []string
}

// Initial is the year menu; no choice has been made yet.
type Initial struct{}

// YearChosen is the grand prix menu for Year.
type YearChosen struct {
	Year string
}

// EventChosen is the session menu for Event of Year.
type EventChosen struct {
	Year  string
	Event string
}

func (Initial) fields() []string       { return []string{KeyYear} }
func (s YearChosen) fields() []string  { return []string{KeyEvent, s.Year} }
func (s EventChosen) fields() []string { return []string{KeyIdentifier, s.Year, s.Event} }

// Encode renders s as a custom id. Only the event of EventChosen may contain
// ':', because Decode splits that token into at most three fields.
func Encode(s Step) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: nil step", ErrMalformedToken)
	}
	_, openTail := s.(EventChosen)
	fields := s.fields()
	for idx, f := range fields {
		if f == "" {
			return "", fmt.Errorf("%w: empty field %d", ErrMalformedToken, idx)
		}
		if strings.Contains(f, ":") && !(openTail && idx == len(fields)-1) {
			return "", fmt.Errorf("%w: field %d contains ':'", ErrMalformedToken, idx)
		}
	}
	token := strings.Join(fields, ":")
	if len(token) > MaxCustomIDLength {
		return "", fmt.Errorf("%w: %d characters exceeds %d", ErrMalformedToken, len(token), MaxCustomIDLength)
	}
	return token, nil
}

// Decode parses a custom id. The key selects the step and fixes the exact
// field count that step must have.
func Decode(token string) (Step, error) {
	key, _, _ := strings.Cut(token, ":")
	var (
		want int
		step func([]string) Step
	)
	switch key {
	case KeyYear:
		want, step = 1, func([]string) Step { return Initial{} }
	case KeyEvent:
		want, step = 2, func(f []string) Step { return YearChosen{Year: f[1]} }
	case KeyIdentifier:
		want, step = 3, func(f []string) Step { return EventChosen{Year: f[1], Event: f[2]} }
	default:
		return nil, fmt.Errorf("%w: unknown key %q", ErrMalformedToken, key)
	}

	// Only the trailing event field may contain ':'.
	limit := -1
	if key == KeyIdentifier {
		limit = want
	}
	fields := strings.SplitN(token, ":", limit)
	if len(fields) != want {
		return nil, fmt.Errorf("%w: %s needs %d fields, got %d", ErrMalformedToken, key, want, len(fields))
	}
	for idx, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("%w: empty field %d", ErrMalformedToken, idx)
		}
	}
	return step(fields), nil
}
