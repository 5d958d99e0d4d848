// Package selection describes the (year, grand prix, session) choice that
// identifies one stored result image.
package selection

import "strings"

// Session is a session type offered by the wizard.
type Session string

// Session types in the order they are offered.
const (
	Qualifying Session = "Qualifying"
	Sprint     Session = "Sprint"
	Race       Session = "Race"
)

// Sessions lists every Session in menu order.
var Sessions = []Session{Qualifying, Sprint, Race}

// ParseSession matches s case-insensitively against Sessions.
func ParseSession(s string) (Session, bool) {
	s = strings.TrimSpace(s)
	for _, candidate := range Sessions {
		if strings.EqualFold(s, string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// Triple is a completed wizard selection.
type Triple struct {
	Year    string
	Event   string
	Session Session
}

// FileName is the image name, e.g. "race.png".
func (t Triple) FileName() string {
	return strings.ToLower(string(t.Session)) + ".png"
}

// Key is the object store key: "<year>/<event>/<session lowercased>.png".
func (t Triple) Key() string {
	return t.Year + "/" + t.Event + "/" + t.FileName()
}

// String renders "<event> <session> <year>" as used in user-facing text.
func (t Triple) String() string {
	return t.Event + " " + string(t.Session) + " " + t.Year
}
