package selection

import "testing"

func TestTripleKey(t *testing.T) {
	tr := Triple{Year: "2021", Event: "Monaco", Session: Race}
	if got := tr.Key(); got != "2021/Monaco/race.png" {
		t.Fatalf("Key = %s", got)
	}
	if got := tr.String(); got != "Monaco Race 2021" {
		t.Fatalf("String = %s", got)
	}
	tr.Event = "Abu Dhabi"
	tr.Session = Qualifying
	if got := tr.Key(); got != "2021/Abu Dhabi/qualifying.png" {
		t.Fatalf("Key = %s", got)
	}
}

func TestParseSession(t *testing.T) {
	for in, want := range map[string]Session{"Race": Race, " sprint ": Sprint, "QUALIFYING": Qualifying} {
		got, ok := ParseSession(in)
		if !ok || got != want {
			t.Errorf("ParseSession(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseSession("Practice 1"); ok {
		t.Error("Practice 1 is not a session type")
	}
}
