package event

import "testing"

func TestKind_IsValid(t *testing.T) {
	for _, k := range []Kind{KindThinking, KindToolCall, KindToolResult, KindSources, KindToken, KindDone, KindError} {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []Kind{"", "ping", "DONE"} {
		if k.IsValid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"nil", nil, false},
		{"token", TokenChunk{Text: "a"}, false},
		{"sources", SourcesReady{}, false},
		{"done", Completed{}, true},
		{"error", Failed{Message: "boom"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTerminal(tc.ev); got != tc.want {
				t.Errorf("IsTerminal(%v) = %v, want %v", tc.ev, got, tc.want)
			}
		})
	}
}
