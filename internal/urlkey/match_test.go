package urlkey

import (
	"encoding/json"
	"testing"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		search    string
		mode      Mode
		want      bool
	}{
		{"exact equal", "https://x.com/a", "https://x.com/a", Exact, true},
		{"exact differs", "https://x.com/a/b", "https://x.com/a", Exact, false},
		{"prefix by segment", "https://x.com/a/b", "https://x.com/a", Prefix, true},
		{"prefix is byte-wise", "https://x.com/ab", "https://x.com/a", Prefix, true},
		{"prefix equal", "https://x.com/a", "https://x.com/a", Prefix, true},
		{"prefix longer search", "https://x.com/a", "https://x.com/a/b", Prefix, false},
		{"both empty", "", "", Exact, false},
		{"both empty prefix", "", "", Prefix, false},
		{"empty search never matches", "https://x.com/a", "", Prefix, false},
		{"empty candidate never matches", "", "https://x.com/a", Exact, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Matches(tt.candidate, tt.search, tt.mode); got != tt.want {
				t.Errorf("Matches(%q, %q, %v) = %v, want %v", tt.candidate, tt.search, tt.mode, got, tt.want)
			}
		})
	}
}

func TestMatchesText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		pattern string
		mode    Mode
		want    bool
	}{
		{"exact after trim", "  Big Sale \n", "Big Sale", Exact, true},
		{"exact rejects substring", "Big Sale today", "Big Sale", Exact, false},
		{"prefix means contains", "Today: Big Sale!", "Big Sale", Prefix, true},
		{"prefix not anchored at start", "the sale", "sale", Prefix, true},
		{"case sensitive", "big sale", "Big Sale", Prefix, false},
		{"blank text", "   ", "x", Prefix, false},
		{"empty pattern", "text", "", Prefix, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchesText(tt.text, tt.pattern, tt.mode); got != tt.want {
				t.Errorf("MatchesText(%q, %q, %v) = %v, want %v", tt.text, tt.pattern, tt.mode, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"exact", Exact, false},
		{"", Exact, false},
		{"PREFIX", Prefix, false},
		{"partial", Prefix, false},
		{"fuzzy", Exact, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMode_JSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Mode Mode `json:"mode"`
	}
	if err := json.Unmarshal([]byte(`{"mode":"prefix"}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Mode != Prefix {
		t.Errorf("Mode = %v, want prefix", payload.Mode)
	}

	if err := json.Unmarshal([]byte(`{"mode":"glob"}`), &payload); err == nil {
		t.Error("expected error for unknown mode")
	}
}
