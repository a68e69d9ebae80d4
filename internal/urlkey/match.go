package urlkey

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects how a candidate is compared against the search key.
type Mode int

const (
	Exact Mode = iota
	Prefix
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "exact" or "prefix" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "prefix", "partial":
		return Prefix, nil
	default:
		return Exact, fmt.Errorf("unknown match mode %q", s)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding match mode: %w", err)
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Matches compares two normalized keys. Prefix mode is a plain byte prefix,
// not path-segment aware: "https://x.com/ab" matches "https://x.com/a".
func Matches(candidate, search string, mode Mode) bool {
	if candidate == "" || search == "" {
		return false
	}
	if mode == Prefix {
		return strings.HasPrefix(candidate, search)
	}
	return candidate == search
}

// MatchesText compares raw page text against a raw pattern. Unlike Matches,
// prefix mode here means "contains".
func MatchesText(text, pattern string, mode Mode) bool {
	text = strings.TrimSpace(text)
	if text == "" || pattern == "" {
		return false
	}
	if mode == Prefix {
		return strings.Contains(text, pattern)
	}
	return text == pattern
}
