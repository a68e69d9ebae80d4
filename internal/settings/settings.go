// Package settings persists the search form between runs.
package settings

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/theognis1002/linkmark/internal/highlight"
	"github.com/theognis1002/linkmark/internal/search"
	"github.com/theognis1002/linkmark/internal/urlkey"
)

const (
	DefaultBgColor   = "#FF0000"
	DefaultFontSize  = "12"
	DefaultActiveTab = "tab1"
)

// Settings mirrors the saved form. FontSize is kept as entered.
type Settings struct {
	SearchURL     string `json:"searchUrl"`
	SearchText    bool   `json:"searchText"`
	PartialSearch bool   `json:"partialSearch"`
	SpecialCases  bool   `json:"specialCases"`
	BgColor       string `json:"bgColor"`
	FontSize      string `json:"fontSize"`
	CleanerInput  string `json:"cleanerInput"`
	ActiveTab     string `json:"activeTab"`
}

func Defaults() Settings {
	return Settings{
		BgColor:   DefaultBgColor,
		FontSize:  DefaultFontSize,
		ActiveTab: DefaultActiveTab,
	}
}

// Request builds the search request the form describes. An unparseable font
// size is left at zero so the controller applies its default.
func (s Settings) Request() search.Request {
	mode := urlkey.Exact
	if s.PartialSearch {
		mode = urlkey.Prefix
	}
	size, _ := strconv.Atoi(strings.TrimSpace(s.FontSize))
	return search.Request{
		Pattern:         strings.TrimSpace(s.SearchURL),
		Mode:            mode,
		IncludeText:     s.SearchText,
		ResolveRelative: s.SpecialCases,
		Style: highlight.Style{
			BackgroundColor: s.BgColor,
			FontSizePx:      size,
		},
	}
}

type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// MemoryStore keeps settings for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	s  Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{s: Defaults()}
}

func (m *MemoryStore) Load(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}
