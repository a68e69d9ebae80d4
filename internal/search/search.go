// Package search runs highlight passes over one loaded page.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/theognis1002/linkmark/internal/highlight"
	"github.com/theognis1002/linkmark/internal/page"
	"github.com/theognis1002/linkmark/internal/urlkey"
	"golang.org/x/net/html"
)

var ErrEmptyPattern = errors.New("search pattern is empty")

// Request describes one highlight pass. Pattern is a URL for anchor matching
// and raw text for text matching.
type Request struct {
	Pattern         string          `json:"pattern"`
	Mode            urlkey.Mode     `json:"mode"`
	IncludeText     bool            `json:"includeText"`
	Style           highlight.Style `json:"style"`
	ResolveRelative bool            `json:"resolveRelative"`
}

type Result struct {
	MatchedCount int `json:"matchedCount"`
}

type ClearResult struct {
	Success bool `json:"success"`
}

// Controller owns the highlight session of one page. Search and Clear are
// serialized; a pass always runs to completion once it has started.
type Controller struct {
	mu       sync.Mutex
	page     *page.Page
	session  *highlight.Session
	defaults highlight.Style
	logger   *slog.Logger
}

func New(p *page.Page, defaults highlight.Style, logger *slog.Logger) *Controller {
	return &Controller{
		page:     p,
		session:  highlight.NewSession(),
		defaults: defaults,
		logger:   logger.With("origin", p.Context.Origin),
	}
}

func (c *Controller) Page() *page.Page {
	return c.page
}

// Search clears the previous pass and highlights every anchor whose resolved
// href matches req.Pattern, plus matching text runs when req.IncludeText is
// set.
func (c *Controller) Search(ctx context.Context, req Request) (Result, error) {
	pattern := strings.TrimSpace(req.Pattern)
	if pattern == "" {
		return Result{}, ErrEmptyPattern
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("search cancelled: %w", err)
	}
	style := c.style(req.Style)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.ClearAll()

	pc := c.page.Context
	searchKey := pc.Normalize(pattern)
	logger := c.logger.With("pattern", pattern, "mode", req.Mode.String())

	count := 0
	c.page.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, err := pc.Resolve(href, req.ResolveRelative)
		if err != nil {
			logger.Debug("skipping anchor", "href", href, "error", err)
			return
		}
		if !urlkey.Matches(pc.Normalize(abs), searchKey, req.Mode) {
			return
		}
		applied, err := c.session.ApplyToAnchor(a.Get(0), style)
		if err != nil {
			logger.Debug("failed to highlight anchor", "href", href, "error", err)
			return
		}
		if applied {
			count++
		}
	})

	if req.IncludeText {
		// Collect first: wrapping a run changes the tree being walked.
		var matches []*html.Node
		for text := range highlight.TextRuns(c.page.Body(), highlight.ExcludeNonVisible) {
			if urlkey.MatchesText(text.Data, pattern, req.Mode) {
				matches = append(matches, text)
			}
		}
		for _, text := range matches {
			if _, err := c.session.ApplyToTextRun(text, style); err != nil {
				logger.Debug("failed to highlight text", "error", err)
				continue
			}
			count++
		}
	}

	logger.Info("search complete", "matched", count, "search_key", searchKey)
	return Result{MatchedCount: count}, nil
}

// Clear reverses the current pass. It always succeeds.
func (c *Controller) Clear() ClearResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.session.Len()
	c.session.ClearAll()
	c.logger.Info("highlights cleared", "records", n)
	return ClearResult{Success: true}
}

// Active reports how many mutations the current pass holds.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Len()
}

// Render writes the document in its current, possibly highlighted, state.
func (c *Controller) Render(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Render(w)
}

func (c *Controller) HTML() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.HTML()
}

func (c *Controller) style(st highlight.Style) highlight.Style {
	if strings.TrimSpace(st.BackgroundColor) == "" {
		st.BackgroundColor = c.defaults.BackgroundColor
	}
	if st.FontSizePx <= 0 {
		st.FontSizePx = c.defaults.FontSizePx
	}
	return st
}
