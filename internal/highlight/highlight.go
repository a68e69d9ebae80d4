// Package highlight applies reversible highlight styling to an HTML tree.
//
// Every mutation is captured as a Record on a Session so that ClearAll can
// put the tree back exactly as it was before the pass.
package highlight

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MarkerAttr flags anchors styled by a Session.
	MarkerAttr = "data-highlighted"
	// TextMarkerAttr flags the span wrappers inserted around text runs.
	TextMarkerAttr = "data-highlighted-text"

	propBackgroundColor = "background-color"
	propFontSize        = "font-size"
)

var (
	ErrNotElement = errors.New("highlight target is not an element")
	ErrNotText    = errors.New("highlight target is not an attached text node")
)

// Style is the visual treatment applied to a match.
type Style struct {
	BackgroundColor string `json:"bgColor" yaml:"bg_color"`
	FontSizePx      int    `json:"fontSize" yaml:"font_size_px"`
}

func (s Style) fontSize() string {
	return strconv.Itoa(s.FontSizePx) + "px"
}

// Record is one reversible mutation. It is either a *StyleRecord or a
// *TextSwapRecord.
type Record interface {
	record()
}

// StyleRecord captures the inline style an anchor had before highlighting.
// The element itself belongs to the document.
type StyleRecord struct {
	Element             *html.Node
	PrevBackgroundColor string
	PrevFontSize        string

	prevStyle    string
	hadStyle     bool
	prevMarker   string
	hadMarker    bool
	appliedStyle string
}

// TextSwapRecord captures a text node replaced by a styled wrapper.
type TextSwapRecord struct {
	Parent   *html.Node
	Wrapper  *html.Node
	Original *html.Node
}

func (*StyleRecord) record()    {}
func (*TextSwapRecord) record() {}

// Session owns the records of the current highlight pass over one document.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	records []Record
	marked  map[*html.Node]struct{}
}

func NewSession() *Session {
	return &Session{marked: make(map[*html.Node]struct{})}
}

// Len reports the number of active records.
func (s *Session) Len() int {
	return len(s.records)
}

// Records returns a copy of the active records in creation order.
func (s *Session) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ApplyToAnchor styles el and records its previous inline style. It reports
// false when el was already highlighted by this session.
func (s *Session) ApplyToAnchor(el *html.Node, st Style) (bool, error) {
	if el == nil || el.Type != html.ElementNode {
		return false, ErrNotElement
	}
	if _, ok := s.marked[el]; ok {
		return false, nil
	}

	raw, hadStyle := getAttr(el, "style")
	marker, hadMarker := getAttr(el, MarkerAttr)
	decls := parseInlineStyle(raw)

	rec := &StyleRecord{
		Element:             el,
		PrevBackgroundColor: decls.get(propBackgroundColor),
		PrevFontSize:        decls.get(propFontSize),
		prevStyle:           raw,
		hadStyle:            hadStyle,
		prevMarker:          marker,
		hadMarker:           hadMarker,
	}

	decls.set(propBackgroundColor, st.BackgroundColor)
	decls.set(propFontSize, st.fontSize())
	rec.appliedStyle = decls.String()

	setAttr(el, "style", rec.appliedStyle)
	setAttr(el, MarkerAttr, "true")

	s.records = append(s.records, rec)
	s.marked[el] = struct{}{}
	return true, nil
}

// ApplyToTextRun swaps text for a styled span holding the same text.
func (s *Session) ApplyToTextRun(text *html.Node, st Style) (*html.Node, error) {
	if text == nil || text.Type != html.TextNode || text.Parent == nil {
		return nil, ErrNotText
	}

	decls := inlineStyle{}
	decls.set(propBackgroundColor, st.BackgroundColor)
	decls.set(propFontSize, st.fontSize())

	wrapper := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "style", Val: decls.String()},
			{Key: TextMarkerAttr, Val: "true"},
		},
	}
	wrapper.AppendChild(&html.Node{Type: html.TextNode, Data: text.Data})

	parent := text.Parent
	parent.InsertBefore(wrapper, text)
	parent.RemoveChild(text)

	s.records = append(s.records, &TextSwapRecord{Parent: parent, Wrapper: wrapper, Original: text})
	return wrapper, nil
}

// ClearAll reverses every recorded mutation, newest first, and empties the
// session. Calling it on an empty session does nothing.
func (s *Session) ClearAll() {
	for i := len(s.records) - 1; i >= 0; i-- {
		switch rec := s.records[i].(type) {
		case *StyleRecord:
			restoreStyle(rec)
		case *TextSwapRecord:
			restoreText(rec)
		default:
			panic(fmt.Sprintf("highlight: unknown record type %T", rec))
		}
	}
	s.records = nil
	clear(s.marked)
}

func restoreStyle(rec *StyleRecord) {
	el := rec.Element
	current, _ := getAttr(el, "style")

	switch {
	case current == rec.appliedStyle && rec.hadStyle:
		setAttr(el, "style", rec.prevStyle)
	case current == rec.appliedStyle:
		removeAttr(el, "style")
	default:
		// The page changed the style after us; only undo our two properties.
		decls := parseInlineStyle(current)
		decls.set(propBackgroundColor, rec.PrevBackgroundColor)
		decls.set(propFontSize, rec.PrevFontSize)
		if out := decls.String(); out != "" || rec.hadStyle {
			setAttr(el, "style", out)
		} else {
			removeAttr(el, "style")
		}
	}

	if rec.hadMarker {
		setAttr(el, MarkerAttr, rec.prevMarker)
	} else {
		removeAttr(el, MarkerAttr)
	}
}

func restoreText(rec *TextSwapRecord) {
	parent := rec.Parent
	if rec.Wrapper.Parent != parent {
		// Moved by someone else since the swap; follow the wrapper.
		parent = rec.Wrapper.Parent
	}
	if parent == nil {
		return
	}
	parent.InsertBefore(rec.Original, rec.Wrapper)
	parent.RemoveChild(rec.Wrapper)
}
