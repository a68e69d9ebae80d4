// Package page loads HTML documents and the location context their links are
// resolved against.
package page

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/theognis1002/linkmark/internal/urlkey"
	"golang.org/x/net/html"
)

// Page is a parsed document plus the URL it was loaded from.
type Page struct {
	Doc     *goquery.Document
	URL     string
	Context urlkey.PageContext
}

// Parse reads an HTML document. pageURL must be an absolute http(s) URL; it
// supplies the origin and path that relative hrefs resolve against.
func Parse(r io.Reader, pageURL string) (*Page, error) {
	pc, err := urlkey.ContextFromURL(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page context: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	return &Page{Doc: doc, URL: pageURL, Context: pc}, nil
}

// Root is the document node.
func (p *Page) Root() *html.Node {
	return p.Doc.Nodes[0]
}

// Body is the <body> element, or the document node when there is none.
func (p *Page) Body() *html.Node {
	if body := p.Doc.Find("body").First(); body.Length() > 0 {
		return body.Get(0)
	}
	return p.Root()
}

func (p *Page) Render(w io.Writer) error {
	if err := html.Render(w, p.Root()); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

func (p *Page) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
