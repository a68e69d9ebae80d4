package highlight

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExcludeFunc reports whether text under the given element is skipped.
type ExcludeFunc func(el *html.Node) bool

// ExcludeNonVisible skips text inside elements whose content is never
// rendered as markup, such as script or textarea. A span wrapped there would
// show up as literal text.
func ExcludeNonVisible(el *html.Node) bool {
	switch el.DataAtom {
	case atom.Script, atom.Style, atom.Noscript,
		atom.Title, atom.Textarea, atom.Xmp, atom.Iframe,
		atom.Noembed, atom.Noframes, atom.Plaintext:
		return true
	}
	return false
}

// TextRuns yields the non-blank text nodes under root in document order,
// skipping nodes whose nearest element ancestor is excluded. Each call to the
// returned sequence walks the tree afresh. The tree must not be mutated while
// a walk is in progress; collect first, then mutate.
func TextRuns(root *html.Node, exclude ExcludeFunc) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if root == nil {
			return
		}
		walkText(root, exclude, yield)
	}
}

func walkText(n *html.Node, exclude ExcludeFunc, yield func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) == "" {
				continue
			}
			if exclude != nil {
				if el := nearestElement(c); el != nil && exclude(el) {
					continue
				}
			}
			if !yield(c) {
				return false
			}
		case html.ElementNode, html.DocumentNode:
			if !walkText(c, exclude, yield) {
				return false
			}
		}
	}
	return true
}

func nearestElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}
