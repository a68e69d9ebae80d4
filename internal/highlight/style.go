package highlight

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

const importantSuffix = "!important"

// inlineStyle is the ordered declaration list of a style attribute.
type inlineStyle struct {
	decls []*css.Declaration
}

func parseInlineStyle(raw string) inlineStyle {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inlineStyle{}
	}
	// douceur only commits a declaration's value when it sees a terminator.
	if !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	if decls, err := parser.ParseDeclarations(raw); err == nil {
		st := inlineStyle{}
		for _, d := range decls {
			if d == nil || d.Property == "" {
				continue
			}
			st.decls = append(st.decls, d)
		}
		return st
	}
	return splitInlineStyle(raw)
}

// splitInlineStyle is the lenient path for attributes douceur rejects,
// such as doubled semicolons.
func splitInlineStyle(raw string) inlineStyle {
	st := inlineStyle{}
	for _, part := range strings.Split(raw, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		prop := strings.TrimSpace(kv[0])
		if prop == "" {
			continue
		}
		value, important := splitImportant(kv[1])
		st.decls = append(st.decls, &css.Declaration{Property: prop, Value: value, Important: important})
	}
	return st
}

func splitImportant(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(strings.ToLower(value), importantSuffix) {
		return strings.TrimSpace(value[:len(value)-len(importantSuffix)]), true
	}
	return value, false
}

// get returns the effective value of prop, with a trailing "!important"
// when the declaration carries it. Missing properties yield "".
func (s inlineStyle) get(prop string) string {
	for i := len(s.decls) - 1; i >= 0; i-- {
		d := s.decls[i]
		if !strings.EqualFold(d.Property, prop) {
			continue
		}
		if d.Important {
			return d.Value + " " + importantSuffix
		}
		return d.Value
	}
	return ""
}

// set replaces every declaration of prop with a single one holding value.
// An empty value removes the property.
func (s *inlineStyle) set(prop, value string) {
	value, important := splitImportant(value)
	if value == "" {
		s.remove(prop)
		return
	}

	replaced := false
	kept := s.decls[:0]
	for _, d := range s.decls {
		if !strings.EqualFold(d.Property, prop) {
			kept = append(kept, d)
			continue
		}
		if replaced {
			continue
		}
		kept = append(kept, &css.Declaration{Property: prop, Value: value, Important: important})
		replaced = true
	}
	s.decls = kept
	if !replaced {
		s.decls = append(s.decls, &css.Declaration{Property: prop, Value: value, Important: important})
	}
}

func (s *inlineStyle) remove(prop string) {
	kept := s.decls[:0]
	for _, d := range s.decls {
		if !strings.EqualFold(d.Property, prop) {
			kept = append(kept, d)
		}
	}
	s.decls = kept
}

func (s inlineStyle) String() string {
	parts := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}
