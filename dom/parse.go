package dom

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	shorthandTag = regexp.MustCompile(`<([\w:]+)([^>]*)/>`)
	leadingTag   = regexp.MustCompile(`<([\w:]+)`)

	voidTags = map[string]struct{}{
		"area": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
		"img": {}, "input": {}, "link": {}, "meta": {}, "param": {},
	}

	// Elements the tree builder only accepts inside a specific parent.
	parseContexts = map[string]string{
		"option":   "select",
		"optgroup": "select",
		"legend":   "fieldset",
		"thead":    "table",
		"tbody":    "table",
		"tfoot":    "table",
		"colgroup": "table",
		"caption":  "table",
		"tr":       "tbody",
		"td":       "tr",
		"th":       "tr",
		"col":      "colgroup",
		"area":     "map",
	}
)

// ParseFragment parses markup into a detached fragment. Markup that the HTML
// tree builder would drop outside its proper parent, such as a bare <tr>, is
// parsed in that parent's context.
func ParseFragment(markup string) (*Fragment, error) {
	expanded := ExpandShorthand(markup)
	nodes, err := html.ParseFragment(strings.NewReader(expanded), ContextFor(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return NewFragment(nodes...), nil
}

// ExpandShorthand rewrites xhtml-style <tag/> into <tag></tag> for every
// non-void element so that "<div/><b/>" yields siblings instead of nesting.
func ExpandShorthand(markup string) string {
	if !strings.Contains(markup, "/>") {
		return markup
	}
	return shorthandTag.ReplaceAllStringFunc(markup, func(m string) string {
		parts := shorthandTag.FindStringSubmatch(m)
		tag := parts[1]
		if _, ok := voidTags[strings.ToLower(tag)]; ok {
			return m
		}
		return "<" + tag + parts[2] + "></" + tag + ">"
	})
}

// ContextFor picks the element a fragment is parsed under, based on the first
// tag in markup. It defaults to <body>.
func ContextFor(markup string) *html.Node {
	name := "body"
	if m := leadingTag.FindStringSubmatch(markup); m != nil {
		if parent, ok := parseContexts[strings.ToLower(m[1])]; ok {
			name = parent
		}
	}
	return &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
}
