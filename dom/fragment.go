// Package dom holds detached node containers built on golang.org/x/net/html.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is a detached container of sibling nodes. It is never attached to a
// document; callers take nodes out of it or serialize it.
type Fragment struct {
	root *html.Node
}

// NewFragment returns a fragment holding nodes in order. Nodes that already
// have a parent are moved.
func NewFragment(nodes ...*html.Node) *Fragment {
	f := &Fragment{root: &html.Node{Type: html.DocumentNode}}
	for _, n := range nodes {
		f.Append(n)
	}
	return f
}

// Append adds n as the last child of the fragment.
func (f *Fragment) Append(n *html.Node) {
	if n == nil {
		return
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	f.root.AppendChild(n)
}

// Nodes returns the top-level nodes. The slice is fresh, the nodes are not.
func (f *Fragment) Nodes() []*html.Node {
	if f == nil || f.root == nil {
		return nil
	}
	out := make([]*html.Node, 0, 4)
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Len reports the number of top-level nodes.
func (f *Fragment) Len() int {
	if f == nil || f.root == nil {
		return 0
	}
	n := 0
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		n++
	}
	return n
}

// First returns the first top-level node or nil.
func (f *Fragment) First() *html.Node {
	if f == nil || f.root == nil {
		return nil
	}
	return f.root.FirstChild
}

// Clone returns a deep structural copy sharing no nodes with f.
func (f *Fragment) Clone() *Fragment {
	out := NewFragment()
	if f == nil || f.root == nil {
		return out
	}
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		out.root.AppendChild(CloneNode(c))
	}
	return out
}

// Equal reports whether both fragments hold structurally identical trees.
func (f *Fragment) Equal(other *Fragment) bool {
	a, b := f.Nodes(), other.Nodes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !NodeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Text returns the concatenated text content of every descendant text node.
func (f *Fragment) Text() string {
	if f == nil || f.root == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				walk(c)
			}
		}
	}
	walk(f.root)
	return sb.String()
}

// HTML serializes the top-level nodes back into markup.
func (f *Fragment) HTML() (string, error) {
	var sb strings.Builder
	for _, n := range f.Nodes() {
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// NewElement creates a detached, empty element.
func NewElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}
