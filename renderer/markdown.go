package renderer

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlRenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const mimeHTML = "text/html"

// Heading is a heading found while rendering, with its generated anchor id.
type Heading struct {
	ID    string
	Text  string
	Level int
}

// RenderResult wraps HTML markup and extracted metadata.
type RenderResult struct {
	HTML      []byte
	PlainText string
	Headings  []Heading
	// Meta holds the YAML front matter, if any.
	Meta map[string]any
}

// Renderer transforms markdown snippets into HTML and minifies markup.
type Renderer struct {
	md       goldmark.Markdown
	minifier *minify.M
}

// New constructs a renderer with GitHub-flavored markdown extensions, syntax
// highlighting and front matter support.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.ClassPrefix("z-"),
					chromahtml.PreventSurroundingPre(true),
				),
				highlighting.WithWrapperRenderer(codeWrapper),
			),
			meta.Meta,
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			htmlRenderer.WithUnsafe(),
		),
	)

	m := minify.New()
	// Fragments are re-parsed later, so end tags and quoting must survive.
	m.Add(mimeHTML, &minhtml.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})

	return &Renderer{md: md, minifier: m}
}

// Render converts markdown into HTML, collecting headings, plain text and front matter.
func (r *Renderer) Render(src []byte) (*RenderResult, error) {
	pc := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	headings := make([]Heading, 0, 8)
	plain := &strings.Builder{}
	slugCounts := make(map[string]int)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			label := extractText(node, src)
			id := headingID(node, label, slugCounts)
			headings = append(headings, Heading{ID: id, Text: label, Level: node.Level})
		case *ast.Text:
			plain.Write(node.Segment.Value(src))
			plain.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	fm, err := meta.TryGet(pc)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	return &RenderResult{
		HTML:      buf.Bytes(),
		PlainText: strings.TrimSpace(plain.String()),
		Headings:  headings,
		Meta:      fm,
	}, nil
}

// MinifyHTML compacts markup while keeping it safe to parse as a fragment.
func (r *Renderer) MinifyHTML(raw []byte) ([]byte, error) {
	out, err := r.minifier.Bytes(mimeHTML, raw)
	if err != nil {
		return nil, fmt.Errorf("minify: %w", err)
	}
	return out, nil
}

func headingID(node *ast.Heading, label string, counts map[string]int) string {
	if attr, ok := node.AttributeString("id"); ok {
		if id := attributeToString(attr); id != "" {
			counts[id]++
			return id
		}
	}
	base := slugify(label)
	id := base
	if n := counts[base]; n > 0 {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	counts[base]++
	node.SetAttributeString("id", []byte(id))
	return id
}

func extractText(root ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			sb.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func attributeToString(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

func slugify(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var sb strings.Builder
	lastDash := false
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if sb.Len() == 0 || lastDash {
				continue
			}
			sb.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "section"
	}
	return slug
}

func codeWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	lang := "text"
	if raw, ok := ctx.Language(); ok && len(raw) > 0 {
		lang = string(raw)
	}
	lang = string(util.EscapeHTML([]byte(lang)))
	if entering {
		_, _ = fmt.Fprintf(w, `<pre class="z-chroma language-%[1]s" data-lang="%[1]s"><code>`, lang)
		return
	}
	_, _ = w.WriteString("</code></pre>\n")
}
