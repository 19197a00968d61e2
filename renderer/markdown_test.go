package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeadingsAndText(t *testing.T) {
	r := New()

	res, err := r.Render([]byte("# Intro\n\nhello *world*\n\n## Intro\n"))
	require.NoError(t, err)

	require.Len(t, res.Headings, 2)
	assert.Equal(t, Heading{ID: "intro", Text: "Intro", Level: 1}, res.Headings[0])
	assert.Equal(t, "intro-1", res.Headings[1].ID)
	assert.Contains(t, string(res.HTML), `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, res.PlainText, "hello")
	assert.Contains(t, res.PlainText, "world")
}

func TestRenderFrontMatter(t *testing.T) {
	r := New()

	src := "---\nname: card\ncache: false\n---\n<div class=\"card\">x</div>\n"
	res, err := r.Render([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, "card", res.Meta["name"])
	assert.Equal(t, false, res.Meta["cache"])
	assert.NotContains(t, string(res.HTML), "name: card")
	assert.Contains(t, string(res.HTML), `<div class="card">x</div>`)
}

func TestRenderCodeBlockUsesWrapper(t *testing.T) {
	r := New()

	res, err := r.Render([]byte("```go\nfmt.Println(1)\n```\n"))
	require.NoError(t, err)
	out := string(res.HTML)
	assert.True(t, strings.Contains(out, `<pre class="z-chroma language-go" data-lang="go"><code>`), out)
	assert.Contains(t, out, "</code></pre>")
}

func TestMinifyHTMLKeepsStructure(t *testing.T) {
	r := New()

	out, err := r.MinifyHTML([]byte("<ul>\n  <li class=\"a\">one</li>\n  <li>two</li>\n</ul>\n"))
	require.NoError(t, err)
	assert.Equal(t, `<ul><li class="a">one</li><li>two</li></ul>`, string(out))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":   "hello-world",
		"  a__b..c ":    "a-b-c",
		"???":           "section",
		"Version 1.2.3": "version-1-2-3",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}
