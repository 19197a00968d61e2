package templatex

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template/parse"

	"golang.org/x/text/unicode/norm"

	"github.com/iedon/htmlfrag/renderer"
)

// ErrUnknownSnippet is returned for names the library does not define.
var ErrUnknownSnippet = errors.New("unknown snippet")

// Snippet describes one named entry of the library.
type Snippet struct {
	Name string `json:"name"`
	// Static snippets come from markdown and take no data.
	Static    bool `json:"static"`
	Cacheable bool `json:"cacheable"`
}

type static struct {
	html      string
	cacheable bool
}

// Library is a set of named HTML snippets: Go templates from *.html files and
// pre-rendered markdown from *.md files.
type Library struct {
	templates *template.Template
	statics   map[string]static
}

// Load reads every snippet under dir. The top-level directory and an optional
// partials/ subdirectory are scanned for *.html; only the top level for *.md.
func Load(dir string, md *renderer.Renderer) (*Library, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("template directory not configured")
	}
	if md == nil {
		md = renderer.New()
	}

	lib := &Library{statics: make(map[string]static)}

	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	partialsDir := filepath.Join(dir, "partials")
	if info, err := os.Stat(partialsDir); err == nil && info.IsDir() {
		partials, err := filepath.Glob(filepath.Join(partialsDir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("glob partial templates: %w", err)
		}
		files = append(files, partials...)
	}
	sort.Strings(files)

	if len(files) > 0 {
		tpl, err := template.New("root").Funcs(funcs()).ParseFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		lib.templates = tpl
	}

	mdFiles, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("glob markdown snippets: %w", err)
	}
	sort.Strings(mdFiles)
	for _, file := range mdFiles {
		if err := lib.loadMarkdown(file, md); err != nil {
			return nil, err
		}
	}

	if len(files) == 0 && len(lib.statics) == 0 {
		return nil, fmt.Errorf("no snippets found in %s", dir)
	}
	return lib, nil
}

func (l *Library) loadMarkdown(file string, md *renderer.Renderer) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	rendered, err := md.Render(src)
	if err != nil {
		return fmt.Errorf("render %s: %w", file, err)
	}

	name := snippetName(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	cacheable := true
	if v, ok := rendered.Meta["name"].(string); ok && strings.TrimSpace(v) != "" {
		name = snippetName(v)
	}
	if v, ok := rendered.Meta["cache"].(bool); ok {
		cacheable = v
	}
	if _, dup := l.statics[name]; dup || l.lookupTemplate(name) != nil {
		return fmt.Errorf("snippet %q defined twice (%s)", name, file)
	}
	l.statics[name] = static{html: strings.TrimSpace(string(rendered.HTML)), cacheable: cacheable}
	return nil
}

// Names lists every snippet name in lexical order.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.statics)+8)
	for name := range l.statics {
		out = append(out, name)
	}
	if l.templates != nil {
		for _, t := range l.templates.Templates() {
			if t.Name() == "root" || t.Tree == nil || parse.IsEmptyTree(t.Tree.Root) {
				continue
			}
			out = append(out, t.Name())
		}
	}
	sort.Strings(out)
	return out
}

// Snippets describes every snippet.
func (l *Library) Snippets() []Snippet {
	names := l.Names()
	out := make([]Snippet, 0, len(names))
	for _, name := range names {
		st, isStatic := l.statics[name]
		out = append(out, Snippet{Name: name, Static: isStatic, Cacheable: !isStatic || st.cacheable})
	}
	return out
}

// Cacheable reports whether output of name may be memoized. Unknown names are not.
func (l *Library) Cacheable(name string) bool {
	if st, ok := l.statics[name]; ok {
		return st.cacheable
	}
	return l.lookupTemplate(name) != nil
}

// Static returns the markup of a markdown snippet.
func (l *Library) Static(name string) (string, bool) {
	st, ok := l.statics[name]
	return st.html, ok
}

// Execute renders the named snippet with data.
func (l *Library) Execute(name string, data any) (string, error) {
	if st, ok := l.statics[name]; ok {
		return st.html, nil
	}
	tpl := l.lookupTemplate(name)
	if tpl == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSnippet, name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (l *Library) lookupTemplate(name string) *template.Template {
	if l.templates == nil || name == "root" {
		return nil
	}
	tpl := l.templates.Lookup(name)
	if tpl == nil || tpl.Tree == nil || parse.IsEmptyTree(tpl.Tree.Root) {
		return nil
	}
	return tpl
}

func snippetName(raw string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(raw)))
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(v any) template.HTML {
			switch value := v.(type) {
			case template.HTML:
				return value
			case string:
				return template.HTML(value)
			default:
				return ""
			}
		},
		"lower": strings.ToLower,
	}
}
