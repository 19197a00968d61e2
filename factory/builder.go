// Package factory turns template strings into detached fragments, using the
// fragment cache for markup that is safe to memoize.
package factory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/iedon/htmlfrag/dom"
	"github.com/iedon/htmlfrag/fragment"
	"github.com/iedon/htmlfrag/renderer"
)

// ErrNoRenderer is returned by BuildMarkdown when no markdown renderer is configured.
var ErrNoRenderer = errors.New("markdown renderer not configured")

var (
	singleTag = regexp.MustCompile(`^<(\w+)\s*/?>(?:</(\w+)>)?$`)
	markup    = regexp.MustCompile(`<|&#?\w+;`)
)

// Result is the outcome of a single build.
type Result struct {
	Fragment *dom.Fragment
	// Cached is set when the fragment was copied from an existing cache entry.
	Cached bool
	// Bypassed is set when the cache was not consulted at all.
	Bypassed bool
}

// Builder is the element factory.
type Builder struct {
	cache    *fragment.Cache
	policy   Policy
	markdown *renderer.Renderer
}

// Option configures a Builder.
type Option func(*Builder)

// WithPolicy replaces the default cache policy.
func WithPolicy(p Policy) Option {
	return func(b *Builder) {
		if p != nil {
			b.policy = p
		}
	}
}

// WithRenderer enables BuildMarkdown.
func WithRenderer(r *renderer.Renderer) Option {
	return func(b *Builder) {
		b.markdown = r
	}
}

// New constructs a builder backed by cache. A nil cache gets a private one.
func New(cache *fragment.Cache, opts ...Option) *Builder {
	if cache == nil {
		cache = fragment.New(dom.ParseFragment)
	}
	b := &Builder{cache: cache, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cache exposes the backing cache.
func (b *Builder) Cache() *fragment.Cache {
	return b.cache
}

// Build constructs nodes from template. Plain text becomes a single text node,
// a lone tag becomes a bare element, and everything else is parsed, through
// the cache when the policy allows it.
func (b *Builder) Build(template string) (*Result, error) {
	if template == "" {
		return b.bypass(dom.NewFragment()), nil
	}

	if !strings.HasPrefix(template, "<") {
		if !markup.MatchString(template) {
			return b.bypass(dom.NewFragment(dom.NewText(template))), nil
		}
		return b.parseFresh(template)
	}

	if m := singleTag.FindStringSubmatch(template); m != nil && (m[2] == "" || m[2] == m[1]) {
		return b.bypass(dom.NewFragment(dom.NewElement(m[1]))), nil
	}

	if !b.policy.Cacheable(template) {
		return b.parseFresh(template)
	}

	frag, hit, err := b.cache.GetOrCreate(template)
	if err != nil {
		return nil, err
	}
	return &Result{Fragment: frag, Cached: hit}, nil
}

// BuildUncached builds template without reading or populating the cache.
func (b *Builder) BuildUncached(template string) (*Result, error) {
	if template == "" {
		return b.bypass(dom.NewFragment()), nil
	}
	if !strings.HasPrefix(template, "<") && !markup.MatchString(template) {
		return b.bypass(dom.NewFragment(dom.NewText(template))), nil
	}
	return b.parseFresh(template)
}

// BuildMarkdown renders src to HTML and builds the result.
func (b *Builder) BuildMarkdown(src []byte) (*Result, error) {
	if b.markdown == nil {
		return nil, ErrNoRenderer
	}
	rendered, err := b.markdown.Render(src)
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return b.Build(strings.TrimSpace(string(rendered.HTML)))
}

// BuildAll builds every template in order and stops at the first error.
func (b *Builder) BuildAll(templates []string) ([]*Result, error) {
	out := make([]*Result, 0, len(templates))
	for _, tpl := range templates {
		res, err := b.Build(tpl)
		if err != nil {
			return out, fmt.Errorf("build %q: %w", tpl, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (b *Builder) parseFresh(template string) (*Result, error) {
	frag, err := dom.ParseFragment(template)
	if err != nil {
		return nil, err
	}
	return b.bypass(frag), nil
}

func (b *Builder) bypass(frag *dom.Fragment) *Result {
	b.cache.Bypass()
	return &Result{Fragment: frag, Bypassed: true}
}
