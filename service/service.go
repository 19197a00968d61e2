package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iedon/htmlfrag/config"
	"github.com/iedon/htmlfrag/dom"
	"github.com/iedon/htmlfrag/factory"
	"github.com/iedon/htmlfrag/fragment"
	"github.com/iedon/htmlfrag/metrics"
	"github.com/iedon/htmlfrag/renderer"
	"github.com/iedon/htmlfrag/templatex"
)

// Output is a built fragment in serialized form.
type Output struct {
	HTML     string `json:"html"`
	Text     string `json:"text"`
	Nodes    int    `json:"nodes"`
	Cached   bool   `json:"cached"`
	Bypassed bool   `json:"bypassed"`
}

// Service wires the fragment cache, element factory, snippet library and metrics.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *fragment.Cache
	builder  *factory.Builder
	renderer *renderer.Renderer
	library  *templatex.Library
	metrics  *metrics.Metrics
}

// New constructs a Service. lib may be nil when no snippet directory is configured.
func New(cfg *config.Config, lib *templatex.Library, logger *slog.Logger, version string) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	rend := renderer.New()
	cache := fragment.New(dom.ParseFragment)
	builder := factory.New(cache,
		factory.WithPolicy(policyFrom(cfg.Cache)),
		factory.WithRenderer(rend),
	)

	svc := &Service{
		cfg:      cfg,
		logger:   logger,
		cache:    cache,
		builder:  builder,
		renderer: rend,
		library:  lib,
	}

	if cfg.Metrics.Enabled {
		m, err := metrics.New(cache, version)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		svc.metrics = m
	}
	return svc, nil
}

func policyFrom(c config.CacheConfig) factory.Policy {
	maxLength := c.MaxTemplateLength
	if maxLength <= 0 {
		maxLength = factory.DefaultMaxLength
	}
	tags := c.NoCacheTags
	if tags == nil {
		tags = factory.DefaultNoCacheTags
	}
	return factory.NewPolicy(maxLength, tags)
}

// Build constructs a fragment from template and serializes it.
func (s *Service) Build(template string) (*Output, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	return s.observe(func() (*factory.Result, error) {
		return s.builder.Build(template)
	})
}

// BuildMarkdown renders markdown and builds the resulting markup.
func (s *Service) BuildMarkdown(src []byte) (*Output, error) {
	if len(src) == 0 {
		return nil, ErrEmptyTemplate
	}
	return s.observe(func() (*factory.Result, error) {
		return s.builder.BuildMarkdown(src)
	})
}

// RenderSnippet executes a library snippet and builds its output. Snippets
// marked non-cacheable never touch the cache.
func (s *Service) RenderSnippet(name string, data any) (*Output, error) {
	if s.library == nil {
		return nil, ErrNoLibrary
	}
	markup, err := s.library.Execute(name, data)
	if err != nil {
		return nil, err
	}
	cacheable := s.library.Cacheable(name)
	return s.observe(func() (*factory.Result, error) {
		if !cacheable {
			return s.builder.BuildUncached(markup)
		}
		return s.builder.Build(markup)
	})
}

// Snippets lists the library contents.
func (s *Service) Snippets() []templatex.Snippet {
	if s.library == nil {
		return []templatex.Snippet{}
	}
	return s.library.Snippets()
}

// Warm builds the configured warm templates and every cacheable static
// snippet so the first requests are hits.
func (s *Service) Warm(ctx context.Context) error {
	templates := append([]string(nil), s.cfg.Cache.Warm...)
	if s.library != nil {
		for _, sn := range s.library.Snippets() {
			if !sn.Static || !sn.Cacheable {
				continue
			}
			if markup, ok := s.library.Static(sn.Name); ok && markup != "" {
				templates = append(templates, markup)
			}
		}
	}

	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.builder.Build(tpl); err != nil {
			return fmt.Errorf("warm %q: %w", tpl, err)
		}
	}
	s.logger.Info("cache warmed", "templates", len(templates), "entries", s.cache.Len())
	return nil
}

// Stats reports cache counters.
func (s *Service) Stats() fragment.Stats {
	return s.cache.Stats()
}

// Keys lists cached templates.
func (s *Service) Keys() []string {
	return s.cache.Keys()
}

// Clear empties the cache.
func (s *Service) Clear() {
	before := s.cache.Len()
	s.cache.Clear()
	s.logger.Info("cache cleared", "entries", before)
}

// Metrics returns the collectors, or nil when metrics are disabled.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Serialize renders frag to markup, minified when configured.
func (s *Service) Serialize(frag *dom.Fragment) (string, error) {
	markup, err := frag.HTML()
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	if !s.cfg.Minify || markup == "" {
		return markup, nil
	}
	compact, err := s.renderer.MinifyHTML([]byte(markup))
	if err != nil {
		return "", err
	}
	return string(compact), nil
}

func (s *Service) observe(build func() (*factory.Result, error)) (*Output, error) {
	start := time.Now()
	res, err := build()
	took := time.Since(start)
	if err != nil {
		s.metrics.ObserveBuild(metrics.OutcomeError, took)
		return nil, err
	}

	outcome := metrics.OutcomeMiss
	switch {
	case res.Bypassed:
		outcome = metrics.OutcomeBypass
	case res.Cached:
		outcome = metrics.OutcomeHit
	}
	s.metrics.ObserveBuild(outcome, took)
	s.logger.Debug("build", "outcome", outcome, "nodes", res.Fragment.Len(), "duration", took)

	markup, err := s.Serialize(res.Fragment)
	if err != nil {
		return nil, err
	}
	return &Output{
		HTML:     markup,
		Text:     res.Fragment.Text(),
		Nodes:    res.Fragment.Len(),
		Cached:   res.Cached,
		Bypassed: res.Bypassed,
	}, nil
}
