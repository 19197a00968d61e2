package factory

import (
	"regexp"
	"strings"
)

const (
	// DefaultMaxLength is the longest template the default policy caches.
	DefaultMaxLength = 512
)

// DefaultNoCacheTags lists elements whose templates always bypass the cache.
var DefaultNoCacheTags = []string{"script", "object", "embed", "option", "style"}

// Policy decides whether a template may be served from the fragment cache.
// It is consulted only for markup that starts with '<' and is not a single tag.
type Policy interface {
	Cacheable(template string) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(template string) bool

// Cacheable implements Policy.
func (f PolicyFunc) Cacheable(template string) bool {
	return f(template)
}

type tagPolicy struct {
	maxLength int
	noCache   *regexp.Regexp
}

// NewPolicy returns the length and tag based policy. maxLength <= 0 disables
// the length limit; an empty tag list disables the tag check.
func NewPolicy(maxLength int, noCacheTags []string) Policy {
	p := &tagPolicy{maxLength: maxLength}
	names := make([]string, 0, len(noCacheTags))
	for _, tag := range noCacheTags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		names = append(names, regexp.QuoteMeta(tag))
	}
	if len(names) > 0 {
		p.noCache = regexp.MustCompile(`(?i)<(?:` + strings.Join(names, "|") + `)`)
	}
	return p
}

// DefaultPolicy returns NewPolicy(DefaultMaxLength, DefaultNoCacheTags).
func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxLength, DefaultNoCacheTags)
}

func (p *tagPolicy) Cacheable(template string) bool {
	if p.maxLength > 0 && len(template) >= p.maxLength {
		return false
	}
	if !strings.HasPrefix(template, "<") {
		return false
	}
	if p.noCache != nil && p.noCache.MatchString(template) {
		return false
	}
	return true
}

// AllOf combines policies; a template is cacheable only if every policy agrees.
func AllOf(policies ...Policy) Policy {
	return PolicyFunc(func(template string) bool {
		for _, p := range policies {
			if p != nil && !p.Cacheable(template) {
				return false
			}
		}
		return true
	})
}
