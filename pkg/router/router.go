package router

import (
	"sort"
	"strings"

	"github.com/versewright/versewright/pkg/config"
)

// DefaultModel is used when the configuration names no model at all.
const DefaultModel = "gemini-2.5-flash"

// Router resolves operation names to model identifiers.
type Router struct {
	defaultModel string
	overrides    map[string]string
}

// New creates a Router from the given configuration.
func New(cfg *config.Config) *Router {
	r := &Router{
		defaultModel: strings.TrimSpace(cfg.Models.Default),
		overrides:    make(map[string]string, len(cfg.Models.Overrides)),
	}
	if r.defaultModel == "" {
		r.defaultModel = DefaultModel
	}
	for op, model := range cfg.Models.Overrides {
		if model = strings.TrimSpace(model); model != "" {
			r.overrides[strings.ToLower(strings.TrimSpace(op))] = model
		}
	}
	return r
}

// Resolve returns the model for op: its override if configured, otherwise
// the default model.
func (r *Router) Resolve(op string) string {
	if m, ok := r.overrides[strings.ToLower(op)]; ok {
		return m
	}
	return r.defaultModel
}

// Unknown returns override keys that are not in known, sorted.
func (r *Router) Unknown(known []string) []string {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	var out []string
	for op := range r.overrides {
		if !set[op] {
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return out
}
