// Package plugin defines the build-system adapter contract and the name
// registry that selects one. Adapters are statically known implementations
// chosen by a discriminator string; there is no dynamic loading.
package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/simplevf/svf/internal/models"
)

// Plugin adapts one build system (webpack, ember, the built-in default) to
// the development flow.
type Plugin interface {
	// PageConfig resolves the name, port and output directory for a page.
	PageConfig(ctx context.Context, pageName string) (models.PageConfig, error)
	// HTMLMarkup returns the html embedded into the remote page's markup.
	HTMLMarkup(page *models.Page) (string, error)
	// OnFileChange is invoked for every change under the page's output
	// directory during a development session.
	OnFileChange(org *models.Org, page *models.Page, path string) error
	// PrepareForDevelopment runs before the session's watcher is armed.
	PrepareForDevelopment(ctx context.Context, org *models.Org, page *models.Page) error
}

// Registry maps plugin names to implementations.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under a name, replacing any previous entry.
func (r *Registry) Register(name string, p Plugin) {
	r.plugins[name] = p
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("unknown build system %q (registered: %v)", name, r.Names())
	}
	return p, nil
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
