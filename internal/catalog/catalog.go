// Package catalog provides the read-only provider and model catalogue for
// agentdesk.
//
// A Catalog is built once at startup, either from the built-in provider table
// or from a YAML document handed over by the configuration loader. It never
// changes afterwards, so lookups take no locks and return copies.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

var (
	// ErrNotFound is matched by both provider and model lookup failures.
	ErrNotFound = errors.New("not found")

	ErrProviderNotFound = fmt.Errorf("provider %w", ErrNotFound)
	ErrModelNotFound    = fmt.Errorf("model %w", ErrNotFound)
)

// Adapter kinds understood by the router.
const (
	AdapterOpenAI    = "openai"
	AdapterAnthropic = "anthropic"
	AdapterGoogle    = "google"
	AdapterOllama    = "ollama"
)

var knownAdapters = map[string]bool{
	AdapterOpenAI:    true,
	AdapterAnthropic: true,
	AdapterGoogle:    true,
	AdapterOllama:    true,
}

// Catalog is an immutable provider/model registry.
type Catalog struct {
	providers []models.Provider
	index     map[string]int
}

// New validates providers and builds a catalog from them. The slice is copied.
func New(providers []models.Provider) (*Catalog, error) {
	c := &Catalog{
		providers: make([]models.Provider, 0, len(providers)),
		index:     make(map[string]int, len(providers)),
	}

	for i, p := range providers {
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("catalog: provider #%d: %w", i, err)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate provider %q", p.ID)
		}
		c.index[p.ID] = len(c.providers)
		c.providers = append(c.providers, p.Clone())
	}
	if len(c.providers) == 0 {
		return nil, errors.New("catalog: no providers defined")
	}
	return c, nil
}

// Default returns a catalog holding the built-in provider table.
func Default() *Catalog {
	c, err := New(builtinProviders())
	if err != nil {
		// The built-in table is covered by tests; failing here is a programming error.
		panic(err)
	}
	return c
}

func validateProvider(p models.Provider) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("empty provider id")
	}
	if !knownAdapters[p.Adapter] {
		return fmt.Errorf("provider %q: unknown adapter %q", p.ID, p.Adapter)
	}
	if len(p.Models) == 0 {
		return fmt.Errorf("provider %q: no models", p.ID)
	}
	seen := make(map[string]bool, len(p.Models))
	for _, m := range p.Models {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("provider %q: empty model id", p.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("provider %q: duplicate model %q", p.ID, m.ID)
		}
		seen[m.ID] = true
		if m.ContextLength < 0 {
			return fmt.Errorf("provider %q: model %q: negative context length", p.ID, m.ID)
		}
	}
	return nil
}

// ListProviders returns every provider in catalogue order.
func (c *Catalog) ListProviders() []models.Provider {
	out := make([]models.Provider, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Clone()
	}
	return out
}

// GetProvider looks a provider up by id.
func (c *Catalog) GetProvider(id string) (models.Provider, error) {
	i, ok := c.index[id]
	if !ok {
		return models.Provider{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return c.providers[i].Clone(), nil
}

// GetModel looks a model up by (providerID, modelID).
func (c *Catalog) GetModel(providerID, modelID string) (models.Model, error) {
	i, ok := c.index[providerID]
	if !ok {
		return models.Model{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	for _, m := range c.providers[i].Models {
		if m.ID == modelID {
			return m, nil
		}
	}
	return models.Model{}, fmt.Errorf("%w: %s/%s", ErrModelNotFound, providerID, modelID)
}

// DefaultModel returns the first model listed for a provider.
func (c *Catalog) DefaultModel(providerID string) (models.Model, error) {
	i, ok := c.index[providerID]
	if !ok {
		return models.Model{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return c.providers[i].Models[0], nil
}

// Count returns the number of providers and models in the catalog.
func (c *Catalog) Count() (providers, modelCount int) {
	for _, p := range c.providers {
		modelCount += len(p.Models)
	}
	return len(c.providers), modelCount
}

// WithBaseURLs returns a copy of the catalog with provider base URLs replaced
// by the given overrides (keyed by provider id). Unknown ids are ignored.
func (c *Catalog) WithBaseURLs(overrides map[string]string) *Catalog {
	out := &Catalog{
		providers: make([]models.Provider, len(c.providers)),
		index:     c.index,
	}
	for i, p := range c.providers {
		cp := p.Clone()
		if u, ok := overrides[p.ID]; ok && u != "" {
			cp.BaseURL = u
		}
		out.providers[i] = cp
	}
	return out
}
