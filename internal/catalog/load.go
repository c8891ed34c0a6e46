package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/agentoven/agentdesk/pkg/models"
)

// document is the YAML layout accepted by Load:
//
//	providers:
//	  - id: ollama
//	    displayName: Ollama
//	    adapter: ollama
//	    baseUrl: http://localhost:11434
//	    models:
//	      - id: llama3.2
//	        displayName: Llama 3.2
type document struct {
	Providers []models.Provider `yaml:"providers"`
}

// Load decodes a YAML catalogue and validates it.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(doc.Providers)
}

// LoadFile reads a YAML catalogue from path. An empty path yields the
// built-in catalogue.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, err
	}
	p, m := c.Count()
	log.Info().Str("file", path).Int("providers", p).Int("models", m).Msg("Catalog loaded from file")
	return c, nil
}
