package usecase

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var personasYAML []byte

type personaEntry struct {
	Name  string `yaml:"name"`
	Style string `yaml:"style"`
}

type personaTable struct {
	Default  string         `yaml:"default"`
	Personas []personaEntry `yaml:"personas"`
}

// PersonaCatalog resolves interviewer personas to their tone directives.
// Unknown names fall back to the default persona.
type PersonaCatalog struct {
	defaultName string
	styles      map[string]string
}

// LoadPersonas parses the embedded persona table.
func LoadPersonas() (*PersonaCatalog, error) {
	var tbl personaTable
	if err := yaml.Unmarshal(personasYAML, &tbl); err != nil {
		return nil, fmt.Errorf("op=personas.load: %w", err)
	}
	c := &PersonaCatalog{defaultName: tbl.Default, styles: make(map[string]string, len(tbl.Personas))}
	for _, p := range tbl.Personas {
		c.styles[p.Name] = p.Style
	}
	if _, ok := c.styles[c.defaultName]; !ok {
		return nil, fmt.Errorf("op=personas.load: default persona %q missing from table", tbl.Default)
	}
	return c, nil
}

// Resolve returns the canonical persona name and its style directive.
func (c *PersonaCatalog) Resolve(name string) (string, string) {
	if style, ok := c.styles[name]; ok {
		return name, style
	}
	return c.defaultName, c.styles[c.defaultName]
}

// DefaultName returns the persona used when the caller supplies none.
func (c *PersonaCatalog) DefaultName() string { return c.defaultName }
