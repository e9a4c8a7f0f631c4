// Package catalog exposes the option lists offered to clients for styles,
// tones, channel styles and placements.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"thumbsmith/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Option is one selectable value with its display label.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label,omitempty"`
}

// Catalog groups the option lists.
type Catalog struct {
	Styles        []Option `json:"styles" yaml:"styles"`
	ChannelStyles []Option `json:"channel_styles" yaml:"channel_styles"`
	Tones         []Option `json:"tones" yaml:"tones"`
	Placements    []Option `json:"placements" yaml:"placements"`
	DefaultTone   string   `json:"default_tone" yaml:"default_tone"`
	MinVariants   int      `json:"min_variants" yaml:"-"`
	MaxVariants   int      `json:"max_variants" yaml:"-"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// Load parses a YAML catalog and fills in display labels.
func Load(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if len(c.Styles) == 0 {
		return nil, fmt.Errorf("catalog: at least one style is required")
	}
	for _, p := range c.Placements {
		if _, err := domain.ParsePlacement(p.Value); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	title := cases.Title(language.English)
	for _, list := range [][]Option{c.Styles, c.ChannelStyles, c.Tones, c.Placements} {
		for i := range list {
			list[i].Label = Label(title, list[i])
		}
	}
	c.MinVariants = domain.MinVariants
	c.MaxVariants = domain.MaxVariants
	return &c, nil
}

// Label title-cases the option label (or value) and renders "and" as "&".
func Label(title cases.Caser, o Option) string {
	text := strings.TrimSpace(o.Label)
	if text == "" {
		text = strings.TrimSpace(o.Value)
	}
	return strings.ReplaceAll(title.String(text), " And ", " & ")
}

// YAML renders the catalog with labels resolved.
func (c *Catalog) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
