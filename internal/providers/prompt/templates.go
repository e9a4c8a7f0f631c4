package prompt

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

type chatTemplate struct {
	System           string  `yaml:"system"`
	User             string  `yaml:"user"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int64   `yaml:"max_tokens"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
}

type staticTemplate struct {
	Direction string   `yaml:"direction"`
	Concepts  []string `yaml:"concepts"`
}

// Templates holds the prompt skeletons every provider renders from.
type Templates struct {
	Separator         string         `yaml:"separator"`
	AlternativeSuffix string         `yaml:"alternative_suffix"`
	CreativeDirection chatTemplate   `yaml:"creative_direction"`
	SingleConcept     chatTemplate   `yaml:"single_concept"`
	MultiConcept      chatTemplate   `yaml:"multi_concept"`
	Static            staticTemplate `yaml:"static"`
}

var defaultTemplates = mustLoadTemplates(templatesYAML)

// DefaultTemplates returns the embedded prompt templates.
func DefaultTemplates() *Templates {
	return defaultTemplates
}

// LoadTemplates parses a templates document and checks it is usable.
func LoadTemplates(raw []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	if strings.TrimSpace(t.Separator) == "" {
		return nil, fmt.Errorf("prompt templates: separator is empty")
	}
	for name, tpl := range map[string]chatTemplate{
		"creative_direction": t.CreativeDirection,
		"single_concept":     t.SingleConcept,
		"multi_concept":      t.MultiConcept,
	} {
		if strings.TrimSpace(tpl.System) == "" || strings.TrimSpace(tpl.User) == "" {
			return nil, fmt.Errorf("prompt templates: %s needs system and user prompts", name)
		}
	}
	if len(t.Static.Concepts) == 0 {
		return nil, fmt.Errorf("prompt templates: static concepts are empty")
	}
	return &t, nil
}

func mustLoadTemplates(raw []byte) *Templates {
	t, err := LoadTemplates(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// chatPrompt is a rendered template ready to send to a provider.
type chatPrompt struct {
	System           string
	User             string
	Temperature      float64
	MaxTokens        int64
	PresencePenalty  float64
	FrequencyPenalty float64
}

func (t *Templates) render(tpl chatTemplate, brief Brief, n int) chatPrompt {
	r := t.replacer(brief, n)
	return chatPrompt{
		System:           r.Replace(tpl.System),
		User:             r.Replace(tpl.User),
		Temperature:      tpl.Temperature,
		MaxTokens:        tpl.MaxTokens,
		PresencePenalty:  tpl.PresencePenalty,
		FrequencyPenalty: tpl.FrequencyPenalty,
	}
}

func (t *Templates) directionPrompt(brief Brief) chatPrompt {
	return t.render(t.CreativeDirection, brief, 1)
}

func (t *Templates) conceptsPrompt(brief Brief, n int) chatPrompt {
	if n == 1 {
		return t.render(t.SingleConcept, brief, n)
	}
	return t.render(t.MultiConcept, brief, n)
}

func (t *Templates) replacer(brief Brief, n int) *strings.Replacer {
	return strings.NewReplacer(
		"{topic}", brief.Topic,
		"{style}", brief.Style,
		"{placement}", string(brief.Placement),
		"{variants}", strconv.Itoa(n),
		"{extras}", briefExtras(brief),
		"{format}", t.formatLine(n),
	)
}

// formatLine renders "concept1 |||VARIANT||| concept2 ..." for n concepts.
func (t *Templates) formatLine(n int) string {
	if n < 1 {
		n = 1
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "concept" + strconv.Itoa(i+1)
	}
	return strings.Join(parts, " "+t.Separator+" ")
}

func briefExtras(brief Brief) string {
	sb := &strings.Builder{}
	if brief.Tone != "" {
		fmt.Fprintf(sb, "\nTone: %s", brief.Tone)
	}
	if brief.ChannelStyle != "" {
		fmt.Fprintf(sb, "\nChannel style: %s", brief.ChannelStyle)
	}
	return sb.String()
}
