package prompt

import (
	"context"
	"fmt"
	"strings"

	"thumbsmith/internal/domain"
)

// Brief is the creative input shared by every text provider.
type Brief struct {
	Topic        string
	Style        string
	Placement    domain.Placement
	Tone         string
	ChannelStyle string
}

// BriefFromRequest copies the creative fields of a generation request.
func BriefFromRequest(req domain.Request) Brief {
	return Brief{
		Topic:        req.Topic,
		Style:        req.Style,
		Placement:    req.Placement,
		Tone:         req.Tone,
		ChannelStyle: req.ChannelStyle,
	}
}

// Composer turns a brief into the text the image model is prompted with.
type Composer interface {
	// CreativeDirection returns a free-form art direction for one thumbnail.
	CreativeDirection(ctx context.Context, brief Brief) (string, error)
	// Concepts returns exactly n non-empty, mutually distinct concepts.
	Concepts(ctx context.Context, brief Brief, n int) ([]string, error)
}

// StaticComposer renders deterministic concepts from the embedded templates.
type StaticComposer struct {
	templates *Templates
}

func NewStaticComposer() *StaticComposer {
	return &StaticComposer{templates: DefaultTemplates()}
}

func (s *StaticComposer) CreativeDirection(ctx context.Context, brief Brief) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.templates.replacer(brief, 1).Replace(strings.TrimSpace(s.templates.Static.Direction)), nil
}

func (s *StaticComposer) Concepts(ctx context.Context, brief Brief, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: concept count %d", domain.ErrInvalidRequest, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.templates.replacer(brief, n)
	pool := s.templates.Static.Concepts
	out := make([]string, 0, n)
	for i := 0; i < n && i < len(pool); i++ {
		out = append(out, r.Replace(strings.TrimSpace(pool[i])))
	}
	return padConcepts(out, n, s.templates.AlternativeSuffix), nil
}

var _ Composer = (*StaticComposer)(nil)
