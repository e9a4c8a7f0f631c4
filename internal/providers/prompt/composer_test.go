package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"thumbsmith/internal/domain"
)

func TestSplitConcepts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		n    int
		want []string
	}{
		{name: "exact", raw: "a|||VARIANT|||b", n: 2, want: []string{"a", "b"}},
		{name: "truncate", raw: "a |||VARIANT||| b |||VARIANT||| c", n: 2, want: []string{"a", "b"}},
		{name: "pad", raw: "a", n: 3, want: []string{"a", "a (Alternative lighting and composition)", "a (Alternative lighting and composition) (Alternative lighting and composition)"}},
		{name: "drop_empty", raw: "|||VARIANT||| a |||VARIANT|||\n|||VARIANT||| b", n: 2, want: []string{"a", "b"}},
		{name: "nothing", raw: " |||VARIANT||| ", n: 2, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitConcepts(tc.raw, "|||VARIANT|||", " (Alternative lighting and composition)", tc.n)
			if strings.Join(got, "\n") != strings.Join(tc.want, "\n") || len(got) != len(tc.want) {
				t.Fatalf("splitConcepts = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStaticComposer(t *testing.T) {
	s := NewStaticComposer()
	for n := domain.MinVariants; n <= domain.MaxVariants+2; n++ {
		got, err := s.Concepts(context.Background(), testBrief, n)
		if err != nil {
			t.Fatalf("Concepts(%d) returned error: %v", n, err)
		}
		if len(got) != n {
			t.Fatalf("Concepts(%d) returned %d concepts", n, len(got))
		}
		for _, c := range got {
			if !strings.Contains(c, `"Learn Go in 10 Minutes"`) || !strings.Contains(c, "left") {
				t.Fatalf("concept %q lost the brief", c)
			}
		}
	}
	if _, err := s.Concepts(context.Background(), testBrief, 0); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	direction, err := s.CreativeDirection(context.Background(), testBrief)
	if err != nil || !strings.Contains(direction, "Modern and trendy") {
		t.Fatalf("direction = %q, err = %v", direction, err)
	}
}

func TestLoadTemplatesRejectsIncomplete(t *testing.T) {
	if _, err := LoadTemplates([]byte("separator: \"\"\n")); err == nil {
		t.Fatal("expected error for empty separator")
	}
	if _, err := LoadTemplates([]byte("separator: \"|\"\ncreative_direction:\n  system: x\n")); err == nil {
		t.Fatal("expected error for missing user prompt")
	}
}

func TestDefaultTemplatesSingleConcept(t *testing.T) {
	p := DefaultTemplates().conceptsPrompt(Brief{Topic: "Rust", Style: "Minimal", Placement: domain.PlacementRight}, 1)
	if !strings.Contains(p.System, `Keep the exact topic text "Rust"`) {
		t.Fatalf("system = %q", p.System)
	}
	if strings.Contains(p.User, "Tone:") {
		t.Fatalf("empty tone leaked into prompt: %q", p.User)
	}
	if p.Temperature != 0.7 || p.MaxTokens != 400 {
		t.Fatalf("unexpected params: %+v", p)
	}
}
