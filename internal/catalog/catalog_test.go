package catalog

import (
	"strings"
	"testing"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.Styles) != 12 || len(c.ChannelStyles) != 10 || len(c.Tones) != 10 || len(c.Placements) != 3 {
		t.Fatalf("unexpected sizes: %d styles, %d channel styles, %d tones, %d placements",
			len(c.Styles), len(c.ChannelStyles), len(c.Tones), len(c.Placements))
	}
	if c.Styles[0].Value != "Modern and trendy" || c.Styles[0].Label != "Modern & Trendy" {
		t.Fatalf("first style = %+v", c.Styles[0])
	}
	if c.Tones[0].Value != "professional" || c.Tones[0].Label != "Professional & Polished" {
		t.Fatalf("first tone = %+v", c.Tones[0])
	}
	if c.Placements[0].Label != "Left Side" || c.Placements[1].Label != "Center" {
		t.Fatalf("placements = %+v", c.Placements)
	}
	if c.DefaultTone != "professional" || c.MinVariants != 1 || c.MaxVariants != 4 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLabel(t *testing.T) {
	title := cases.Title(language.English)
	tests := []struct {
		in   Option
		want string
	}{
		{Option{Value: "Food and cooking"}, "Food & Cooking"},
		{Option{Value: "x", Label: "playful and fun"}, "Playful & Fun"},
		{Option{Value: "center"}, "Center"},
		{Option{Value: "android"}, "Android"},
	}
	for _, tc := range tests {
		if got := Label(title, tc.in); got != tc.want {
			t.Errorf("Label(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":    "styles: [",
		"no styles":   "tones:\n  - value: calm\n",
		"bad placing": "styles:\n  - value: a\nplacements:\n  - value: top\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load([]byte(raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestYAML(t *testing.T) {
	out, err := Default().YAML()
	if err != nil {
		t.Fatalf("YAML returned error: %v", err)
	}
	if !strings.Contains(string(out), "label: Cinematic & Dramatic") {
		t.Fatalf("rendered catalog missing labels:\n%s", out)
	}
}
