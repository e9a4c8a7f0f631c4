package main

import (
	"archive/zip"
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROMPT_PROVIDER", "static")
	t.Setenv("IMAGE_PROVIDER", "synthetic")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("SYNTH_MIN_INTERVAL_MS", "1")
}

func TestCatalogCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out.String(), "Gaming & Esports") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestGenerateCommand(t *testing.T) {
	offlineEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "face.jpg")
	if err := imaging.Save(imaging.New(320, 240, color.NRGBA{R: 30, G: 90, B: 160, A: 255}), src); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outPath := filepath.Join(dir, "out", "thumbs.zip")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate", "--image", src, "--topic", "Budget travel", "--style", "Bold and vibrant", "--placement", "right", "--variants", "2", "--out", outPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out.String(), "2 horizontal, 2 vertical") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := "horizontal-1.png,horizontal-2.png,vertical-1.png,vertical-2.png"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("entries = %s, want %s", got, want)
	}
}

func TestGenerateRequiresFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		missing string
	}{
		{"only topic", []string{"--topic", "x"}, "image"},
		{"no placement", []string{"--image", "in.png", "--topic", "x", "--style", "Bold"}, "placement"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"generate"}, tc.args...))
			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), `"`+tc.missing+`"`) {
				t.Fatalf("err = %v, want missing %q", err, tc.missing)
			}
		})
	}
}

func TestAPIKeySetValidatesProvider(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"apikey", "set", "--provider", "anthropic", "--key", "k"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("err = %v", err)
	}
}
