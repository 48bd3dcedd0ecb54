package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")
	for _, d := range []string{baseDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	target := filepath.Join(otherDir, "schema.yaml")
	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	base := t.TempDir()
	got, err := RelativePath(filepath.Join(base, "nested", "schema.yaml"), base)
	if err != nil {
		t.Fatalf("RelativePath: %v", err)
	}
	if got != "nested/schema.yaml" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeCRLFKeepsLoneCR(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\rb\r\nc"))
	if !changed || string(out) != "a\rb\nc" {
		t.Fatalf("normalizeCRLF = %q, %v", out, changed)
	}
	out, changed = normalizeCRLF([]byte("plain"))
	if changed || string(out) != "plain" {
		t.Fatalf("fast path = %q, %v", out, changed)
	}
}
