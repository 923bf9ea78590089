package persona

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadPersonalityFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personality.txt")
	if err := os.WriteFile(path, []byte("  you are a test persona\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := Load(&config.PersonaConfig{PersonalityFile: path}, quietLogger())
	if p.Personality != "you are a test persona" {
		t.Errorf("Personality = %q, want trimmed file content", p.Personality)
	}
}

func TestLoadMissingPersonalityFallsBack(t *testing.T) {
	p := Load(&config.PersonaConfig{PersonalityFile: "/nonexistent/personality.txt"}, quietLogger())
	if !strings.Contains(p.Personality, "Sylvia") {
		t.Error("missing personality file should fall back to the built-in persona")
	}
}

func TestLoadEmptyPersonalityFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personality.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := Load(&config.PersonaConfig{PersonalityFile: path}, quietLogger())
	if !strings.Contains(p.Personality, "Sylvia") {
		t.Error("blank personality file should fall back to the built-in persona")
	}
}

func TestLoadReferenceText(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lore.txt"), []byte("favorite game is bg3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "more.txt"), []byte("grew up in amman"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("should be ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := Load(&config.PersonaConfig{ReferenceDir: dir, ReferenceTextLimit: 8000}, quietLogger())

	if !strings.Contains(p.ReferenceText, "favorite game is bg3") {
		t.Error("reference text missing first file")
	}
	if !strings.Contains(p.ReferenceText, "grew up in amman") {
		t.Error("reference text missing second file")
	}
	if strings.Contains(p.ReferenceText, "should be ignored") {
		t.Error("non-txt file leaked into reference text")
	}
}

func TestLoadReferenceTextCapped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte(strings.Repeat("a", 500)), 0o644); err != nil {
		t.Fatal(err)
	}

	p := Load(&config.PersonaConfig{ReferenceDir: dir, ReferenceTextLimit: 100}, quietLogger())
	if len(p.ReferenceText) != 103 {
		t.Errorf("capped reference length = %d, want 100 plus ellipsis", len(p.ReferenceText))
	}
}

func TestCap(t *testing.T) {
	if got := Cap("short", 100); got != "short" {
		t.Errorf("Cap under limit = %q, want unchanged", got)
	}
	if got := Cap("abcdef", 0); got != "abcdef" {
		t.Errorf("Cap with zero limit = %q, want unchanged", got)
	}
	if got := Cap("abcdef", 3); got != "abc..." {
		t.Errorf("Cap over limit = %q, want %q", got, "abc...")
	}
	if got := Cap("abc", 3); got != "abc" {
		t.Errorf("Cap at exact limit = %q, want unchanged", got)
	}
}
