package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
bot:
  token: "test-token"
generation:
  base_url: "http://localhost:11434/v1"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Engine.ReplyProbability != 0.4 {
		t.Errorf("ReplyProbability = %v, want 0.4", cfg.Engine.ReplyProbability)
	}
	if cfg.Engine.ContextMsgLimit != 15 {
		t.Errorf("ContextMsgLimit = %v, want 15", cfg.Engine.ContextMsgLimit)
	}
	if cfg.Engine.MaxPromptMsgs != 10 {
		t.Errorf("MaxPromptMsgs = %v, want 10", cfg.Engine.MaxPromptMsgs)
	}
	if cfg.Engine.MaxResponseTokens != 200 {
		t.Errorf("MaxResponseTokens = %v, want 200", cfg.Engine.MaxResponseTokens)
	}
	if cfg.Engine.MinResponseDelay != time.Second || cfg.Engine.MaxResponseDelay != 4*time.Second {
		t.Errorf("response delays = [%v, %v], want [1s, 4s]", cfg.Engine.MinResponseDelay, cfg.Engine.MaxResponseDelay)
	}
	if cfg.Moods.Morning != (HourRange{Start: 6, End: 12}) {
		t.Errorf("Morning = %+v, want [6, 12)", cfg.Moods.Morning)
	}
	if cfg.Moods.Evening != (HourRange{Start: 18, End: 24}) {
		t.Errorf("Evening = %+v, want [18, 24)", cfg.Moods.Evening)
	}
	if cfg.Persona.ReferenceTextLimit != 8000 {
		t.Errorf("ReferenceTextLimit = %v, want 8000", cfg.Persona.ReferenceTextLimit)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.I18n.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %q, want en", cfg.I18n.DefaultLanguage)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
bot:
  token: "test-token"
  allowed_groups:
    - "teleaitestfield"
engine:
  reply_probability: 0.7
  context_msg_limit: 30
generation:
  base_url: "http://localhost:11434/v1"
  model: "gemma3n"
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Engine.ReplyProbability != 0.7 {
		t.Errorf("ReplyProbability = %v, want 0.7", cfg.Engine.ReplyProbability)
	}
	if cfg.Engine.ContextMsgLimit != 30 {
		t.Errorf("ContextMsgLimit = %v, want 30", cfg.Engine.ContextMsgLimit)
	}
	if len(cfg.Bot.AllowedGroups) != 1 || cfg.Bot.AllowedGroups[0] != "teleaitestfield" {
		t.Errorf("AllowedGroups = %v", cfg.Bot.AllowedGroups)
	}
	if cfg.Generation.Model != "gemma3n" {
		t.Errorf("Model = %q, want gemma3n", cfg.Generation.Model)
	}
}

func TestLoadConfigMissingToken(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, `
generation:
  base_url: "http://localhost:11434/v1"
`)); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestLoadConfigMissingBaseURL(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, `
bot:
  token: "test-token"
`)); err == nil {
		t.Fatal("expected error for missing generation base_url")
	}
}

func TestLoadConfigInvalidProbability(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, minimalConfig+`
engine:
  reply_probability: 1.5
`)); err == nil {
		t.Fatal("expected error for reply_probability outside [0, 1]")
	}
}

func TestLoadConfigInvalidDelays(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, minimalConfig+`
engine:
  min_response_delay: 5s
  max_response_delay: 2s
`)); err == nil {
		t.Fatal("expected error for min delay above max delay")
	}
}

func TestLoadConfigInvalidHourRange(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, minimalConfig+`
moods:
  morning:
    start: 10
    end: 26
`)); err == nil {
		t.Fatal("expected error for hour range past 24")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestHourRangeContains(t *testing.T) {
	r := HourRange{Start: 6, End: 12}

	cases := []struct {
		hour int
		want bool
	}{
		{5, false},
		{6, true},
		{11, true},
		{12, false},
		{0, false},
	}
	for _, tc := range cases {
		if got := r.Contains(tc.hour); got != tc.want {
			t.Errorf("Contains(%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}
