package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("OPENAI_MODEL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDsn == "" {
		t.Error("expected default DB_DSN")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q, want gpt-4o-mini", cfg.OpenAIModel)
	}
}

func TestAIEnabled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, _ := Load()
	if cfg.AIEnabled() {
		t.Error("AIEnabled() = true without OPENAI_API_KEY")
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, _ = Load()
	if !cfg.AIEnabled() {
		t.Error("AIEnabled() = false with OPENAI_API_KEY set")
	}
}

func TestHelixEnabled(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "abc")
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	cfg, _ := Load()
	if cfg.HelixEnabled() {
		t.Error("HelixEnabled() = true with missing secret")
	}
	t.Setenv("TWITCH_CLIENT_SECRET", "def")
	cfg, _ = Load()
	if !cfg.HelixEnabled() {
		t.Error("HelixEnabled() = false with both credentials set")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SOME_COUNT", "7")
	if got := EnvInt("SOME_COUNT", 3); got != 7 {
		t.Errorf("EnvInt = %d, want 7", got)
	}
	t.Setenv("SOME_COUNT", "bogus")
	if got := EnvInt("SOME_COUNT", 3); got != 3 {
		t.Errorf("EnvInt = %d, want default 3", got)
	}
}
