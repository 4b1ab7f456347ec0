package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string // empty means valid
	}{
		{"alternating order", func(c *Config) { c.Battle.TurnOrder = "alternating" }, ""},
		{"freestyle", func(c *Config) { c.Battle.Style = "freestyle" }, ""},
		{"zero turns", func(c *Config) { c.Battle.TurnsPerParticipant = 0 }, "battle.turns_per_participant"},
		{"too many turns", func(c *Config) { c.Battle.TurnsPerParticipant = 11 }, "battle.turns_per_participant"},
		{"too many bars", func(c *Config) { c.Battle.BarsPerTurn = 33 }, "battle.bars_per_turn"},
		{"unknown order", func(c *Config) { c.Battle.TurnOrder = "random" }, "battle.turn_order"},
		{"order is case sensitive", func(c *Config) { c.Battle.TurnOrder = "FIXED" }, "battle.turn_order"},
		{"unknown style", func(c *Config) { c.Battle.Style = "ballad" }, "battle.style"},
		{"negative interval", func(c *Config) { c.Battle.TurnIntervalMs = -1 }, "battle.turn_interval_ms"},
		{"zero intervals allowed", func(c *Config) { c.Battle.TurnIntervalMs = 0; c.Battle.RoundIntervalMs = 0 }, ""},
		{"zero lifetime", func(c *Config) { c.Battle.MaxSessionMinutes = 0 }, "battle.max_session_minutes"},
		{"zero generation timeout", func(c *Config) { c.Timeouts.GenerationMs = 0 }, "timeouts.generation_ms"},
		{"huge audio timeout", func(c *Config) { c.Timeouts.AudioMs = 10_000_000 }, "timeouts.audio_ms"},
		{"threshold zero", func(c *Config) { c.Compliance.Threshold = 0 }, "compliance.threshold"},
		{"threshold above one", func(c *Config) { c.Compliance.Threshold = 1.5 }, "compliance.threshold"},
		{"threshold one", func(c *Config) { c.Compliance.Threshold = 1 }, ""},
		{"zero attempts", func(c *Config) { c.Compliance.MaxAttempts = 0 }, "compliance.max_attempts"},
		{"six attempts", func(c *Config) { c.Compliance.MaxAttempts = 6 }, "compliance.max_attempts"},
		{"missing rules file", func(c *Config) { c.Compliance.RulesFile = "/nonexistent/rules.yaml" }, "compliance.rules_file"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite"; c.Storage.SQLitePath = " " }, "storage.sqlite_path"},
		{"audio without dir", func(c *Config) { c.Provider.Synthesizer = "openai"; c.Storage.AudioDir = "" }, "storage.audio_dir"},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis without addr", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.RedisAddr = "" }, "cache.redis_addr"},
		{"negative redis db", func(c *Config) { c.Cache.RedisDB = -1 }, "cache.redis_db"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"blank origin", func(c *Config) { c.Server.CORSOrigins = []string{"https://a.example", ""} }, "server.cors_origins[1]"},
		{"unknown generator", func(c *Config) { c.Provider.Generator = "gemini" }, "provider.generator"},
		{"unknown synthesizer", func(c *Config) { c.Provider.Synthesizer = "polly" }, "provider.synthesizer"},
		{"unknown adjudicator", func(c *Config) { c.Provider.Adjudicator = "crowd" }, "provider.adjudicator"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, ""},
		{"builtin theme", func(c *Config) { c.UI.Theme = "nord" }, ""},
		{"unknown theme", func(c *Config) { c.UI.Theme = "vaporwave" }, "ui.theme"},
		{"missing theme file", func(c *Config) { c.UI.Theme = "/nonexistent/theme.yaml" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error for %s, got %d: %v", tt.field, len(errs), errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_Validate_RulesFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("categories: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Compliance.RulesFile = path
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("existing rules file should be valid, got %v", errs)
	}
}

func TestConfig_Validate_Aggregates(t *testing.T) {
	cfg := Default()
	cfg.Battle.Style = "ballad"
	cfg.Cache.Driver = "memcached"
	cfg.Logging.Level = "loud"

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(ValidationErrors(errs).Error(), "3 validation errors") {
		t.Errorf("aggregate message = %q", ValidationErrors(errs).Error())
	}
}
