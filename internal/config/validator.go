package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "battle.turns_per_participant")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

const (
	maxTurnsPerParticipant = 10
	maxBarsPerTurn         = 32
	maxIntervalMs          = 60_000
	maxTimeoutMs           = 300_000
	minAttempts            = 1
	maxAttempts            = 5
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStorageDrivers returns the list of valid durable store drivers
func ValidStorageDrivers() []string {
	return []string{"memory", "sqlite"}
}

// ValidCacheDrivers returns the list of valid cache drivers
func ValidCacheDrivers() []string {
	return []string{"memory", "redis"}
}

// ValidGenerators returns the list of valid generator bindings
func ValidGenerators() []string {
	return []string{"template", "anthropic", "openai"}
}

// ValidSynthesizers returns the list of valid synthesizer bindings
func ValidSynthesizers() []string {
	return []string{"none", "openai"}
}

// ValidAdjudicators returns the list of valid adjudicator bindings
func ValidAdjudicators() []string {
	return []string{"votes", "anthropic", "openai"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBattle()...)
	errors = append(errors, c.validateTimeouts()...)
	errors = append(errors, c.validateCompliance()...)
	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateProvider()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateUI()...)

	return errors
}

func oneOf(field, value string, valid []string) []ValidationError {
	if slices.Contains(valid, value) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
	}}
}

func inRange(field string, value, lo, hi int) []ValidationError {
	if value >= lo && value <= hi {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be between %d and %d", lo, hi),
	}}
}

// validateBattle validates the BattleConfig
func (c *Config) validateBattle() []ValidationError {
	var errors []ValidationError

	errors = append(errors, inRange("battle.turns_per_participant", c.Battle.TurnsPerParticipant, 1, maxTurnsPerParticipant)...)
	errors = append(errors, inRange("battle.bars_per_turn", c.Battle.BarsPerTurn, 1, maxBarsPerTurn)...)
	errors = append(errors, oneOf("battle.turn_order", c.Battle.TurnOrder, battle.ValidTurnOrders())...)
	errors = append(errors, oneOf("battle.style", c.Battle.Style, battle.ValidStyles())...)
	errors = append(errors, inRange("battle.turn_interval_ms", c.Battle.TurnIntervalMs, 0, maxIntervalMs)...)
	errors = append(errors, inRange("battle.round_interval_ms", c.Battle.RoundIntervalMs, 0, maxIntervalMs)...)

	if c.Battle.MaxSessionMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "battle.max_session_minutes",
			Value:   c.Battle.MaxSessionMinutes,
			Message: "must be positive",
		})
	}

	return errors
}

// validateTimeouts validates the TimeoutConfig
func (c *Config) validateTimeouts() []ValidationError {
	var errors []ValidationError

	timeouts := []struct {
		field string
		value int
	}{
		{"timeouts.generation_ms", c.Timeouts.GenerationMs},
		{"timeouts.screening_ms", c.Timeouts.ScreeningMs},
		{"timeouts.audio_ms", c.Timeouts.AudioMs},
		{"timeouts.adjudication_ms", c.Timeouts.AdjudicationMs},
		{"timeouts.persistence_ms", c.Timeouts.PersistenceMs},
	}
	for _, t := range timeouts {
		errors = append(errors, inRange(t.field, t.value, 1, maxTimeoutMs)...)
	}

	return errors
}

// validateCompliance validates the ComplianceConfig
func (c *Config) validateCompliance() []ValidationError {
	var errors []ValidationError

	if c.Compliance.Threshold <= 0 || c.Compliance.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "compliance.threshold",
			Value:   c.Compliance.Threshold,
			Message: "must be greater than 0 and at most 1",
		})
	}

	errors = append(errors, inRange("compliance.max_attempts", c.Compliance.MaxAttempts, minAttempts, maxAttempts)...)

	if c.Compliance.RulesFile != "" {
		if _, err := os.Stat(c.Compliance.RulesFile); err != nil {
			errors = append(errors, ValidationError{
				Field:   "compliance.rules_file",
				Value:   c.Compliance.RulesFile,
				Message: "file does not exist",
			})
		}
	}

	return errors
}

// validateStorage validates the StorageConfig
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	errors = append(errors, oneOf("storage.driver", c.Storage.Driver, ValidStorageDrivers())...)

	if c.Storage.Driver == "sqlite" && strings.TrimSpace(c.Storage.SQLitePath) == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.sqlite_path",
			Value:   c.Storage.SQLitePath,
			Message: "is required when storage.driver is sqlite",
		})
	}

	if c.Provider.Synthesizer != "none" && strings.TrimSpace(c.Storage.AudioDir) == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.audio_dir",
			Value:   c.Storage.AudioDir,
			Message: "is required when audio synthesis is enabled",
		})
	}

	return errors
}

// validateCache validates the CacheConfig
func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError

	errors = append(errors, oneOf("cache.driver", c.Cache.Driver, ValidCacheDrivers())...)

	if c.Cache.Driver == "redis" && strings.TrimSpace(c.Cache.RedisAddr) == "" {
		errors = append(errors, ValidationError{
			Field:   "cache.redis_addr",
			Value:   c.Cache.RedisAddr,
			Message: "is required when cache.driver is redis",
		})
	}

	if c.Cache.RedisDB < 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.redis_db",
			Value:   c.Cache.RedisDB,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	for i, origin := range c.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("server.cors_origins[%d]", i),
				Value:   origin,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

// validateProvider validates the ProviderConfig
func (c *Config) validateProvider() []ValidationError {
	var errors []ValidationError

	errors = append(errors, oneOf("provider.generator", c.Provider.Generator, ValidGenerators())...)
	errors = append(errors, oneOf("provider.synthesizer", c.Provider.Synthesizer, ValidSynthesizers())...)
	errors = append(errors, oneOf("provider.adjudicator", c.Provider.Adjudicator, ValidAdjudicators())...)

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level == "" {
		return nil
	}
	return oneOf("logging.level", c.Logging.Level, ValidLogLevels())
}

// validateUI accepts a built-in theme name or an existing theme file
func (c *Config) validateUI() []ValidationError {
	theme := c.UI.Theme
	if theme == "" {
		return nil
	}
	if strings.HasSuffix(theme, ".yaml") || strings.HasSuffix(theme, ".yml") {
		if _, err := os.Stat(theme); err != nil {
			return []ValidationError{{Field: "ui.theme", Value: theme, Message: "theme file does not exist"}}
		}
		return nil
	}
	return oneOf("ui.theme", theme, styles.BuiltinThemes())
}
