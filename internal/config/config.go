package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cypher configuration
type Config struct {
	Battle     BattleConfig     `mapstructure:"battle" yaml:"battle"`
	Timeouts   TimeoutConfig    `mapstructure:"timeouts" yaml:"timeouts"`
	Compliance ComplianceConfig `mapstructure:"compliance" yaml:"compliance"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Provider   ProviderConfig   `mapstructure:"provider" yaml:"provider"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	UI         UIConfig         `mapstructure:"ui" yaml:"ui"`
}

// BattleConfig holds the default format and pacing of new sessions
type BattleConfig struct {
	// TurnsPerParticipant is the number of rounds; each MC speaks once per round
	TurnsPerParticipant int `mapstructure:"turns_per_participant" yaml:"turns_per_participant"`

	// BarsPerTurn is the requested verse length in lines
	BarsPerTurn int `mapstructure:"bars_per_turn" yaml:"bars_per_turn"`

	// TurnOrder is "fixed" (A first every round) or "alternating"
	TurnOrder string `mapstructure:"turn_order" yaml:"turn_order"`

	// Style is "battle", "answer" or "freestyle"
	Style string `mapstructure:"style" yaml:"style"`

	TurnIntervalMs    int `mapstructure:"turn_interval_ms" yaml:"turn_interval_ms"`
	RoundIntervalMs   int `mapstructure:"round_interval_ms" yaml:"round_interval_ms"`
	MaxSessionMinutes int `mapstructure:"max_session_minutes" yaml:"max_session_minutes"`
}

// TimeoutConfig bounds each external collaborator call
type TimeoutConfig struct {
	GenerationMs   int `mapstructure:"generation_ms" yaml:"generation_ms"`
	ScreeningMs    int `mapstructure:"screening_ms" yaml:"screening_ms"`
	AudioMs        int `mapstructure:"audio_ms" yaml:"audio_ms"`
	AdjudicationMs int `mapstructure:"adjudication_ms" yaml:"adjudication_ms"`
	PersistenceMs  int `mapstructure:"persistence_ms" yaml:"persistence_ms"`
}

// ComplianceConfig controls the screening gate
type ComplianceConfig struct {
	// Threshold is the minimum compliance score considered safe (0..1]
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`

	// MaxAttempts is the total number of generation attempts per turn (1..5)
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// RulesFile is an optional YAML rule file; empty uses the built-in rules
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
}

// StorageConfig selects the durable store and the audio artifact directory
type StorageConfig struct {
	// Driver is "memory" or "sqlite"
	Driver     string `mapstructure:"driver" yaml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	AudioDir   string `mapstructure:"audio_dir" yaml:"audio_dir"`
}

// CacheConfig selects the cache tier that also backs vote deduplication
type CacheConfig struct {
	// Driver is "memory" or "redis"
	Driver    string `mapstructure:"driver" yaml:"driver"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// ServerConfig controls the HTTP and websocket transport
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProviderConfig selects the collaborator bindings
type ProviderConfig struct {
	// Generator is "template", "anthropic" or "openai"
	Generator string `mapstructure:"generator" yaml:"generator"`

	// Synthesizer is "none" or "openai"
	Synthesizer string `mapstructure:"synthesizer" yaml:"synthesizer"`

	// Adjudicator is "votes", "anthropic" or "openai"
	Adjudicator string `mapstructure:"adjudicator" yaml:"adjudicator"`

	Model      string `mapstructure:"model" yaml:"model"`
	JudgeModel string `mapstructure:"judge_model" yaml:"judge_model"`
	Voice      string `mapstructure:"voice" yaml:"voice"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`

	// Dir is the log directory; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TelemetryConfig names the service in exported traces. The exporter
// endpoint is a credential-like setting read from the environment.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// UIConfig controls terminal output
type UIConfig struct {
	// Theme is a built-in theme name or the path of a YAML theme file
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Battle: BattleConfig{
			TurnsPerParticipant: 3,
			BarsPerTurn:         8,
			TurnOrder:           "fixed",
			Style:               "battle",
			TurnIntervalMs:      2000,
			RoundIntervalMs:     5000,
			MaxSessionMinutes:   120,
		},
		Timeouts: TimeoutConfig{
			GenerationMs:   30000,
			ScreeningMs:    5000,
			AudioMs:        20000,
			AdjudicationMs: 20000,
			PersistenceMs:  2000,
		},
		Compliance: ComplianceConfig{
			Threshold:   0.7,
			MaxAttempts: 3,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: filepath.Join(DataDir(), "cypher.db"),
			AudioDir:   filepath.Join(DataDir(), "audio"),
		},
		Cache: CacheConfig{
			Driver:    "memory",
			RedisAddr: "localhost:6379",
			KeyPrefix: "cypher",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Provider: ProviderConfig{
			Generator:   "template",
			Synthesizer: "none",
			Adjudicator: "votes",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "cypher",
		},
		UI: UIConfig{
			Theme: "default",
		},
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// TurnInterval returns the pause between the turns of a round
func (c *BattleConfig) TurnInterval() time.Duration { return millis(c.TurnIntervalMs) }

// RoundInterval returns the voting window after each round
func (c *BattleConfig) RoundInterval() time.Duration { return millis(c.RoundIntervalMs) }

// MaxSessionLifetime returns the force-end deadline of a session
func (c *BattleConfig) MaxSessionLifetime() time.Duration {
	return time.Duration(c.MaxSessionMinutes) * time.Minute
}

// Generation returns the generation call timeout
func (c *TimeoutConfig) Generation() time.Duration { return millis(c.GenerationMs) }

// Screening returns the screening call timeout
func (c *TimeoutConfig) Screening() time.Duration { return millis(c.ScreeningMs) }

// Audio returns the synthesis call timeout
func (c *TimeoutConfig) Audio() time.Duration { return millis(c.AudioMs) }

// Adjudication returns the adjudication call timeout
func (c *TimeoutConfig) Adjudication() time.Duration { return millis(c.AdjudicationMs) }

// Persistence returns the per-write persistence timeout
func (c *TimeoutConfig) Persistence() time.Duration { return millis(c.PersistenceMs) }

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Battle defaults
	viper.SetDefault("battle.turns_per_participant", defaults.Battle.TurnsPerParticipant)
	viper.SetDefault("battle.bars_per_turn", defaults.Battle.BarsPerTurn)
	viper.SetDefault("battle.turn_order", defaults.Battle.TurnOrder)
	viper.SetDefault("battle.style", defaults.Battle.Style)
	viper.SetDefault("battle.turn_interval_ms", defaults.Battle.TurnIntervalMs)
	viper.SetDefault("battle.round_interval_ms", defaults.Battle.RoundIntervalMs)
	viper.SetDefault("battle.max_session_minutes", defaults.Battle.MaxSessionMinutes)

	// Timeout defaults
	viper.SetDefault("timeouts.generation_ms", defaults.Timeouts.GenerationMs)
	viper.SetDefault("timeouts.screening_ms", defaults.Timeouts.ScreeningMs)
	viper.SetDefault("timeouts.audio_ms", defaults.Timeouts.AudioMs)
	viper.SetDefault("timeouts.adjudication_ms", defaults.Timeouts.AdjudicationMs)
	viper.SetDefault("timeouts.persistence_ms", defaults.Timeouts.PersistenceMs)

	// Compliance defaults
	viper.SetDefault("compliance.threshold", defaults.Compliance.Threshold)
	viper.SetDefault("compliance.max_attempts", defaults.Compliance.MaxAttempts)
	viper.SetDefault("compliance.rules_file", defaults.Compliance.RulesFile)

	// Storage defaults
	viper.SetDefault("storage.driver", defaults.Storage.Driver)
	viper.SetDefault("storage.sqlite_path", defaults.Storage.SQLitePath)
	viper.SetDefault("storage.audio_dir", defaults.Storage.AudioDir)

	// Cache defaults
	viper.SetDefault("cache.driver", defaults.Cache.Driver)
	viper.SetDefault("cache.redis_addr", defaults.Cache.RedisAddr)
	viper.SetDefault("cache.redis_db", defaults.Cache.RedisDB)
	viper.SetDefault("cache.key_prefix", defaults.Cache.KeyPrefix)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)

	// Provider defaults
	viper.SetDefault("provider.generator", defaults.Provider.Generator)
	viper.SetDefault("provider.synthesizer", defaults.Provider.Synthesizer)
	viper.SetDefault("provider.adjudicator", defaults.Provider.Adjudicator)
	viper.SetDefault("provider.model", defaults.Provider.Model)
	viper.SetDefault("provider.judge_model", defaults.Provider.JudgeModel)
	viper.SetDefault("provider.voice", defaults.Provider.Voice)
	viper.SetDefault("provider.base_url", defaults.Provider.BaseURL)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Telemetry defaults
	viper.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)

	// UI defaults
	viper.SetDefault("ui.theme", defaults.UI.Theme)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cypher")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cypher"
	}
	return filepath.Join(home, ".config", "cypher")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory for the SQLite database and audio files
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cypher")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cypher"
	}
	return filepath.Join(home, ".local", "share", "cypher")
}
