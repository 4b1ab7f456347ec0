package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Credentials holds secrets that are only ever read from the environment,
// never from the config file.
type Credentials struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	RedisPassword   string `env:"CYPHER_REDIS_PASSWORD"`
	OTelEndpoint    string `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	Version         string `env:"CYPHER_VERSION" envDefault:"dev"`
}

// LoadCredentials parses Credentials from the process environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse env: %w", err)
	}
	return creds, nil
}

// CredentialsFrom parses Credentials from an explicit variable map.
func CredentialsFrom(vars map[string]string) (Credentials, error) {
	var creds Credentials
	if err := env.ParseWithOptions(&creds, env.Options{Environment: vars}); err != nil {
		return Credentials{}, fmt.Errorf("parse env: %w", err)
	}
	return creds, nil
}

// Require reports the credentials missing for the configured providers.
func (c Credentials) Require(p ProviderConfig) []ValidationError {
	var errors []ValidationError
	needs := map[string]bool{}
	for _, binding := range []string{p.Generator, p.Synthesizer, p.Adjudicator} {
		needs[binding] = true
	}

	if needs["anthropic"] && c.AnthropicAPIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "ANTHROPIC_API_KEY",
			Value:   "",
			Message: "is required by the anthropic provider",
		})
	}
	if needs["openai"] && c.OpenAIAPIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "OPENAI_API_KEY",
			Value:   "",
			Message: "is required by the openai provider",
		})
	}
	return errors
}
