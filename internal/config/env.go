package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment holds process-level configuration read once at startup.
// User-editable settings live in the JSON store; these are deployment knobs.
type Environment struct {
	APIBaseURL string `env:"TRAINER_API_BASE_URL" envDefault:"http://localhost:8000/api"`
	LogMode    string `env:"TRAINER_LOG_MODE" envDefault:"dev"`
}

// ParseEnv loads the environment configuration.
func ParseEnv() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
