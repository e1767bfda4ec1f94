// Package config loads client configuration from environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds everything the session client needs at startup.
type Config struct {
	AppName    string `env:"CRM_APP_NAME" envDefault:"CRM Auth"`
	APIBaseURL string `env:"CRM_API_BASE_URL" envDefault:"http://localhost:3001/api"`

	LoginPath        string `env:"CRM_LOGIN_PATH" envDefault:"/login"`
	LandingPath      string `env:"CRM_LANDING_PATH" envDefault:"/dashboard"`
	IntegrationsPath string `env:"CRM_INTEGRATIONS_PATH" envDefault:"/integrations"`

	ErrorRedirectDelay   time.Duration `env:"CRM_ERROR_REDIRECT_DELAY" envDefault:"3s"`
	SuccessRedirectDelay time.Duration `env:"CRM_SUCCESS_REDIRECT_DELAY" envDefault:"2s"`

	// When TokenFile is set the encrypted file store is used instead of the
	// in-memory one; the passphrase is then required.
	TokenFile           string `env:"CRM_TOKEN_FILE"`
	TokenFilePassphrase string `env:"CRM_TOKEN_PASSPHRASE"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] parsing environment")
	}
	if cfg.TokenFile != "" && cfg.TokenFilePassphrase == "" {
		return Config{}, errors.New("[config.Load] CRM_TOKEN_PASSPHRASE is required when CRM_TOKEN_FILE is set")
	}
	return cfg, nil
}
