package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Accounts AccountsConfig    `yaml:"accounts"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Engine   EngineConfig      `yaml:"engine"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Forecast ForecastConfig    `yaml:"forecast"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []validation.Validatable{
		&c.App, &c.Accounts, &c.Catalog, &c.Engine, &c.Autosave, &c.Forecast, &c.Auth,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AccountsConfig holds the directory of account files.
type AccountsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the accounts configuration.
func (c *AccountsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CatalogConfig holds the SQLite catalog location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

var httpURL = regexp.MustCompile(`^https?://[^\s/]+`)

// EngineConfig points at the simulation engine.
type EngineConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(httpURL).Error("must be an http(s) URL")),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// AutosaveConfig holds the debounce window of edit sessions.
type AutosaveConfig struct {
	Window time.Duration `yaml:"window"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Window, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// ForecastConfig holds forecast runner settings.
type ForecastConfig struct {
	MinVisible time.Duration `yaml:"min_visible"`
}

// Validate validates the forecast configuration.
func (c *ForecastConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinVisible, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Accounts: AccountsConfig{Path: "./accounts"},
		Catalog:  CatalogConfig{Path: "./tortoise.db"},
		Engine: EngineConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Autosave: AutosaveConfig{Window: time.Second},
		Forecast: ForecastConfig{MinVisible: 250 * time.Millisecond},
		Auth:     AuthConfig{Mode: AuthModeDisabled},
	}
}
