package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Render modes.
const (
	RenderModeLocal  = "local"
	RenderModeGitHub = "github"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Repo   RepoConfig        `yaml:"repo"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Render RenderConfig      `yaml:"render"`
	Auth   AuthConfig        `yaml:"auth"`
	Tagger TaggerConfig      `yaml:"tagger"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Repo.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// RepoConfig holds the path to the content git repository.
type RepoConfig struct {
	Path       string `yaml:"path"`
	MainBranch string `yaml:"main_branch"`
}

// Validate validates the repository configuration.
func (c *RepoConfig) Validate() error {
	if c.MainBranch == "" {
		c.MainBranch = "main"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RenderConfig selects the markdown renderer.
//
// Mode controls which renderer converts article bodies to HTML:
//   - "local" (default): in-process goldmark with GFM extensions.
//   - "github": GitHub's markdown REST API; GitHubToken raises the rate limit.
type RenderConfig struct {
	Mode           string `yaml:"mode"`
	GitHubToken    string `yaml:"github_token"`
	GitHubEndpoint string `yaml:"github_endpoint"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = RenderModeLocal
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(RenderModeLocal, RenderModeGitHub)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// TaggerConfig controls the quarterly archive tag scheduler.
type TaggerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Repo: RepoConfig{
			Path:       "./content",
			MainBranch: "main",
		},
		SQLite: SQLiteConfig{
			Path: "./gitpress.db",
		},
		Render: RenderConfig{
			Mode: RenderModeLocal,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tagger: TaggerConfig{
			Enabled: true,
		},
	}
}
