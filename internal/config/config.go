package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "MOMENTOS"
	defaultHTTPAddress    = "127.0.0.1:3000"
	defaultAPIBaseURL     = "http://localhost:8080"
	defaultAPITimeout     = 30
	defaultDatabasePath   = "momentos.db"
	defaultLogLevel       = "info"
	defaultDismissSeconds = 10
)

// AppConfig captures runtime configuration for the journal client.
type AppConfig struct {
	HTTPAddress    string
	APIBaseURL     string
	APITimeout     time.Duration
	AllowedOrigins []string
	SessionSecret  string
	SecureCookies  bool
	DatabasePath   string
	LogLevel       string
	DismissAfter   time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{})
	configViper.SetDefault("http.session_secret", "")
	configViper.SetDefault("http.secure_cookies", false)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.timeout_seconds", defaultAPITimeout)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("status.dismiss_seconds", defaultDismissSeconds)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		APIBaseURL:     strings.TrimSpace(configViper.GetString("api.base_url")),
		APITimeout:     time.Duration(configViper.GetInt("api.timeout_seconds")) * time.Second,
		AllowedOrigins: configViper.GetStringSlice("http.allowed_origins"),
		SessionSecret:  configViper.GetString("http.session_secret"),
		SecureCookies:  configViper.GetBool("http.secure_cookies"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		DismissAfter:   time.Duration(configViper.GetInt("status.dismiss_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.DismissAfter <= 0 {
		return fmt.Errorf("status.dismiss_seconds must be positive")
	}
	return nil
}
