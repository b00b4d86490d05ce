// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Timeouts() TimeoutsConfig
	Store() StoreConfig

	// ActiveProfile returns the timeout profile selected by timeouts.constrained.
	ActiveProfile() TimeoutProfile

	SetBrowserHeadless(bool)
	SetConstrained(bool)
	SetStoreURL(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	TimeoutsCfg TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	StoreCfg    StoreConfig    `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

// --- Getters ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Timeouts() TimeoutsConfig { return c.TimeoutsCfg }
func (c *Config) Store() StoreConfig       { return c.StoreCfg }

// ActiveProfile picks the constrained profile when running headless in CI-like
// environments and the interactive profile otherwise. The switch is static;
// nothing adapts it at runtime.
func (c *Config) ActiveProfile() TimeoutProfile {
	if c.TimeoutsCfg.Constrained {
		p := c.TimeoutsCfg.Profiles.Constrained
		p.Name = ProfileConstrained
		return p
	}
	p := c.TimeoutsCfg.Profiles.Interactive
	p.Name = ProfileInteractive
	return p
}

// --- Setters ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }
func (c *Config) SetConstrained(b bool)     { c.TimeoutsCfg.Constrained = b }
func (c *Config) SetStoreURL(url string) {
	c.StoreCfg.URL = url
	c.StoreCfg.Enabled = url != ""
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds what the CLI needs to obtain a driver. Launch tuning
// beyond this belongs to the suite that embeds the engine.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath overrides the Chrome binary; empty uses chromedp's discovery.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// RemoteURL attaches to an already running browser's DevTools endpoint instead of launching one.
	RemoteURL string   `mapstructure:"remote_url" yaml:"remote_url"`
	Args      []string `mapstructure:"args" yaml:"args"`
	Width     int      `mapstructure:"width" yaml:"width"`
	Height    int      `mapstructure:"height" yaml:"height"`
}

// Profile names.
const (
	ProfileInteractive = "interactive"
	ProfileConstrained = "constrained"
)

// TimeoutProfile groups every timing knob of the engine. The grace and settle
// delays are tuned per target application.
type TimeoutProfile struct {
	Name string `mapstructure:"-" yaml:"-"`
	// Resolve bounds locator resolution when the caller passes no timeout.
	Resolve time.Duration `mapstructure:"resolve" yaml:"resolve"`
	// PollInterval paces resolver passes and window/readiness polling.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// ScrollSettle is the pause between scroll-into-view and the action.
	ScrollSettle time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	// KeyPacing is the delay between characters for per-character typing.
	KeyPacing time.Duration `mapstructure:"key_pacing" yaml:"key_pacing"`
	// SpawnWindow bounds AwaitSpawnedWindow when the caller passes no timeout.
	SpawnWindow time.Duration `mapstructure:"spawn_window" yaml:"spawn_window"`
	// DomSettle bounds the readyState wait of AwaitDomSettled.
	DomSettle time.Duration `mapstructure:"dom_settle" yaml:"dom_settle"`
	// DomGrace is the fixed delay added after readyState reports complete.
	DomGrace time.Duration `mapstructure:"dom_grace" yaml:"dom_grace"`
	// Navigation bounds page loads issued by the CLI.
	Navigation time.Duration `mapstructure:"navigation" yaml:"navigation"`
}

// ProfilesConfig holds both timeout profiles.
type ProfilesConfig struct {
	Interactive TimeoutProfile `mapstructure:"interactive" yaml:"interactive"`
	Constrained TimeoutProfile `mapstructure:"constrained" yaml:"constrained"`
}

// TimeoutsConfig selects and holds the timeout profiles.
type TimeoutsConfig struct {
	// Constrained selects the constrained (headless/CI) profile. Bound to UIHARNESS_CONSTRAINED.
	Constrained bool           `mapstructure:"constrained" yaml:"constrained"`
	Profiles    ProfilesConfig `mapstructure:"profiles" yaml:"profiles"`
}

// StoreConfig configures the PostgreSQL outcome store used for failure-pattern analysis.
type StoreConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	URL      string `mapstructure:"url" yaml:"-"`
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiharness")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.width", 1920)
	v.SetDefault("browser.height", 1080)

	// -- Timeouts --
	v.SetDefault("timeouts.constrained", false)

	v.SetDefault("timeouts.profiles.interactive.resolve", "10s")
	v.SetDefault("timeouts.profiles.interactive.poll_interval", "250ms")
	v.SetDefault("timeouts.profiles.interactive.scroll_settle", "200ms")
	v.SetDefault("timeouts.profiles.interactive.key_pacing", "80ms")
	v.SetDefault("timeouts.profiles.interactive.spawn_window", "10s")
	v.SetDefault("timeouts.profiles.interactive.dom_settle", "20s")
	v.SetDefault("timeouts.profiles.interactive.dom_grace", "500ms")
	v.SetDefault("timeouts.profiles.interactive.navigation", "30s")

	v.SetDefault("timeouts.profiles.constrained.resolve", "30s")
	v.SetDefault("timeouts.profiles.constrained.poll_interval", "500ms")
	v.SetDefault("timeouts.profiles.constrained.scroll_settle", "500ms")
	v.SetDefault("timeouts.profiles.constrained.key_pacing", "150ms")
	v.SetDefault("timeouts.profiles.constrained.spawn_window", "30s")
	v.SetDefault("timeouts.profiles.constrained.dom_settle", "60s")
	v.SetDefault("timeouts.profiles.constrained.dom_grace", "2s")
	v.SetDefault("timeouts.profiles.constrained.navigation", "90s")

	// -- Store --
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.max_conns", 4)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The profile switch and the store DSN come from the environment in CI.
	_ = v.BindEnv("timeouts.constrained", "UIHARNESS_CONSTRAINED", "CI")
	_ = v.BindEnv("store.url", "UIHARNESS_STORE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// A DSN on its own is enough to turn persistence on.
	if cfg.StoreCfg.URL != "" {
		cfg.StoreCfg.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.TimeoutsCfg.Profiles.Interactive.Validate(); err != nil {
		return fmt.Errorf("timeouts.profiles.interactive: %w", err)
	}
	if err := c.TimeoutsCfg.Profiles.Constrained.Validate(); err != nil {
		return fmt.Errorf("timeouts.profiles.constrained: %w", err)
	}
	if c.StoreCfg.Enabled && c.StoreCfg.URL == "" {
		return fmt.Errorf("store.url is required when store.enabled is true")
	}
	if c.StoreCfg.MaxConns < 0 {
		return fmt.Errorf("store.max_conns must not be negative")
	}
	return nil
}

// Validate checks that every duration of the profile is usable.
func (p TimeoutProfile) Validate() error {
	positive := map[string]time.Duration{
		"resolve":       p.Resolve,
		"poll_interval": p.PollInterval,
		"spawn_window":  p.SpawnWindow,
		"dom_settle":    p.DomSettle,
		"navigation":    p.Navigation,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	nonNegative := map[string]time.Duration{
		"scroll_settle": p.ScrollSettle,
		"key_pacing":    p.KeyPacing,
		"dom_grace":     p.DomGrace,
	}
	for name, d := range nonNegative {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if p.PollInterval > p.Resolve {
		return fmt.Errorf("poll_interval (%v) must not exceed resolve (%v)", p.PollInterval, p.Resolve)
	}
	return nil
}
