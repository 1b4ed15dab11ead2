package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ComplianceConfig holds the tunables of the tax-invoice compliance engine.
// Endpoint overrides redirect an authority environment to another base URL
// (sandbox stubs, contract tests).
type ComplianceConfig struct {
	Currency          string            `mapstructure:"currency"`
	CountryCode       string            `mapstructure:"countryCode"`
	AuthorityTimeout  time.Duration     `mapstructure:"authorityTimeout"`
	EndpointOverrides map[string]string `mapstructure:"endpointOverrides"`
}

// DefaultComplianceConfig returns the built-in defaults.
func DefaultComplianceConfig() ComplianceConfig {
	return ComplianceConfig{
		Currency:         "SAR",
		CountryCode:      "SA",
		AuthorityTimeout: 30 * time.Second,
	}
}

// ComplianceConfigHolder exposes the current config and hot-reloads it when
// the file changes.
type ComplianceConfigHolder struct {
	current atomic.Value // holds ComplianceConfig
}

// NewComplianceConfigHolder loads compliance.yml and starts watching it.
func NewComplianceConfigHolder() (*ComplianceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("compliance")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fatoora/config") // Volume-mounted config
	v.AddConfigPath("/etc/fatoora")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("FATOORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultComplianceConfig()
		v.SetDefault("compliance.currency", defaults.Currency)
		v.SetDefault("compliance.countryCode", defaults.CountryCode)
		v.SetDefault("compliance.authorityTimeout", defaults.AuthorityTimeout)
	}

	var cfg ComplianceConfig
	if err := v.UnmarshalKey("compliance", &cfg); err != nil {
		return nil, err
	}
	if err := validateComplianceConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ComplianceConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ComplianceConfig
		if err := v.UnmarshalKey("compliance", &updated); err != nil {
			log.Printf("[compliance-config] reload failed: %v", err)
			return
		}
		if err := validateComplianceConfig(updated); err != nil {
			log.Printf("[compliance-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[compliance-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active config snapshot.
func (h *ComplianceConfigHolder) Current() ComplianceConfig {
	cfg, _ := h.current.Load().(ComplianceConfig)
	if cfg.Currency == "" {
		return DefaultComplianceConfig()
	}
	return cfg
}

func validateComplianceConfig(cfg ComplianceConfig) error {
	if cfg.Currency == "" {
		cfg.Currency = "SAR"
	}
	if len(cfg.Currency) != 3 {
		return errors.New("compliance currency must be a 3-letter ISO code")
	}
	if cfg.CountryCode != "" && len(cfg.CountryCode) != 2 {
		return errors.New("compliance countryCode must be a 2-letter ISO code")
	}
	if cfg.AuthorityTimeout < 0 {
		return errors.New("compliance authorityTimeout must not be negative")
	}
	return nil
}
