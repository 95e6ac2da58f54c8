// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"pharmetrics/internal/metrics"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Region settings: which partners exist and which of them have no
	// tag-based pharmacy segment. Both are comma-separated lists.
	RegionName           string `mapstructure:"region"`
	PartnerList          string `mapstructure:"partners"`
	NoTagSegmentPartners string `mapstructure:"notagsegmentpartners"`

	// PartnerFailurePolicy names how a partial per-partner retrieval
	// failure is handled: "fail_fast" or "zero_fill_flagged".
	PartnerFailurePolicy string `mapstructure:"partnerfailurepolicy"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "pharmetrics")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("region", "es")
		v.SetDefault("partners", "luda,farmabook,shortage")
		v.SetDefault("notagsegmentpartners", "shortage")
		v.SetDefault("partnerfailurepolicy", string(metrics.ZeroFillFlagged))

		// Bind environment variables
		v.BindEnv("appname", "PHARMETRICS_APP_NAME")
		v.BindEnv("appport", "PHARMETRICS_APP_PORT")
		v.BindEnv("environment", "PHARMETRICS_ENV")
		v.BindEnv("loglevel", "PHARMETRICS_LOG_LEVEL")
		v.BindEnv("storagepath", "PHARMETRICS_STORAGE_PATH")
		v.BindEnv("logsdir", "PHARMETRICS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "PHARMETRICS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "PHARMETRICS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "PHARMETRICS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "PHARMETRICS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "PHARMETRICS_DB_MAX_IDLE_CONNS")
		v.BindEnv("region", "PHARMETRICS_REGION")
		v.BindEnv("partners", "PHARMETRICS_PARTNERS")
		v.BindEnv("notagsegmentpartners", "PHARMETRICS_NO_TAG_SEGMENT_PARTNERS")
		v.BindEnv("partnerfailurepolicy", "PHARMETRICS_PARTNER_FAILURE_POLICY")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if _, ok := metrics.ParseFailurePolicy(c.PartnerFailurePolicy); !ok {
		return fmt.Errorf("invalid partner failure policy: %s", c.PartnerFailurePolicy)
	}

	if strings.TrimSpace(c.PartnerList) == "" {
		return fmt.Errorf("at least one partner must be configured")
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability on a shared in-memory database)
// - Development/Production: 10 (allows concurrent reads for parallel fan-out queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetFailurePolicy returns the validated partner failure policy.
func (c *Config) GetFailurePolicy() metrics.FailurePolicy {
	policy, _ := metrics.ParseFailurePolicy(c.PartnerFailurePolicy)
	return policy
}

// GetRegionConfig builds the explicit region configuration handed to the
// partner aggregator. Partner affiliation tags follow the "partner:<id>"
// convention used by the pharmacy registry.
func (c *Config) GetRegionConfig() metrics.RegionConfig {
	noTag := map[string]bool{}
	for _, id := range splitList(c.NoTagSegmentPartners) {
		noTag[id] = true
	}

	var partners []metrics.Partner
	for _, id := range splitList(c.PartnerList) {
		p := metrics.Partner{ID: id, HasTagSegment: !noTag[id]}
		if p.HasTagSegment {
			p.Tags = []string{"partner:" + id}
		}
		partners = append(partners, p)
	}

	return metrics.RegionConfig{
		Name:     c.RegionName,
		Partners: partners,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
