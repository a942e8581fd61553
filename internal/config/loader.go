// Package config loads searchload configuration from defaults, an
// optional config file, and SEARCHLOAD_-prefixed environment variables,
// in increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	// Store configures the destination search store connection.
	Store StoreConfig `mapstructure:"store"`

	// AWS configures the client used for object storage and queues.
	AWS AWSConfig `mapstructure:"aws"`

	// DeadLetter configures failure reporting.
	DeadLetter DeadLetterConfig `mapstructure:"dead_letter"`

	// Load configures ingestion tunables.
	Load LoadConfig `mapstructure:"load"`

	// Safety configures index-guard thresholds.
	Safety SafetyConfig `mapstructure:"safety"`

	// LedgerPath is the progress ledger file location.
	LedgerPath string `mapstructure:"ledger_path"`

	// ReportPath is where run reports are written.
	ReportPath string `mapstructure:"report_path"`

	// Server configures the local ops HTTP server.
	Server ServerConfig `mapstructure:"server"`
}

// StoreConfig holds the search store connection settings.
type StoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
}

// AWSConfig holds shared AWS client settings.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Profile  string `mapstructure:"profile"`
}

// DeadLetterConfig holds failure-queue settings.
type DeadLetterConfig struct {
	QueueURL string `mapstructure:"queue_url"`
	Enabled  bool   `mapstructure:"enabled"`
}

// LoadConfig holds ingestion tunables.
type LoadConfig struct {
	BatchSize int     `mapstructure:"batch_size"`
	Workers   int     `mapstructure:"workers"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// SafetyConfig holds index-guard thresholds.
type SafetyConfig struct {
	// CleanupThreshold is the document count above which a pre-load
	// cleanup recreates the index instead of purging it.
	CleanupThreshold int64 `mapstructure:"cleanup_threshold"`

	// DriftThreshold is the maximum percentage count difference allowed
	// during alias cutover.
	DriftThreshold float64 `mapstructure:"drift_threshold"`
}

// ServerConfig holds ops server settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load reads configuration with precedence env > file > defaults.
// configFile may be empty; a named file that cannot be read is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.endpoint", "http://localhost:9200")
	v.SetDefault("store.verify_ssl", true)
	v.SetDefault("dead_letter.enabled", false)
	v.SetDefault("load.batch_size", 1000)
	v.SetDefault("load.workers", 4)
	v.SetDefault("load.rate_limit", 0.0)
	v.SetDefault("safety.cleanup_threshold", 1_000_000)
	v.SetDefault("safety.drift_threshold", 10.0)
	v.SetDefault("ledger_path", ".searchload/ledger.json")
	v.SetDefault("report_path", ".searchload/report.json")
	v.SetDefault("server.listen", "localhost:8080")

	v.SetEnvPrefix("SEARCHLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = false
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges after loading.
func (c *Config) Validate() error {
	if c.Store.Endpoint == "" {
		return fmt.Errorf("store.endpoint must be set")
	}
	if c.Load.BatchSize <= 0 {
		return fmt.Errorf("load.batch_size must be positive")
	}
	if c.Load.Workers <= 0 {
		return fmt.Errorf("load.workers must be positive")
	}
	if c.Safety.CleanupThreshold <= 0 {
		return fmt.Errorf("safety.cleanup_threshold must be positive")
	}
	if c.Safety.DriftThreshold <= 0 || c.Safety.DriftThreshold > 100 {
		return fmt.Errorf("safety.drift_threshold must be in (0, 100]")
	}
	if c.DeadLetter.Enabled && c.DeadLetter.QueueURL == "" {
		return fmt.Errorf("dead_letter.queue_url must be set when dead_letter.enabled is true")
	}
	return nil
}
