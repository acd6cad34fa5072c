package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Defaults for the host configuration
const (
	DefaultManifestURL  = "https://artifacts.semdex.dev/manifest.json"
	DefaultMaxIndexSize = int64(50 << 20) // 50 MB collection budget
	DefaultPollInterval = 60 * time.Second
	DefaultDebounce     = 2 * time.Second
)

// Config holds the host-side settings
type Config struct {
	ManifestURL        string        `mapstructure:"manifest_url"`
	InstallDir         string        `mapstructure:"install_dir"`
	DataDir            string        `mapstructure:"data_dir"`
	Roots              []string      `mapstructure:"roots"`
	MaxIndexSizeBytes  int64         `mapstructure:"max_index_size_bytes"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	DebounceInterval   time.Duration `mapstructure:"debounce_interval"`
	VectorIndexEnabled bool          `mapstructure:"vector_index_enabled"`
	StartURL           string        `mapstructure:"start_url"`
}

// SocketPath is where the index server listens
func (c *Config) SocketPath() string {
	return filepath.Join(c.DataDir, "engine.sock")
}

// DBPath is where the index database lives
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "index.db")
}

// Load reads configuration from defaults, an optional config file, and
// SEMDEX_* environment variables, in increasing order of precedence
func Load(path string) (*Config, error) {
	v := viper.New()

	baseDir := defaultBaseDir()
	v.SetDefault("manifest_url", DefaultManifestURL)
	v.SetDefault("install_dir", filepath.Join(baseDir, "install"))
	v.SetDefault("data_dir", filepath.Join(baseDir, "data"))
	v.SetDefault("roots", []string{})
	v.SetDefault("max_index_size_bytes", DefaultMaxIndexSize)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("debounce_interval", DefaultDebounce)
	v.SetDefault("vector_index_enabled", false)
	v.SetDefault("start_url", "")

	v.SetEnvPrefix("SEMDEX")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("semdex")
		v.SetConfigType("yaml")
		if home, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "semdex"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ManifestURL == "" {
		return fmt.Errorf("manifest_url must not be empty")
	}
	if c.MaxIndexSizeBytes <= 0 {
		return fmt.Errorf("max_index_size_bytes must be positive, got %d", c.MaxIndexSizeBytes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

func defaultBaseDir() string {
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "semdex")
	}
	return filepath.Join(os.TempDir(), "semdex")
}
