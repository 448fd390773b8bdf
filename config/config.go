package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yaron8/lossreport-infra/charts"
	"github.com/yaron8/lossreport-infra/repair"
)

type Config struct {
	ResultsFolder string       `yaml:"results_folder"` // campaign folders to report on
	OutputFolder  string       `yaml:"output_folder"`  // root of all generated files
	Workers       int          `yaml:"workers"`        // scenario tasks run in parallel, 1 = sequential
	Excel         bool         `yaml:"excel"`          // also write .xlsx next to every .csv
	Charts        ChartsConfig `yaml:"charts"`
	Repair        RepairConfig `yaml:"repair"`
	Log           LogConfig    `yaml:"log"`
	Redis         RedisConfig  `yaml:"redis"`
	API           APIConfig    `yaml:"api"`
}

type ChartsConfig struct {
	Format    string `yaml:"format"` // png or svg
	Histogram bool   `yaml:"histogram"`
}

type RepairConfig struct {
	Algorithm string `yaml:"algorithm"` // rescan or suffix-min
}

type LogConfig struct {
	Dir    string `yaml:"dir"`
	Level  string `yaml:"level"`
	Stderr bool   `yaml:"stderr"`
}

type RedisConfig struct {
	Enabled bool          `yaml:"enabled"` // publish report rows after every run
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	TTL     time.Duration `yaml:"ttl"` // 0 keeps records forever
}

type APIConfig struct {
	Port     int           `yaml:"port"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// NewConfig returns the defaults with environment overrides applied.
func NewConfig() *Config {
	cfg := &Config{Excel: true}
	cfg.setDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file, fills unset fields with defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	// bools cannot be told apart from unset after decoding
	cfg := &Config{Excel: true}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.setDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.ResultsFolder == "" {
		c.ResultsFolder = "results"
	}
	if c.OutputFolder == "" {
		c.OutputFolder = "output"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Charts.Format == "" {
		c.Charts.Format = charts.FormatPNG
	}
	if c.Repair.Algorithm == "" {
		c.Repair.Algorithm = repair.AlgorithmRescan
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.CacheTTL == 0 {
		c.API.CacheTTL = 10 * time.Second
	}
}

func (c *Config) applyEnv() {
	// Read Redis host from environment variable
	if host := os.Getenv("LOSSREPORT_REDIS_HOST"); host != "" {
		c.Redis.Host = host
	}

	// Read Redis port from environment variable
	if portStr := os.Getenv("LOSSREPORT_REDIS_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Redis.Port = port
		}
	}

	if out := os.Getenv("LOSSREPORT_OUTPUT"); out != "" {
		c.OutputFolder = out
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Charts.Format != charts.FormatPNG && c.Charts.Format != charts.FormatSVG {
		errs = append(errs, fmt.Errorf("charts.format must be png or svg, got %q", c.Charts.Format))
	}
	if _, err := repair.ByName(c.Repair.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port out of range: %d", c.Redis.Port))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl must not be negative"))
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}
	return errors.Join(errs...)
}

// RedisAddr returns host:port of the result store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
