package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultPremisesURL = "https://opendata.leeds.gov.uk/downloads/bins/dm_premises.csv"
	DefaultJobsURL     = "https://opendata.leeds.gov.uk/downloads/bins/dm_jobs.csv"
)

type FeedConfig struct {
	PremisesURL     string        `yaml:"premisesUrl"`
	JobsURL         string        `yaml:"jobsUrl"`
	ProbeTimeout    time.Duration `yaml:"probeTimeout"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
	UserAgent       string        `yaml:"userAgent"`
}

type PollConfig struct {
	FastInterval   time.Duration `yaml:"fastInterval"`   // used while any category is awaiting data
	MediumInterval time.Duration `yaml:"mediumInterval"` // first steady interval
	LongInterval   time.Duration `yaml:"longInterval"`   // after one more successful steady cycle
	SyncInterval   time.Duration `yaml:"syncInterval"`   // how often `run` re-reads the registration store
}

type StorageConfig struct {
	CacheDir string `yaml:"cacheDir"`
	Database string `yaml:"database"`
}

type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	Feed     FeedConfig    `yaml:"feed"`
	Poll     PollConfig    `yaml:"poll"`
	Storage  StorageConfig `yaml:"storage"`
	Server   ServerConfig  `yaml:"server"`
	Timezone string        `yaml:"timezone"`
	Debug    bool          `yaml:"debug"`
}

// Default returns a config usable without any file on disk.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads a YAML config. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	c := &Config{}

	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		c.ApplyDefaults()
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyDefaults fills every zero field.
func (c *Config) ApplyDefaults() {
	if c.Feed.PremisesURL == "" {
		c.Feed.PremisesURL = DefaultPremisesURL
	}
	if c.Feed.JobsURL == "" {
		c.Feed.JobsURL = DefaultJobsURL
	}
	if c.Feed.ProbeTimeout == 0 {
		c.Feed.ProbeTimeout = 30 * time.Second
	}
	if c.Feed.DownloadTimeout == 0 {
		c.Feed.DownloadTimeout = 200 * time.Second
	}
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = "binday/1.0"
	}
	if c.Poll.FastInterval == 0 {
		c.Poll.FastInterval = 30 * time.Second
	}
	if c.Poll.MediumInterval == 0 {
		c.Poll.MediumInterval = 10 * time.Minute
	}
	if c.Poll.LongInterval == 0 {
		c.Poll.LongInterval = time.Hour
	}
	if c.Poll.SyncInterval == 0 {
		c.Poll.SyncInterval = 30 * time.Second
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = "cache"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "binday.db"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8089"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:8089"}
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/London"
	}
}

func (c *Config) Validate() error {
	if c.Poll.FastInterval < 0 || c.Poll.MediumInterval < 0 || c.Poll.LongInterval < 0 || c.Poll.SyncInterval < 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.Feed.ProbeTimeout < 0 || c.Feed.DownloadTimeout < 0 {
		return fmt.Errorf("feed timeouts must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
