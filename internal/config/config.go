package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultNodes is the default Hive API node list, used when the config
// does not provide one.
var DefaultNodes = []string{
	"https://api.hive.blog",
	"https://hived.emre.sh",
	"https://api.deathwing.me",
	"https://rpc.ausbit.dev",
	"https://rpc.ecency.com",
	"https://hive-api.arcange.eu",
	"https://api.openhive.network",
	"https://techcoderx.com",
	"https://rpc.mahdiyari.info",
}

const (
	defaultTimeout      = 30 * time.Second
	defaultBackoff      = 100 * time.Millisecond
	defaultPollInterval = 3 * time.Second
)

// Config holds the YAML configuration.
type Config struct {
	Version   int         `yaml:"version"`
	Account   string      `yaml:"account"`
	SignerURL string      `yaml:"signer_url"`
	Hive      HiveConfig  `yaml:"hive"`
	Watch     WatchConfig `yaml:"watch"`
	Post      PostConfig  `yaml:"post"`
}

type HiveConfig struct {
	Nodes   []string `yaml:"nodes"`
	Timeout string   `yaml:"timeout"`
	Backoff string   `yaml:"backoff"`
}

type WatchConfig struct {
	PollInterval string `yaml:"poll_interval"`
	DBPath       string `yaml:"db_path"`
	WebhookURL   string `yaml:"webhook_url"`
	Template     string `yaml:"template"`
}

type PostConfig struct {
	Medium string `yaml:"medium"`
	Reason string `yaml:"reason"`
	DryRun bool   `yaml:"dry_run"`
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads, interpolates env vars, parses YAML, and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if len(c.Hive.Nodes) == 0 {
		c.Hive.Nodes = append([]string(nil), DefaultNodes...)
	}
	if c.Post.Medium == "" {
		c.Post.Medium = "podcast"
	}
	if c.Post.Reason == "" {
		c.Post.Reason = "update"
	}
}

// Validate performs small, direct schema checks.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return errors.New("version is required")
	}
	for _, n := range c.Hive.Nodes {
		if err := checkHTTPURL(n); err != nil {
			return fmt.Errorf("node %q: %w", n, err)
		}
	}
	if _, err := parseDuration(c.Hive.Timeout, defaultTimeout); err != nil {
		return fmt.Errorf("hive.timeout: %w", err)
	}
	if _, err := parseDuration(c.Hive.Backoff, defaultBackoff); err != nil {
		return fmt.Errorf("hive.backoff: %w", err)
	}
	if _, err := parseDuration(c.Watch.PollInterval, defaultPollInterval); err != nil {
		return fmt.Errorf("watch.poll_interval: %w", err)
	}
	if c.Watch.WebhookURL != "" {
		if err := checkHTTPURL(c.Watch.WebhookURL); err != nil {
			return fmt.Errorf("watch.webhook_url: %w", err)
		}
	}
	if c.SignerURL != "" {
		if err := checkHTTPURL(c.SignerURL); err != nil {
			return fmt.Errorf("signer_url: %w", err)
		}
	}
	return nil
}

// Timeout returns the per-call RPC timeout.
func (c *HiveConfig) TimeoutValue() time.Duration {
	d, _ := parseDuration(c.Timeout, defaultTimeout)
	return d
}

// BackoffValue returns the failover backoff between node attempts.
func (c *HiveConfig) BackoffValue() time.Duration {
	d, _ := parseDuration(c.Backoff, defaultBackoff)
	return d
}

// PollIntervalValue returns the watcher sleep between head checks.
func (c *WatchConfig) PollIntervalValue() time.Duration {
	d, _ := parseDuration(c.PollInterval, defaultPollInterval)
	return d
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
