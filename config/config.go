// Package config loads the server settings from defaults, an optional
// YAML file and DHFORM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"dh-form/service"
)

type RateLimit struct {
	Capacity int           `yaml:"capacity"`
	Refill   time.Duration `yaml:"refill"`
}

type Config struct {
	Addr           string        `yaml:"addr"`
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RedisAddr      string        `yaml:"redis_addr"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	DBPath         string        `yaml:"db_path"`
	RateLimit      RateLimit     `yaml:"rate_limit"`
	MaxRows        int           `yaml:"max_rows"`
	NoticeDuration time.Duration `yaml:"notice_duration"`
}

func Default() Config {
	return Config{
		Addr:           ":8080",
		Endpoint:       service.DefaultEndpoint,
		RequestTimeout: 0,
		SessionTTL:     service.DefaultSessionTTL,
		RateLimit: RateLimit{
			Capacity: 30,
			Refill:   time.Minute,
		},
		MaxRows:        service.DefaultMaxRows,
		NoticeDuration: service.DefaultNoticeDuration,
	}
}

// Load reads path over the defaults (an empty path skips the file), then
// applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DHFORM_ADDR":       &c.Addr,
		"DHFORM_ENDPOINT":   &c.Endpoint,
		"DHFORM_REDIS_ADDR": &c.RedisAddr,
		"DHFORM_DB_PATH":    &c.DBPath,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"DHFORM_REQUEST_TIMEOUT": &c.RequestTimeout,
		"DHFORM_SESSION_TTL":     &c.SessionTTL,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("DHFORM_MAX_ROWS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DHFORM_MAX_ROWS: %w", err)
		}
		c.MaxRows = n
	}
	return nil
}

// FormOptions maps the session and form settings onto the service.
func (c Config) FormOptions() service.FormOptions {
	return service.FormOptions{
		SessionTTL:     c.SessionTTL,
		MaxRows:        c.MaxRows,
		NoticeDuration: c.NoticeDuration,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint %q must be an absolute http(s) URL", c.Endpoint))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.Refill <= 0 {
		errs = append(errs, errors.New("rate_limit capacity and refill must be positive"))
	}
	if c.MaxRows < 0 {
		errs = append(errs, errors.New("max_rows must not be negative"))
	}
	if c.NoticeDuration <= 0 {
		errs = append(errs, errors.New("notice_duration must be positive"))
	}
	return errors.Join(errs...)
}
