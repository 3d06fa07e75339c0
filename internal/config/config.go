package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tyhouch/openroles.dev/internal/model"
)

// Config is the root configuration for the openroles tracker.
type Config struct {
	Database  DatabaseConfig
	Employers []EmployerConfig
	OpenAI    OpenAIConfig
	Enrich    EnrichConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
	Server    ServerConfig
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmployerConfig declares one tracked employer and its ATS coordinates.
type EmployerConfig struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	ATS         string `yaml:"ats"`        // greenhouse, lever, or ashby
	Identifier  string `yaml:"identifier"` // vendor-side board identifier
	ProfilePath string `yaml:"profile_path"`
	Enabled     bool   `yaml:"enabled"`
}

// OpenAIConfig controls the completion-service client used for enrichment and
// weekly synthesis. An empty APIKey disables both (precondition skip).
type OpenAIConfig struct {
	APIKey      string        // expanded from env var by Load
	BaseURL     string        // defaults to https://api.openai.com/v1
	EnrichModel string        // model for per-posting enrichment
	SynthModel  string        // model for weekly narrative synthesis
	Timeout     time.Duration // per-request timeout
}

// EnrichConfig controls the enrichment pipeline's batching.
type EnrichConfig struct {
	Concurrency int // worker pool size for concurrent completion calls
	BatchLimit  int // max postings selected per batch
}

// FetchConfig controls ATS snapshot fetching.
type FetchConfig struct {
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // additional attempts after the first failure
	BaseDelay  time.Duration // delay before the first retry, doubled thereafter
}

// RateLimitConfig controls ATS-level rate limiting.
type RateLimitConfig struct {
	MinDelay     time.Duration            // minimum gap between requests to the same ATS
	ATSOverrides map[string]time.Duration // per-ATS overrides, keyed by ATS name
}

// MinDelayFor returns the configured delay for the given ATS, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(ats string) time.Duration {
	if d, ok := r.ATSOverrides[ats]; ok {
		return d
	}
	return r.MinDelay
}

// ServerConfig controls the HTTP API. An empty AdminKey disables the admin
// trigger endpoints entirely.
type ServerConfig struct {
	Port     int
	AdminKey string
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Database  DatabaseConfig     `yaml:"database"`
	Employers []EmployerConfig   `yaml:"employers"`
	OpenAI    rawOpenAIConfig    `yaml:"openai"`
	Enrich    rawEnrichConfig    `yaml:"enrich"`
	Fetch     rawFetchConfig     `yaml:"fetch"`
	RateLimit rawRateLimitConfig `yaml:"rate_limit"`
	Server    rawServerConfig    `yaml:"server"`
}

type rawOpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	EnrichModel string `yaml:"enrich_model"`
	SynthModel  string `yaml:"synth_model"`
	Timeout     string `yaml:"timeout"`
}

type rawEnrichConfig struct {
	Concurrency int `yaml:"concurrency"`
	BatchLimit  int `yaml:"batch_limit"`
}

type rawFetchConfig struct {
	Timeout    string `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawRateLimitConfig struct {
	MinDelay     string            `yaml:"min_delay"`
	ATSOverrides map[string]string `yaml:"ats_overrides"`
}

type rawServerConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (API keys, admin key).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	openaiTimeout := 60 * time.Second
	if raw.OpenAI.Timeout != "" {
		openaiTimeout, err = time.ParseDuration(raw.OpenAI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse openai.timeout %q: %w", raw.OpenAI.Timeout, err)
		}
	}

	fetchTimeout := 30 * time.Second
	if raw.Fetch.Timeout != "" {
		fetchTimeout, err = time.ParseDuration(raw.Fetch.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse fetch.timeout %q: %w", raw.Fetch.Timeout, err)
		}
	}

	baseDelay := 5 * time.Second
	if raw.Fetch.BaseDelay != "" {
		baseDelay, err = time.ParseDuration(raw.Fetch.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse fetch.base_delay %q: %w", raw.Fetch.BaseDelay, err)
		}
	}

	maxRetries := 2
	if raw.Fetch.MaxRetries != nil {
		maxRetries = *raw.Fetch.MaxRetries
	}

	minDelay := 2 * time.Second
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	atsOverrides := make(map[string]time.Duration)
	for ats, rawDelay := range raw.RateLimit.ATSOverrides {
		d, err := time.ParseDuration(rawDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.ats_overrides[%q]: %w", ats, err)
		}
		atsOverrides[ats] = d
	}

	cfg := &Config{
		Database:  raw.Database,
		Employers: raw.Employers,
		OpenAI: OpenAIConfig{
			APIKey:      raw.OpenAI.APIKey,
			BaseURL:     raw.OpenAI.BaseURL,
			EnrichModel: raw.OpenAI.EnrichModel,
			SynthModel:  raw.OpenAI.SynthModel,
			Timeout:     openaiTimeout,
		},
		Enrich: EnrichConfig{
			Concurrency: raw.Enrich.Concurrency,
			BatchLimit:  raw.Enrich.BatchLimit,
		},
		Fetch: FetchConfig{
			Timeout:    fetchTimeout,
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
		},
		RateLimit: RateLimitConfig{
			MinDelay:     minDelay,
			ATSOverrides: atsOverrides,
		},
		Server: ServerConfig{
			Port:     raw.Server.Port,
			AdminKey: raw.Server.AdminKey,
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "openroles.db"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.OpenAI.EnrichModel == "" {
		cfg.OpenAI.EnrichModel = "gpt-4.1-mini"
	}
	if cfg.OpenAI.SynthModel == "" {
		cfg.OpenAI.SynthModel = "gpt-4.1"
	}
	if cfg.Enrich.Concurrency <= 0 {
		cfg.Enrich.Concurrency = 25
	}
	if cfg.Enrich.BatchLimit <= 0 {
		cfg.Enrich.BatchLimit = 100
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

func validate(cfg *Config) error {
	enabled := 0
	slugs := make(map[string]bool)
	for _, e := range cfg.Employers {
		if e.Slug == "" {
			return fmt.Errorf("employer %q is missing a slug", e.Name)
		}
		if slugs[e.Slug] {
			return fmt.Errorf("duplicate employer slug %q", e.Slug)
		}
		slugs[e.Slug] = true

		switch model.ATS(e.ATS) {
		case model.ATSGreenhouse, model.ATSLever, model.ATSAshby, "":
		default:
			return fmt.Errorf("employer %q: unknown ats %q", e.Slug, e.ATS)
		}

		if e.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one employer must be enabled")
	}

	if cfg.Enrich.Concurrency > 100 {
		return fmt.Errorf("enrich.concurrency must be at most 100, got %d", cfg.Enrich.Concurrency)
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative, got %d", cfg.Fetch.MaxRetries)
	}

	return nil
}

// EnabledEmployers converts the enabled employer entries into model values,
// loading each profile file when configured.
func (c *Config) EnabledEmployers() ([]model.Employer, error) {
	var employers []model.Employer
	for _, e := range c.Employers {
		if !e.Enabled {
			continue
		}

		profile := ""
		if e.ProfilePath != "" {
			data, err := os.ReadFile(e.ProfilePath)
			if err != nil {
				return nil, fmt.Errorf("read profile for %s: %w", e.Slug, err)
			}
			profile = string(data)
		}

		employers = append(employers, model.Employer{
			Name:       e.Name,
			Slug:       e.Slug,
			ATS:        model.ATS(e.ATS),
			Identifier: e.Identifier,
			Profile:    profile,
		})
	}
	return employers, nil
}
