package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: true
openai:
  api_key: sk-test
  enrich_model: gpt-4.1-mini
  timeout: 90s
enrich:
  concurrency: 10
  batch_limit: 50
fetch:
  timeout: 20s
  max_retries: 3
  base_delay: 2s
rate_limit:
  min_delay: 1s
  ats_overrides:
    lever: 5s
server:
  port: 9090
  admin_key: hunter2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if len(cfg.Employers) != 1 || cfg.Employers[0].Slug != "acme" || cfg.Employers[0].Identifier != "acme" {
		t.Errorf("Employers = %+v", cfg.Employers)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Timeout != 90*time.Second {
		t.Errorf("OpenAI = %+v", cfg.OpenAI)
	}
	if cfg.Enrich.Concurrency != 10 || cfg.Enrich.BatchLimit != 50 {
		t.Errorf("Enrich = %+v", cfg.Enrich)
	}
	if cfg.Fetch.Timeout != 20*time.Second || cfg.Fetch.MaxRetries != 3 || cfg.Fetch.BaseDelay != 2*time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.RateLimit.MinDelay != time.Second {
		t.Errorf("RateLimit.MinDelay = %v", cfg.RateLimit.MinDelay)
	}
	if cfg.RateLimit.MinDelayFor("lever") != 5*time.Second {
		t.Errorf("MinDelayFor(lever) = %v", cfg.RateLimit.MinDelayFor("lever"))
	}
	if cfg.RateLimit.MinDelayFor("greenhouse") != time.Second {
		t.Errorf("MinDelayFor(greenhouse) = %v", cfg.RateLimit.MinDelayFor("greenhouse"))
	}
	if cfg.Server.Port != 9090 || cfg.Server.AdminKey != "hunter2" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "openroles.db" {
		t.Errorf("default Database.Path = %q", cfg.Database.Path)
	}
	if cfg.OpenAI.BaseURL != defaultOpenAIBaseURL {
		t.Errorf("default OpenAI.BaseURL = %q", cfg.OpenAI.BaseURL)
	}
	if cfg.Enrich.Concurrency != 25 || cfg.Enrich.BatchLimit != 100 {
		t.Errorf("default Enrich = %+v", cfg.Enrich)
	}
	if cfg.Fetch.MaxRetries != 2 || cfg.Fetch.BaseDelay != 5*time.Second {
		t.Errorf("default Fetch = %+v", cfg.Fetch)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.AdminKey != "" {
		t.Errorf("admin key should default to empty (disabled), got %q", cfg.Server.AdminKey)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("OPENROLES_TEST_KEY", "sk-from-env")
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: true
openai:
  api_key: ${OPENROLES_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want expanded env var", cfg.OpenAI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "employers: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_NoEnabledEmployers(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: false
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error when nothing is enabled")
	}
}

func TestLoad_DuplicateSlug(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: true
  - name: Acme Again
    slug: acme
    ats: lever
    identifier: acme2
    enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for duplicate slug")
	}
}

func TestLoad_UnknownATS(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: workday
    identifier: acme
    enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for unknown ats")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    enabled: true
fetch:
  timeout: not-a-duration
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid duration")
	}
}

func TestEnabledEmployers(t *testing.T) {
	profilePath := filepath.Join(t.TempDir(), "acme.md")
	if err := os.WriteFile(profilePath, []byte("Acme builds AI infrastructure."), 0644); err != nil {
		t.Fatal(err)
	}

	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme-board
    profile_path: `+profilePath+`
    enabled: true
  - name: Disabled Inc
    slug: disabled
    ats: lever
    identifier: disabled
    enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	employers, err := cfg.EnabledEmployers()
	if err != nil {
		t.Fatalf("EnabledEmployers: %v", err)
	}
	if len(employers) != 1 {
		t.Fatalf("expected 1 enabled employer, got %d", len(employers))
	}
	e := employers[0]
	if e.ATS != model.ATSGreenhouse || e.Identifier != "acme-board" {
		t.Errorf("unexpected employer: %+v", e)
	}
	if e.Profile != "Acme builds AI infrastructure." {
		t.Errorf("profile not loaded, got %q", e.Profile)
	}
}

func TestEnabledEmployers_MissingProfile(t *testing.T) {
	path := writeConfig(t, `
employers:
  - name: Acme
    slug: acme
    ats: greenhouse
    identifier: acme
    profile_path: /nonexistent/acme.md
    enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.EnabledEmployers(); err == nil {
		t.Fatal("expected error for missing profile file")
	}
}
