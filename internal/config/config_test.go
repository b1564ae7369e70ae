package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		URL:        "https://example.atlassian.net",
		Email:      "dev@example.com",
		Token:      "secret",
		Project:    "BOOK",
		UpdateMode: UpdateModeUpdate,
		Renderer:   RendererADF,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "complete", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: true},
		{name: "missing email", mutate: func(c *Config) { c.Email = "" }, wantErr: true},
		{name: "missing token", mutate: func(c *Config) { c.Token = "" }, wantErr: true},
		{name: "missing project", mutate: func(c *Config) { c.Project = "" }, wantErr: true},
		{name: "skip mode", mutate: func(c *Config) { c.UpdateMode = UpdateModeSkip }},
		{name: "unknown mode", mutate: func(c *Config) { c.UpdateMode = "merge" }, wantErr: true},
		{name: "plain renderer", mutate: func(c *Config) { c.Renderer = RendererPlain }},
		{name: "unknown renderer", mutate: func(c *Config) { c.Renderer = "html" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JIRA_BASE_URL", "https://example.atlassian.net/")
	t.Setenv("JIRA_EMAIL", "dev@example.com")
	t.Setenv("JIRA_API_TOKEN", "secret")
	t.Setenv("JIRA_PROJECT_KEY", "BOOK")
	t.Setenv("JIRA_UPDATE_MODE", "SKIP")
	t.Setenv("JIRA_ISSUETYPE_STORY", "User Story")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.URL != "https://example.atlassian.net" {
		t.Fatalf("URL = %q, want trailing slash trimmed", cfg.URL)
	}
	if cfg.Project != "BOOK" || cfg.Token != "secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.SkipUpdates() {
		t.Fatalf("expected skip mode, got %q", cfg.UpdateMode)
	}
	if cfg.StoryType != "User Story" {
		t.Fatalf("StoryType = %q", cfg.StoryType)
	}
	if cfg.Extension != ".md" {
		t.Fatalf("Extension = %q, want .md", cfg.Extension)
	}
	if cfg.Debounce() != 400*time.Millisecond || cfg.Pace() != 250*time.Millisecond {
		t.Fatalf("unexpected timings: debounce=%s pace=%s", cfg.Debounce(), cfg.Pace())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	cfg.Extension = "txt"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("JIRA_PROJECT_KEY", "OPS")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Project != "OPS" {
		t.Fatalf("Project = %q, want env override", got.Project)
	}
	if got.Email != cfg.Email {
		t.Fatalf("Email = %q, want %q", got.Email, cfg.Email)
	}
	if got.Extension != ".txt" {
		t.Fatalf("Extension = %q, want .txt", got.Extension)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("config perms = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "services", "sync")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "JIRA_PROJECT_KEY=FROMFILE\nJIRA_SYNC_TEST_ONLY=loaded\n"
	if err := os.WriteFile(filepath.Join(root, ".env.jira"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JIRA_PROJECT_KEY", "FROMENV")
	t.Setenv("JIRA_SYNC_TEST_ONLY", "")
	os.Unsetenv("JIRA_SYNC_TEST_ONLY")

	loaded, tried, err := LoadEnvFile(work)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if loaded != filepath.Join(work, "..", "..", ".env.jira") {
		t.Fatalf("loaded = %q", loaded)
	}
	if len(tried) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(tried))
	}
	if got := os.Getenv("JIRA_PROJECT_KEY"); got != "FROMENV" {
		t.Fatalf("JIRA_PROJECT_KEY = %q, environment must win", got)
	}
	if got := os.Getenv("JIRA_SYNC_TEST_ONLY"); got != "loaded" {
		t.Fatalf("JIRA_SYNC_TEST_ONLY = %q, want value from file", got)
	}
}

func TestLoadEnvFileNoneFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	loaded, tried, err := LoadEnvFile(dir)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if loaded != "" || len(tried) == 0 {
		t.Fatalf("loaded=%q tried=%v", loaded, tried)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".jira", "epics"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "services", "jira-sync")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := FindRoot(nested, ".jira"); got != root {
		t.Fatalf("FindRoot = %q, want %q", got, root)
	}

	lonely := t.TempDir()
	if got := FindRoot(lonely, ".does-not-exist"); got != lonely {
		t.Fatalf("FindRoot fallback = %q, want %q", got, lonely)
	}

	cfg := Config{}
	if got := cfg.ResolveDir(nested); got != filepath.Join(root, ".jira") {
		t.Fatalf("ResolveDir = %q", got)
	}
	cfg.Dir = "/explicit"
	if got := cfg.ResolveDir(nested); got != "/explicit" {
		t.Fatalf("ResolveDir explicit = %q", got)
	}
}
