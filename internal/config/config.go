package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that cannot be used to start syncing.
var ErrInvalid = errors.New("invalid config")

// Update modes for documents that are already linked to an issue.
const (
	UpdateModeUpdate = "update"
	UpdateModeSkip   = "skip"
)

// Renderer names accepted for the description format.
const (
	RendererADF   = "adf"
	RendererPlain = "plain"
)

// DefaultRootName is the directory searched for when no sync dir is configured.
const DefaultRootName = ".jira"

// Config holds JIRA connection and sync daemon settings.
type Config struct {
	URL     string `yaml:"url"     mapstructure:"url"`
	Email   string `yaml:"email"   mapstructure:"email"`
	Token   string `yaml:"token"   mapstructure:"token"`
	Project string `yaml:"project" mapstructure:"project"`

	EpicNameField string `yaml:"epic_name_field,omitempty" mapstructure:"epic_name_field"`
	UpdateMode    string `yaml:"update_mode,omitempty"     mapstructure:"update_mode"`
	StoryType     string `yaml:"story_type,omitempty"      mapstructure:"story_type"`
	TaskType      string `yaml:"task_type,omitempty"       mapstructure:"task_type"`
	Renderer      string `yaml:"renderer,omitempty"        mapstructure:"renderer"`

	Dir        string `yaml:"dir,omitempty"         mapstructure:"dir"`
	Extension  string `yaml:"extension,omitempty"   mapstructure:"extension"`
	DebounceMS int    `yaml:"debounce_ms,omitempty" mapstructure:"debounce_ms"`
	PaceMS     int    `yaml:"pace_ms,omitempty"     mapstructure:"pace_ms"`
	StateDir   string `yaml:"state_dir,omitempty"   mapstructure:"state_dir"`

	LogLevel  string `yaml:"log_level,omitempty"  mapstructure:"log_level"`
	LogFormat string `yaml:"log_format,omitempty" mapstructure:"log_format"`
	LogFile   string `yaml:"log_file,omitempty"   mapstructure:"log_file"`
}

var envBindings = map[string][]string{
	"url":             {"JIRA_BASE_URL", "JIRA_URL"},
	"email":           {"JIRA_EMAIL"},
	"token":           {"JIRA_API_TOKEN", "JIRA_TOKEN"},
	"project":         {"JIRA_PROJECT_KEY"},
	"epic_name_field": {"JIRA_EPIC_NAME_FIELD"},
	"update_mode":     {"JIRA_UPDATE_MODE"},
	"story_type":      {"JIRA_ISSUETYPE_STORY"},
	"task_type":       {"JIRA_ISSUETYPE_TASK"},
	"renderer":        {"JIRA_SYNC_RENDERER"},
	"dir":             {"JIRA_SYNC_DIR"},
	"extension":       {"JIRA_SYNC_EXT"},
	"debounce_ms":     {"JIRA_SYNC_DEBOUNCE_MS"},
	"pace_ms":         {"JIRA_SYNC_PACE_MS"},
	"state_dir":       {"JIRA_SYNC_STATE_DIR"},
	"log_level":       {"JIRA_SYNC_LOG_LEVEL"},
	"log_format":      {"JIRA_SYNC_LOG_FORMAT"},
	"log_file":        {"JIRA_SYNC_LOG_FILE"},
}

// DefaultPath returns the default config file path (~/.jira-sync.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jira-sync.yaml"
	}
	return filepath.Join(home, ".jira-sync.yaml")
}

// DefaultStateDir returns where the journal and lock files live when
// state_dir is not configured.
func DefaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".jira-sync"
	}
	return filepath.Join(dir, "jira-sync")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("update_mode", UpdateModeUpdate)
	v.SetDefault("renderer", RendererADF)
	v.SetDefault("extension", ".md")
	v.SetDefault("debounce_ms", 400)
	v.SetDefault("pace_ms", 250)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	cfg.UpdateMode = strings.ToLower(strings.TrimSpace(cfg.UpdateMode))
	cfg.Renderer = strings.ToLower(strings.TrimSpace(cfg.Renderer))
	if cfg.Extension != "" && !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}

	return cfg, nil
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: JIRA URL is required (set in config file or JIRA_BASE_URL env var)", ErrInvalid)
	}
	if c.Email == "" {
		return fmt.Errorf("%w: JIRA email is required (set in config file or JIRA_EMAIL env var)", ErrInvalid)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: JIRA token is required (set in config file or JIRA_API_TOKEN env var)", ErrInvalid)
	}
	if c.Project == "" {
		return fmt.Errorf("%w: JIRA project key is required (set in config file or JIRA_PROJECT_KEY env var)", ErrInvalid)
	}
	switch c.UpdateMode {
	case "", UpdateModeUpdate, UpdateModeSkip:
	default:
		return fmt.Errorf("%w: update mode must be %q or %q, got %q", ErrInvalid, UpdateModeUpdate, UpdateModeSkip, c.UpdateMode)
	}
	switch c.Renderer {
	case "", RendererADF, RendererPlain:
	default:
		return fmt.Errorf("%w: renderer must be %q or %q, got %q", ErrInvalid, RendererADF, RendererPlain, c.Renderer)
	}
	return nil
}

// SkipUpdates reports whether linked documents should be left alone.
func (c Config) SkipUpdates() bool {
	return c.UpdateMode == UpdateModeSkip
}

// Debounce returns the per-path quiet period.
func (c Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return 400 * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Pace returns the delay the worker waits between jobs.
func (c Config) Pace() time.Duration {
	if c.PaceMS < 0 {
		return 0
	}
	return time.Duration(c.PaceMS) * time.Millisecond
}

// ResolveStateDir returns the configured state dir or the default one.
func (c Config) ResolveStateDir() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	return DefaultStateDir()
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
