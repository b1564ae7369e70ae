package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvCandidates lists the dotenv files LoadEnvFile looks for, relative to dir,
// in priority order.
func EnvCandidates(dir string) []string {
	return []string{
		filepath.Join(dir, ".env"),
		filepath.Join(dir, ".env.local"),
		filepath.Join(dir, ".env.jira"),
		filepath.Join(dir, "..", ".env.jira"),
		filepath.Join(dir, "..", "..", ".env.jira"),
	}
}

// LoadEnvFile exports the variables of the first existing dotenv file among
// EnvCandidates(dir). Variables already present in the environment win.
// It returns the loaded path, or "" and the list of paths tried.
func LoadEnvFile(dir string) (string, []string, error) {
	candidates := EnvCandidates(dir)
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("dotenv")
		if err := v.ReadInConfig(); err != nil {
			return "", candidates, fmt.Errorf("reading %s: %w", path, err)
		}

		for key, value := range v.AllSettings() {
			name := strings.ToUpper(key)
			if _, set := os.LookupEnv(name); set {
				continue
			}
			if err := os.Setenv(name, fmt.Sprint(value)); err != nil {
				return "", candidates, fmt.Errorf("exporting %s: %w", name, err)
			}
		}
		return path, candidates, nil
	}
	return "", candidates, nil
}

// FindRoot walks up from start looking for a directory that contains name.
// It returns the containing directory, or start when none is found.
func FindRoot(start, name string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// ResolveDir returns the directory to watch. An explicit dir is used as-is;
// otherwise the nearest ancestor of cwd holding DefaultRootName is used.
func (c Config) ResolveDir(cwd string) string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(FindRoot(cwd, DefaultRootName), DefaultRootName)
}
