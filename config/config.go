// Package config loads run settings from defaults, an optional TOML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Collect CollectConfig `toml:"collect"`
	Output  OutputConfig  `toml:"output"`
	Server  ServerConfig  `toml:"server"`
}

// LLMConfig holds settings for the inference provider.
type LLMConfig struct {
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	MaxAttempts       int    `toml:"max_attempts"`
	CachePath         string `toml:"cache_path"`
}

// CollectConfig controls which files are read from the repository.
type CollectConfig struct {
	IncludePatterns []string `toml:"include"`
	ExcludePatterns []string `toml:"exclude"`
	IgnoreFile      string   `toml:"ignore_file"`
	MaxFileSize     int64    `toml:"max_file_size"`
	MaxFiles        int      `toml:"max_files"`
}

// OutputConfig controls the generated documentation.
type OutputConfig struct {
	DocsRoot       string `toml:"docs_root"`
	MaxComponents  int    `toml:"max_components"`
	StrictCoverage bool   `toml:"strict_coverage"`
}

// ServerConfig holds the Restate endpoints.
type ServerConfig struct {
	RestateURL string `toml:"restate_url"`
	ListenAddr string `toml:"listen_addr"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:             "openai/gpt-4",
			RequestsPerMinute: 60,
			MaxAttempts:       3,
			CachePath:         ".cb2docs-cache.db",
		},
		Collect: CollectConfig{
			IncludePatterns: []string{"*.go", "*.py", "*.js", "*.ts", "*.java", "*.rb", "*.rs", "*.c", "*.h", "*.cpp", "*.md"},
			ExcludePatterns: []string{"*_test.go", "vendor/*", "node_modules/*", ".git/*", "*.min.js", "docs/*"},
			IgnoreFile:      ".gitignore",
			MaxFileSize:     1 << 20,
			MaxFiles:        100,
		},
		Output: OutputConfig{
			DocsRoot:      "docs",
			MaxComponents: 5,
		},
		Server: ServerConfig{
			RestateURL: "http://localhost:8080",
			ListenAddr: ":9082",
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("OPENROUTER_API_KEY", &c.LLM.APIKey)
	str("LLM_MODEL", &c.LLM.Model)
	str("CACHE_PATH", &c.LLM.CachePath)
	str("DOCS_ROOT", &c.Output.DocsRoot)
	str("RESTATE_URL", &c.Server.RestateURL)
	str("LISTEN_ADDR", &c.Server.ListenAddr)

	return errors.Join(
		num("LLM_REQUESTS_PER_MINUTE", &c.LLM.RequestsPerMinute),
		num("LLM_MAX_ATTEMPTS", &c.LLM.MaxAttempts),
		num("MAX_COMPONENTS", &c.Output.MaxComponents),
	)
}

// Validate checks values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Output.MaxComponents < 4 {
		return fmt.Errorf("max_components must be at least 4, got %d", c.Output.MaxComponents)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.Output.DocsRoot == "" {
		return errors.New("docs_root must not be empty")
	}
	return nil
}
