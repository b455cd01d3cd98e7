// Package config loads the jekyllpress YAML configuration.
//
// The file is looked up at ./jekyllpress.yaml, then ~/.jekyllpress/config.yaml.
// Environment variables are expanded before parsing, after .env and .env.local
// have been loaded into the process environment. Variables that are already
// set are never overwritten.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/git"
	"git.home.luguber.info/inful/jekyllpress/internal/imagelinks"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
	"git.home.luguber.info/inful/jekyllpress/internal/preview"
	"git.home.luguber.info/inful/jekyllpress/internal/retry"
)

// File names used by the lookup.
const (
	LocalFileName = "jekyllpress.yaml"
	HomeDirName   = ".jekyllpress"
	HomeFileName  = "config.yaml"
)

// Provider is the view of the configuration the core consumes.
type Provider interface {
	post.Source
}

// Config is the root of the configuration file.
type Config struct {
	Obsidian ObsidianConfig `yaml:"obsidian"`
	Jekyll   JekyllConfig   `yaml:"jekyll"`
	Git      GitConfig      `yaml:"git"`
	Images   ImagesConfig   `yaml:"images"`
	Preview  PreviewConfig  `yaml:"preview"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Notify   NotifyConfig   `yaml:"notify"`

	path string
}

// ObsidianConfig locates the source vault.
type ObsidianConfig struct {
	PostsFolder  string `yaml:"posts_folder"`
	ImagesFolder string `yaml:"images_folder"`
}

// JekyllConfig locates the destination site and how to serve it.
type JekyllConfig struct {
	RootFolder   string   `yaml:"root_folder"`
	ServeCommand []string `yaml:"serve_command"`
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
}

// GitConfig controls the publish sequence.
type GitConfig struct {
	CommitMessage string      `yaml:"commit_message"`
	Remote        string      `yaml:"remote,omitempty"`
	PushRetry     RetryConfig `yaml:"push_retry"`
}

// RetryConfig is the file form of a retry.Policy.
type RetryConfig struct {
	Backoff    string   `yaml:"backoff"` // fixed|linear|exponential
	Initial    Duration `yaml:"initial"`
	Max        Duration `yaml:"max"`
	MaxRetries int      `yaml:"max_retries"`
}

// ImagesConfig tunes the image link transformer.
type ImagesConfig struct {
	Extensions []string `yaml:"extensions"`
	URLPrefix  string   `yaml:"url_prefix"`
	DefaultAlt string   `yaml:"default_alt"`
}

// PreviewConfig tunes how the preview server is started and probed.
type PreviewConfig struct {
	Wait          bool     `yaml:"wait"`
	OpenBrowser   bool     `yaml:"open_browser"`
	WaitTimeout   Duration `yaml:"wait_timeout"`
	ProbeInterval Duration `yaml:"probe_interval"`
	ProbeTimeout  Duration `yaml:"probe_timeout"`
}

// HistoryConfig locates the SQLite ledger. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig locates the Prometheus textfile. An empty path disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// NotifyConfig configures the NATS notification. An empty URL disables it.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		Jekyll: JekyllConfig{
			ServeCommand: append([]string(nil), preview.DefaultCommand...),
			Host:         preview.DefaultHost,
			Port:         preview.DefaultPort,
		},
		Git: GitConfig{
			CommitMessage: git.DefaultCommitMessage,
			PushRetry: RetryConfig{
				Backoff:    string(retry.ModeLinear),
				Initial:    Duration(time.Second),
				Max:        Duration(5 * time.Second),
				MaxRetries: 2,
			},
		},
		Images: ImagesConfig{
			Extensions: append([]string(nil), imagelinks.DefaultExtensions...),
			URLPrefix:  post.ImagesURL,
			DefaultAlt: imagelinks.DefaultAlt,
		},
		Preview: PreviewConfig{
			WaitTimeout:   Duration(preview.DefaultWaitTimeout),
			ProbeInterval: Duration(preview.DefaultProbeInterval),
			ProbeTimeout:  Duration(preview.DefaultProbeTimeout),
		},
		Notify: NotifyConfig{Subject: "jekyllpress.published"},
	}
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) PostsFolder() string  { return c.Obsidian.PostsFolder }
func (c *Config) ImagesFolder() string { return c.Obsidian.ImagesFolder }
func (c *Config) SiteRoot() string     { return c.Jekyll.RootFolder }

// PreviewServer returns the preview server settings.
func (c *Config) PreviewServer() preview.Config {
	return preview.Config{
		Root:          c.Jekyll.RootFolder,
		Command:       c.Jekyll.ServeCommand,
		Host:          c.Jekyll.Host,
		Port:          c.Jekyll.Port,
		ProbeTimeout:  c.Preview.ProbeTimeout.Std(),
		ProbeInterval: c.Preview.ProbeInterval.Std(),
		WaitTimeout:   c.Preview.WaitTimeout.Std(),
	}
}

// PushRetryPolicy returns the retry policy of git push.
func (c *Config) PushRetryPolicy() retry.Policy {
	r := c.Git.PushRetry
	return retry.NewPolicy(NormalizeRetryBackoff(r.Backoff), r.Initial.Std(), r.Max.Std(), r.MaxRetries)
}

// NormalizeRetryBackoff converts user input (case-insensitive) into a mode,
// returning "" for unknown values.
func NormalizeRetryBackoff(raw string) retry.Mode {
	switch m := retry.Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case retry.ModeFixed, retry.ModeLinear, retry.ModeExponential:
		return m
	}
	return ""
}

// DefaultPath returns the per-user configuration path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, HomeDirName, HomeFileName), nil
}

// Locate returns explicit when set, otherwise the first existing file of the
// lookup order, otherwise the per-user path.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if _, err := os.Stat(LocalFileName); err == nil {
		return LocalFileName, nil
	}
	return DefaultPath()
}

// LoadEnv loads .env and .env.local from the working directory when present.
func LoadEnv() error {
	for _, name := range []string{".env", ".env.local"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads, validates and checks the configuration. Progress and warnings
// go to out; a nil out discards them.
func Load(explicit string, out *outcome.Outcome) (*Config, error) {
	if out == nil {
		out = outcome.Discard()
	}
	if err := LoadEnv(); err != nil {
		out.Warning("Could not load environment file: %v", err)
	}

	path, err := Locate(explicit)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Failed to locate config file").Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError(fmt.Sprintf("Config file not found: %s (run 'jekyllpress init')", path)).
				WithCause(err).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Failed to load config file").
			WithContext("path", path).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Invalid configuration").
			WithContext("path", path).Build()
	}
	if err := cfg.CheckPaths(out); err != nil {
		return nil, err
	}

	out.Info("Configuration loaded")
	out.Log("Configuration loaded from: %s", path)
	return cfg, nil
}

// Parse expands environment variables in data and decodes it over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Invalid YAML in config file").Build()
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Obsidian.PostsFolder = expandPath(c.Obsidian.PostsFolder)
	c.Obsidian.ImagesFolder = expandPath(c.Obsidian.ImagesFolder)
	c.Jekyll.RootFolder = expandPath(c.Jekyll.RootFolder)
	c.History.Path = expandPath(c.History.Path)
	c.Metrics.Textfile = expandPath(c.Metrics.Textfile)
	c.Jekyll.Host = strings.TrimSpace(c.Jekyll.Host)
	c.Git.Remote = strings.TrimSpace(c.Git.Remote)
}

// expandPath resolves a leading ~ and cleans the path. Empty stays empty.
func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return filepath.Clean(p)
}
