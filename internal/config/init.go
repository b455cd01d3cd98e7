package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
)

// Example returns the configuration written by `init`: defaults plus
// placeholder folders that Validate rejects until they are edited.
func Example() *Config {
	c := Default()
	c.Obsidian.PostsFolder = PlaceholderPrefix + "your/obsidian/posts"
	c.Obsidian.ImagesFolder = PlaceholderPrefix + "your/obsidian/posts/attachments"
	c.Jekyll.RootFolder = PlaceholderPrefix + "your/jekyll/blog"
	return c
}

// Marshal renders c as YAML with two-space indentation.
func Marshal(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves c to path, creating parent directories. An existing file is
// only replaced when force is set.
func Write(path string, c *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("Config file already exists: %s (use --force to overwrite)", path)).Build()
	}
	data, err := Marshal(c)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "Failed to render config").Build()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to save config").
				WithContext("path", path).Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to save config").
			WithContext("path", path).Build()
	}
	return nil
}

// Wizard asks for the three folders and writes a validated configuration.
type Wizard struct {
	In     io.Reader
	Prompt io.Writer
	Out    *outcome.Outcome
}

// Run executes the wizard and writes the result to path.
func (w Wizard) Run(path string, force bool) (*Config, error) {
	out := w.Out
	if out == nil {
		out = outcome.Discard()
	}
	prompt := w.Prompt
	if prompt == nil {
		prompt = io.Discard
	}
	sc := bufio.NewScanner(w.In)
	ask := func(q string) string {
		fmt.Fprintf(prompt, "\n%s\n   -> ", q)
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	out.Log("Welcome to jekyllpress! Let's set up your publishing pipeline.")

	posts := expandPath(ask("1. Where is your Obsidian posts folder?"))
	if err := requireDir("Folder", posts); err != nil {
		return nil, err
	}

	images := filepath.Join(posts, "attachments")
	if fi, err := os.Stat(images); err == nil && fi.IsDir() {
		out.Log("Found images folder: %s", images)
	} else if answer := expandPath(ask(fmt.Sprintf("2. Where is your Obsidian images folder? (%s)", images))); answer != "" {
		images = answer
	}

	root := expandPath(ask("3. Where is your Jekyll blog root directory?"))
	if err := requireDir("Folder", root); err != nil {
		return nil, err
	}

	c := Default()
	c.Obsidian = ObsidianConfig{PostsFolder: posts, ImagesFolder: images}
	c.Jekyll.RootFolder = root
	c.path = path

	if err := c.Validate(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Invalid configuration").Build()
	}
	if err := c.CheckPaths(out); err != nil {
		return nil, err
	}
	if err := Write(path, c, force); err != nil {
		return nil, err
	}
	out.Success("Configuration saved to: %s", path)
	out.Log(`Add this command to Obsidian Shell Commands: jekyllpress local "{{file_name}}"`)
	return c, nil
}
