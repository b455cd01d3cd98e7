package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
)

func init() {
	// Report field names as they are spelled in the file.
	validation.ErrorTag = "yaml"
}

// PlaceholderPrefix marks paths written by `init` that were never edited.
const PlaceholderPrefix = "/path/to/"

var notPlaceholder = validation.By(func(value any) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, PlaceholderPrefix) {
		return validation.NewError("config_placeholder", "must be updated with your actual path")
	}
	return nil
})

var sitePath = validation.By(func(value any) error {
	s, _ := value.(string)
	if s != "" && !strings.HasPrefix(s, "/") {
		return validation.NewError("config_url_prefix", "must be a site path starting with /")
	}
	return nil
})

var positiveDuration = validation.By(func(value any) error {
	if d, ok := value.(Duration); ok && d <= 0 {
		return validation.NewError("config_duration", "must be a positive duration")
	}
	return nil
})

var knownBackoff = validation.By(func(value any) error {
	s, _ := value.(string)
	if s != "" && NormalizeRetryBackoff(s) == "" {
		return validation.NewError("config_backoff", "must be one of fixed, linear, exponential")
	}
	return nil
})

// Validate checks the structure of the configuration. It does not touch the
// filesystem; CheckPaths does.
func (c *Config) Validate() error {
	errs := validation.Errors{}
	add := func(section string, err error) {
		if err != nil {
			errs[section] = err
		}
	}

	add("obsidian", validation.ValidateStruct(&c.Obsidian,
		validation.Field(&c.Obsidian.PostsFolder, validation.Required, notPlaceholder),
		validation.Field(&c.Obsidian.ImagesFolder, validation.Required, notPlaceholder),
	))
	add("jekyll", validation.ValidateStruct(&c.Jekyll,
		validation.Field(&c.Jekyll.RootFolder, validation.Required, notPlaceholder),
		validation.Field(&c.Jekyll.ServeCommand, validation.Required),
		validation.Field(&c.Jekyll.Host, validation.Required),
		validation.Field(&c.Jekyll.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	))
	add("git", validation.ValidateStruct(&c.Git,
		validation.Field(&c.Git.CommitMessage, validation.Required),
		validation.Field(&c.Git.PushRetry),
	))
	add("images", validation.ValidateStruct(&c.Images,
		validation.Field(&c.Images.Extensions, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Images.URLPrefix, validation.Required, sitePath),
		validation.Field(&c.Images.DefaultAlt, validation.Required),
	))
	add("preview", validation.ValidateStruct(&c.Preview,
		validation.Field(&c.Preview.WaitTimeout, positiveDuration),
		validation.Field(&c.Preview.ProbeInterval, positiveDuration),
		validation.Field(&c.Preview.ProbeTimeout, positiveDuration),
	))
	if c.Notify.NATSURL != "" {
		add("notify", validation.ValidateStruct(&c.Notify,
			validation.Field(&c.Notify.Subject, validation.Required),
		))
	}
	return errs.Filter()
}

// Validate implements validation.Validatable.
func (r RetryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Backoff, knownBackoff),
		validation.Field(&r.MaxRetries, validation.Min(0)),
	)
}

// CheckPaths verifies that the configured folders exist. Missing asset
// folders of the site are created with a warning.
func (c *Config) CheckPaths(out *outcome.Outcome) error {
	for _, d := range []struct{ label, path string }{
		{"Obsidian posts folder", c.Obsidian.PostsFolder},
		{"Obsidian images folder", c.Obsidian.ImagesFolder},
		{"Jekyll root folder", c.Jekyll.RootFolder},
		{"Jekyll _posts folder", post.DestPostDir(c.Jekyll.RootFolder)},
	} {
		if err := requireDir(d.label, d.path); err != nil {
			return err
		}
	}

	assets := filepath.Join(c.Jekyll.RootFolder, "assets")
	for _, dir := range []string{assets, post.DestImageDir(c.Jekyll.RootFolder)} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		out.Warning("Jekyll folder not found, will create: %s", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to create Jekyll folder").
				WithContext("path", dir).Build()
		}
	}
	return nil
}

func requireDir(label, path string) error {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ferrors.ConfigError(fmt.Sprintf("%s does not exist: %s", label, path)).WithCause(err).Build()
	case errors.Is(err, os.ErrPermission):
		return ferrors.PermissionError(fmt.Sprintf("%s is not accessible: %s", label, path)).WithCause(err).Build()
	case err != nil:
		return ferrors.WrapError(err, ferrors.CategoryConfig, label+" could not be checked").Build()
	case !fi.IsDir():
		return ferrors.ConfigError(fmt.Sprintf("%s is not a directory: %s", label, path)).Build()
	}
	return nil
}
