package convert

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/assets"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/imagelinks"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
)

// Stage is a discrete unit of work in one conversion.
type Stage func(ctx context.Context, st *State) error

// StageName is a strongly-typed identifier for a conversion stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageValidate    StageName = "validate"
	StageResolve     StageName = "resolve"
	StagePrepareDirs StageName = "prepare_dirs"
	StageProbeSource StageName = "probe_source"
	StageCopyPost    StageName = "copy_post"
	StageTransform   StageName = "transform"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// State is the mutable record threaded through the stages of one conversion.
type State struct {
	Request post.Request
	Paths   post.ResolvedPaths
	Images  imagelinks.Result
	Content string
	Out     *outcome.Outcome
	Timings map[StageName]time.Duration
}

func (p *Pipeline) stages() []StageDef {
	return []StageDef{
		{StageValidate, p.stageValidate},
		{StageResolve, p.stageResolve},
		{StagePrepareDirs, p.stagePrepareDirs},
		{StageProbeSource, p.stageProbeSource},
		{StageCopyPost, p.stageCopyPost},
		{StageTransform, p.stageTransform},
	}
}

func (p *Pipeline) stageValidate(_ context.Context, st *State) error {
	if strings.TrimSpace(st.Request.Identifier) == "" {
		return ferrors.ValidationError("Blog name cannot be empty").Build()
	}
	return nil
}

func (p *Pipeline) stageResolve(_ context.Context, st *State) error {
	st.Paths = p.resolver.Resolve(st.Request.Identifier, p.src)
	return nil
}

func (p *Pipeline) stagePrepareDirs(_ context.Context, st *State) error {
	if err := os.MkdirAll(st.Paths.DestImageDir, 0o755); err != nil {
		return classifyFS(err, "Failed to create Jekyll images directory: "+st.Paths.DestImageDir)
	}
	if err := os.MkdirAll(st.Paths.DestPostDir, 0o755); err != nil {
		return classifyFS(err, "Failed to create Jekyll posts directory: "+st.Paths.DestPostDir)
	}
	info, err := os.Stat(st.Paths.SourceImageDir)
	if err != nil {
		return classifyFS(err, "Directory does not exist: "+st.Paths.SourceImageDir)
	}
	if !info.IsDir() {
		return ferrors.NotFoundError("Path is not a directory: " + st.Paths.SourceImageDir).Build()
	}
	return nil
}

// stageProbeSource reads one byte so that permission problems surface here
// rather than midway through the copy.
func (p *Pipeline) stageProbeSource(_ context.Context, st *State) error {
	src := st.Paths.SourcePost
	info, err := os.Stat(src)
	if err != nil {
		return classifyFS(err, "File does not exist: "+src)
	}
	if info.IsDir() {
		return ferrors.NotFoundError("File does not exist: "+src).
			WithContext("reason", "is a directory").Build()
	}
	f, err := os.Open(src)
	if err != nil {
		return classifyFS(err, "Cannot read file due to permission issue: "+src)
	}
	defer func() {
		_ = f.Close()
	}()
	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return classifyFS(err, "Error reading file "+src)
	}
	return nil
}

func (p *Pipeline) stageCopyPost(_ context.Context, st *State) error {
	if err := assets.CopyFile(st.Paths.SourcePost, st.Paths.DestPost); err != nil {
		return classifyFS(err, "Failed to copy blog post")
	}
	st.Out.Info("Blog post: %q copied", filepath.Base(st.Paths.SourcePost))
	st.Out.Log("Copied blog post: %s → %s", st.Paths.SourcePost, st.Paths.DestPost)
	return nil
}

func (p *Pipeline) stageTransform(_ context.Context, st *State) error {
	data, err := os.ReadFile(st.Paths.DestPost)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to read copied markdown file").Build()
	}

	st.Images = p.transformer.Transform(string(data), st.Paths.SourceImageDir, st.Paths.DestImageDir, st.Out)
	st.Content = st.Images.Content

	info, err := os.Stat(st.Paths.DestPost)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to write processed content").Build()
	}
	if err := os.WriteFile(st.Paths.DestPost, []byte(st.Content), info.Mode().Perm()); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to write processed content").Build()
	}
	st.Out.Log("Processed markdown content saved to: %s", st.Paths.DestPost)
	return nil
}

func classifyFS(err error, message string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ferrors.WrapError(err, ferrors.CategoryNotFound, message).Build()
	case errors.Is(err, fs.ErrPermission):
		return ferrors.WrapError(err, ferrors.CategoryPermission, message).Build()
	default:
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, message).Build()
	}
}
