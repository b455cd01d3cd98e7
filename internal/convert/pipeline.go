// Package convert runs the conversion of one Obsidian post into the Jekyll
// site: validation, path resolution, directory preparation, source probe,
// copy, and image link rewriting. Stages run strictly in order and the first
// failure aborts the rest.
package convert

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/assets"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/frontmatter"
	"git.home.luguber.info/inful/jekyllpress/internal/imagelinks"
	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/markdown"
	"git.home.luguber.info/inful/jekyllpress/internal/metrics"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
)

// Result summarizes a conversion, successful or not.
type Result struct {
	Paths       post.ResolvedPaths
	Images      imagelinks.Result
	Title       string
	Fingerprint string
	// Dangling lists rewritten image links whose target is missing from the site.
	Dangling []string
	Timings  map[StageName]time.Duration
	Duration time.Duration
}

// Pipeline converts posts. It holds no per-request state.
type Pipeline struct {
	src         post.Source
	resolver    *post.Resolver
	transformer *imagelinks.Transformer
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTransformer replaces the default image link transformer.
func WithTransformer(t *imagelinks.Transformer) Option {
	return func(p *Pipeline) { p.transformer = t }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the logger for stage records.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a Pipeline reading roots from src.
func New(src post.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:      src,
		resolver: post.NewResolver(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.transformer == nil {
		p.transformer = imagelinks.New(imagelinks.WithLogger(p.logger))
	}
	return p
}

// Convert runs every stage for req. On failure the classified error has
// already been recorded on out and is returned for exit-code mapping; the
// caller must not record it again.
func (p *Pipeline) Convert(ctx context.Context, req post.Request, out *outcome.Outcome) (Result, error) {
	if out == nil {
		out = outcome.Discard()
	}
	start := time.Now()
	st := &State{Request: req, Out: out, Timings: map[StageName]time.Duration{}}

	err := p.runStages(ctx, st, p.stages())
	res := Result{Paths: st.Paths, Images: st.Images, Timings: st.Timings}
	res.Images.Content = ""
	res.Duration = time.Since(start)

	if err != nil {
		return res, out.Fail(err)
	}

	p.recordImages(st.Images)
	p.inspect(st, &res)
	out.Success("Conversion completed: %s", st.Paths.DestPost)
	return res, nil
}

func (p *Pipeline) runStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			p.recorder.IncStageResult(string(def.Name), metrics.ResultSkipped)
			return ferrors.WrapError(err, ferrors.CategoryProcessing, "Process interrupted by user").
				WithContext("stage", string(def.Name)).Build()
		}
		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		st.Timings[def.Name] = dur
		p.recorder.ObserveStageDuration(string(def.Name), dur)

		if err != nil {
			p.recorder.IncStageResult(string(def.Name), metrics.ResultFailed)
			p.logger.Debug("Stage failed",
				logfields.Stage(string(def.Name)),
				logfields.Elapsed(dur),
				logfields.Error(err))
			if _, ok := ferrors.AsClassified(err); !ok {
				err = ferrors.WrapError(err, ferrors.CategoryProcessing, "Unexpected error during conversion").Build()
			}
			return err
		}
		p.recorder.IncStageResult(string(def.Name), metrics.ResultSuccess)
		p.logger.Debug("Stage complete", logfields.Stage(string(def.Name)), logfields.Elapsed(dur))
	}
	return nil
}

func (p *Pipeline) recordImages(r imagelinks.Result) {
	p.recorder.AddImages(metrics.ImageCopied, r.Processed)
	p.recorder.AddImages(metrics.ImageMissing, r.Warnings)
	p.recorder.AddImages(metrics.ImageFailed, r.Failed)
}

// inspect gathers post-conversion facts: front matter title, fingerprint, and
// rewritten links that point at files missing from the site. None of it can
// fail the conversion.
func (p *Pipeline) inspect(st *State, res *Result) {
	content := []byte(st.Content)

	if doc, err := frontmatter.Parse(content); err == nil {
		res.Title = doc.Title()
	} else {
		st.Out.Log("Front matter not parsed: %v", err)
	}
	if fp, err := frontmatter.Fingerprint(content); err == nil {
		res.Fingerprint = fp
	}

	prefix := strings.TrimRight(p.transformer.URLPrefix(), "/") + "/"
	for _, img := range markdown.ImagesUnder(markdown.ExtractImages(content), prefix) {
		rel := filepath.FromSlash(img.Destination[len(prefix):])
		if !assets.Exists(filepath.Join(st.Paths.DestImageDir, rel)) {
			res.Dangling = append(res.Dangling, img.Destination)
		}
	}
	if len(res.Dangling) > 0 {
		st.Out.Warning("Post links %d image(s) missing from %s", len(res.Dangling), st.Paths.DestImageDir)
	}
}
