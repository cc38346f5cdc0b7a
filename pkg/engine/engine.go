// Package engine runs the registered validators over a set of files with
// bounded parallelism.
package engine

import (
	"context"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/telemetry"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

// ResultCache stores results keyed by file path and content
type ResultCache interface {
	Load(ctx context.Context, path string, content []byte) (*validation.Result, bool, error)
	Save(ctx context.Context, path string, content []byte, result *validation.Result) error
}

// Engine validates files using a registry
type Engine struct {
	registry *validation.Registry
	jobs     int
	cache    ResultCache
	tracer   trace.Tracer
}

// Option configures an Engine
type Option func(*Engine)

// WithJobs bounds the number of files validated concurrently. Values below
// one fall back to GOMAXPROCS.
func WithJobs(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.jobs = n
		}
	}
}

// WithCache serves cacheable results from c
func WithCache(c ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithTracer overrides the tracer used for per-file spans
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an engine for the given registry
func New(registry *validation.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		jobs:     runtime.GOMAXPROCS(0),
		tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Jobs returns the concurrency limit
func (e *Engine) Jobs() int {
	return e.jobs
}

// Run validates paths and returns one result per path that has a
// validator, in input order. Paths without a validator are dropped.
func (e *Engine) Run(ctx context.Context, paths []string) ([]*validation.Result, error) {
	results := make([]*validation.Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, path := range paths {
		v := e.registry.ValidatorFor(path)
		if v == nil {
			logger.G(ctx).WithField("file", path).Debug("no validator for file")
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.validate(gctx, v, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "validation interrupted")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "validation interrupted")
	}

	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// ValidateOne validates a single path, returning nil when no validator
// accepts it.
func (e *Engine) ValidateOne(ctx context.Context, path string) *validation.Result {
	v := e.registry.ValidatorFor(path)
	if v == nil {
		return nil
	}
	return e.validate(ctx, v, path)
}

func (e *Engine) validate(ctx context.Context, v validation.Validator, path string) *validation.Result {
	ctx, span := e.tracer.Start(ctx, "validate.file", trace.WithAttributes(
		attribute.String("file", path),
		attribute.String("component_type", v.ComponentType()),
	))
	defer span.End()

	log := logger.G(ctx).WithField("file", path).WithField("validator", v.ComponentType())

	var content []byte
	useCache := e.cache != nil && validation.IsCacheable(v)
	if useCache {
		var err error
		content, err = os.ReadFile(path)
		if err != nil {
			useCache = false
		} else if cached, ok, err := e.cache.Load(ctx, path, content); err != nil {
			log.WithError(err).Warn("failed to read cached result")
		} else if ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			record(span, cached)
			return cached
		}
	}

	result := v.Validate(ctx, path)
	record(span, result)

	if useCache {
		if err := e.cache.Save(ctx, path, content, result); err != nil {
			log.WithError(err).Warn("failed to cache result")
		}
	}
	log.WithField("issues", len(result.Issues)).Debug("validated")
	return result
}

func record(span trace.Span, r *validation.Result) {
	span.SetAttributes(
		attribute.Int("errors", len(r.Errors())),
		attribute.Int("warnings", len(r.Warnings())),
	)
	if r.HasErrors() {
		span.SetStatus(codes.Error, "validation failed")
	}
}
