package otelcatalog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/promptcatalog"
)

// TracerName is the instrumentation scope name used for spans.
const TracerName = "github.com/skosovsky/promptcatalog/otelcatalog"

// Span attribute keys.
const (
	AttrPromptName   = attribute.Key("prompt.name")
	AttrArgsCount    = attribute.Key("prompt.args.count")
	AttrNamesCount   = attribute.Key("prompt.names.count")
	AttrReloadCount  = attribute.Key("prompt.reload.count")
	AttrOutputLength = attribute.Key("prompt.output.length")
	AttrOutputTokens = attribute.Key("prompt.output.tokens")
)

// Option configures Wrap.
type Option func(*config)

type config struct {
	provider trace.TracerProvider
	counter  promptcatalog.TokenCounter
}

// WithTracerProvider sets the provider. Default is the global otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// WithTokenCounter sets the counter behind the prompt.output.tokens attribute.
// Default is promptcatalog.RuneCounter{}.
func WithTokenCounter(tc promptcatalog.TokenCounter) Option {
	return func(c *config) {
		if tc != nil {
			c.counter = tc
		}
	}
}

// service decorates a promptcatalog.Service with one span per operation.
type service struct {
	next    promptcatalog.Service
	tracer  trace.Tracer
	counter promptcatalog.TokenCounter
}

// Ensures service implements promptcatalog.Service.
var _ promptcatalog.Service = (*service)(nil)

// Wrap returns svc with tracing. Argument values are never recorded, only their count.
func Wrap(svc promptcatalog.Service, opts ...Option) promptcatalog.Service {
	cfg := config{provider: otel.GetTracerProvider(), counter: promptcatalog.RuneCounter{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &service{next: svc, tracer: cfg.provider.Tracer(TracerName), counter: cfg.counter}
}

func (s *service) Names(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "promptcatalog.Names")
	defer span.End()
	names, err := s.next.Names(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(AttrNamesCount.Int(len(names)))
	return names, nil
}

func (s *service) Describe(ctx context.Context, name string) (promptcatalog.Info, error) {
	ctx, span := s.tracer.Start(ctx, "promptcatalog.Describe",
		trace.WithAttributes(AttrPromptName.String(name)))
	defer span.End()
	info, err := s.next.Describe(ctx, name)
	if err != nil {
		recordError(span, err)
	}
	return info, err
}

func (s *service) Invoke(ctx context.Context, name string, args map[string]string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "promptcatalog.Invoke",
		trace.WithAttributes(AttrPromptName.String(name), AttrArgsCount.Int(len(args))))
	defer span.End()
	out, err := s.next.Invoke(ctx, name, args)
	if err != nil {
		recordError(span, err)
		return "", err
	}
	span.SetAttributes(AttrOutputLength.Int(len(out)))
	if n, err := s.counter.Count(out); err == nil {
		span.SetAttributes(AttrOutputTokens.Int(n))
	}
	return out, nil
}

func (s *service) Reload(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "promptcatalog.Reload")
	defer span.End()
	n, err := s.next.Reload(ctx)
	if err != nil {
		recordError(span, err)
		return n, err
	}
	span.SetAttributes(AttrReloadCount.Int(n))
	return n, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
