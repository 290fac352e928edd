package otelcatalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/skosovsky/promptcatalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	names     []string
	reloadErr error
}

func (s *stubService) Names(context.Context) ([]string, error) { return s.names, nil }

func (s *stubService) Describe(_ context.Context, name string) (promptcatalog.Info, error) {
	if name != "greet" {
		return promptcatalog.Info{}, fmt.Errorf("%w: %q", promptcatalog.ErrNotFound, name)
	}
	return promptcatalog.Info{Name: name}, nil
}

func (s *stubService) Invoke(_ context.Context, name string, args map[string]string) (string, error) {
	if _, ok := args["name"]; !ok {
		return "", &promptcatalog.MissingVariablesError{Prompt: name, Variables: []string{"name"}}
	}
	return "Hello " + args["name"], nil
}

func (s *stubService) Reload(context.Context) (int, error) {
	if s.reloadErr != nil {
		return 0, s.reloadErr
	}
	return len(s.names), nil
}

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestWrap_Invoke(t *testing.T) {
	t.Parallel()
	sr, tp := newRecorder()
	svc := Wrap(&stubService{}, WithTracerProvider(tp))

	out, err := svc.Invoke(t.Context(), "greet", map[string]string{"name": "Ada", "extra": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", out)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "promptcatalog.Invoke", spans[0].Name())
	a := attrs(spans[0])
	assert.Equal(t, "greet", a[AttrPromptName].AsString())
	assert.Equal(t, int64(2), a[AttrArgsCount].AsInt64())
	assert.Equal(t, int64(len("Hello Ada")), a[AttrOutputLength].AsInt64())
	assert.Equal(t, int64(3), a[AttrOutputTokens].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestWrap_InvokeErrorRecorded(t *testing.T) {
	t.Parallel()
	sr, tp := newRecorder()
	svc := Wrap(&stubService{}, WithTracerProvider(tp))

	_, err := svc.Invoke(t.Context(), "greet", nil)
	require.ErrorIs(t, err, promptcatalog.ErrMissingVariable)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestWrap_NamesDescribeReload(t *testing.T) {
	t.Parallel()
	sr, tp := newRecorder()
	svc := Wrap(&stubService{names: []string{"greet", "review"}}, WithTracerProvider(tp))

	names, err := svc.Names(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"greet", "review"}, names)
	_, err = svc.Describe(t.Context(), "absent")
	require.ErrorIs(t, err, promptcatalog.ErrNotFound)
	n, err := svc.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "promptcatalog.Names", spans[0].Name())
	assert.Equal(t, int64(2), attrs(spans[0])[AttrNamesCount].AsInt64())
	assert.Equal(t, "promptcatalog.Describe", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "promptcatalog.Reload", spans[2].Name())
	assert.Equal(t, int64(2), attrs(spans[2])[AttrReloadCount].AsInt64())
}

func TestWrap_ReloadError(t *testing.T) {
	t.Parallel()
	sr, tp := newRecorder()
	boom := errors.New("boom")
	svc := Wrap(&stubService{reloadErr: boom}, WithTracerProvider(tp))
	_, err := svc.Reload(t.Context())
	require.ErrorIs(t, err, boom)
	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "boom", sr.Ended()[0].Status().Description)
}

type fixedCounter struct {
	n   int
	err error
}

func (c fixedCounter) Count(string) (int, error) { return c.n, c.err }

func TestWrap_TokenCounter(t *testing.T) {
	t.Parallel()
	sr, tp := newRecorder()
	svc := Wrap(&stubService{}, WithTracerProvider(tp), WithTokenCounter(fixedCounter{n: 42}))
	_, err := svc.Invoke(t.Context(), "greet", map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), attrs(sr.Ended()[0])[AttrOutputTokens].AsInt64())

	sr, tp = newRecorder()
	svc = Wrap(&stubService{}, WithTracerProvider(tp), WithTokenCounter(fixedCounter{err: errors.New("no tokenizer")}))
	_, err = svc.Invoke(t.Context(), "greet", map[string]string{"name": "x"})
	require.NoError(t, err)
	_, ok := attrs(sr.Ended()[0])[AttrOutputTokens]
	assert.False(t, ok)
}

func TestWrap_NoopProvider(t *testing.T) {
	t.Parallel()
	svc := Wrap(&stubService{}, WithTracerProvider(noop.NewTracerProvider()))
	out, err := svc.Invoke(t.Context(), "greet", map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Hello x", out)
}
