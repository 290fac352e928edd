package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skosovsky/promptcatalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves a swappable list of entries.
type fakeSource struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	calls   atomic.Int32
	block   chan struct{}
}

func (f *fakeSource) set(entries []Entry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	f.err = err
}

func (f *fakeSource) Entries(ctx context.Context) ([]Entry, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entry(nil), f.entries...), f.err
}

func (f *fakeSource) Location() string { return "fake" }

func yamlEntry(name, body string) Entry {
	return Entry{Name: name, Origin: "fake/" + name + ".yaml", Data: []byte(body)}
}

const greetYAML = `
description: Greets someone
template: "Hello {name}!"
variables:
  - name: name
    required: true
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNew_EmptyBeforeLoad(t *testing.T) {
	t.Parallel()
	c := New(&fakeSource{}, WithLogger(quietLogger()))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Names())
	assert.Equal(t, uint64(0), c.Snapshot().Generation())
	_, err := c.Get("greet")
	require.ErrorIs(t, err, promptcatalog.ErrNotFound)
}

func TestNew_NilSourcePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { New(nil) })
}

func TestLoad_DecodesEntries(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{
		yamlEntry("greet", greetYAML),
		yamlEntry("plain", "template: static text\n"),
	}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"greet", "plain"}, c.Names())
	assert.Equal(t, "fake", c.Location())

	def, err := c.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "Greets someone", def.Description)
	assert.Equal(t, "fake/greet.yaml", def.Origin)

	plain, err := c.Get("plain")
	require.NoError(t, err)
	assert.Equal(t, "Prompt from plain.yaml", plain.Description)
}

func TestLoad_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)

	def, err := c.Get("greet")
	require.NoError(t, err)
	def.Template = "mutated"
	def.Variables[0].Name = "mutated"

	again, err := c.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "Hello {name}!", again.Template)
	assert.Equal(t, "name", again.Variables[0].Name)
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	src := &fakeSource{}
	src.set([]Entry{
		yamlEntry("bad", "template: [1, 2]\n"),
		yamlEntry("broken", "template: \"unterminated\n"),
		{Name: "unreadable", Origin: "fake/unreadable.yaml", Err: errors.New("permission denied")},
		yamlEntry("../escape", greetYAML),
		yamlEntry("greet", greetYAML),
	}, nil)
	c := New(src, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	n, err := c.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"greet"}, c.Names())

	failures := c.Snapshot().Failures()
	require.Len(t, failures, 4)
	var de *promptcatalog.DecodeError
	require.ErrorAs(t, failures[0], &de)
	assert.Equal(t, "bad", de.Name)
	require.ErrorIs(t, failures[0], promptcatalog.ErrInvalidDefinition)
	require.ErrorIs(t, failures[3], promptcatalog.ErrInvalidName)

	assert.Contains(t, logs.String(), "skipping prompt")
	assert.Contains(t, logs.String(), "loaded prompt")
	assert.Contains(t, logs.String(), "name=greet")
}

func TestLoad_DuplicateNameFirstWins(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{
		{Name: "greet", Origin: "fake/greet.yaml", Data: []byte(greetYAML)},
		{Name: "greet", Origin: "fake/greet.yml", Data: []byte("template: second\n")},
	}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	def, err := c.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "fake/greet.yaml", def.Origin)
	require.Len(t, c.Snapshot().Failures(), 1)
	assert.Contains(t, c.Snapshot().Failures()[0].Error(), "duplicate prompt name")
}

func TestReload_SourceUnavailableEmptiesCatalog(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c, err := Open(t.Context(), src, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	src.set(nil, fmt.Errorf("dir gone: %w", promptcatalog.ErrSourceUnavailable))
	n, err := c.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = c.Get("greet")
	require.ErrorIs(t, err, promptcatalog.ErrNotFound)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "prompt source unavailable")
}

func TestReload_SourceErrorKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	before := c.Snapshot()

	boom := errors.New("network down")
	src.set(nil, boom)
	_, err = c.Reload(t.Context())
	require.ErrorIs(t, err, boom)
	assert.Same(t, before, c.Snapshot())
	assert.Equal(t, []string{"greet"}, c.Names())
}

func TestReload_ReplacesWholeMapping(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML), yamlEntry("old", "template: old\n")}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)

	src.set([]Entry{yamlEntry("greet", "template: \"Hi {name}\"\n"), yamlEntry("new", "template: new\n")}, nil)
	n, err := c.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"greet", "new"}, c.Names())
	_, err = c.Get("old")
	require.ErrorIs(t, err, promptcatalog.ErrNotFound)
	def, err := c.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "Hi {name}", def.Template)
	assert.Equal(t, uint64(2), c.Snapshot().Generation())
}

func TestReload_UnchangedSourceSameDigest(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML), yamlEntry("plain", "template: x\n")}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	first := c.Snapshot()

	_, err = c.Reload(t.Context())
	require.NoError(t, err)
	second := c.Snapshot()
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Digest(), second.Digest())
	assert.Equal(t, first.Names(), second.Names())

	src.set([]Entry{yamlEntry("greet", greetYAML), yamlEntry("plain", "template: y\n")}, nil)
	_, err = c.Reload(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest(), c.Snapshot().Digest())
}

func TestReload_HeldSnapshotIsUnaffected(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)

	held := c.Snapshot()
	src.set(nil, nil)
	_, err = c.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	def, contract, ok := held.Entry("greet")
	require.True(t, ok)
	bindings := contract.Bind(map[string]string{"name": "Ada"})
	assert.Equal(t, "Hello Ada!", promptcatalog.Render(def.Template, bindings))
}

func TestReload_CancelledContext(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := New(src, WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := c.Reload(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestReload_ConcurrentCallsShareLoad(t *testing.T) {
	t.Parallel()
	src := &fakeSource{block: make(chan struct{})}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c := New(src, WithLogger(quietLogger()))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Reload(t.Context())
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	// Give late callers a chance to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(src.block)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i])
	}
	assert.LessOrEqual(t, int(src.calls.Load()), callers)
	assert.Equal(t, 1, c.Len())
}

func TestReload_CallerCancelDoesNotAbortSharedLoad(t *testing.T) {
	t.Parallel()
	src := &fakeSource{block: make(chan struct{})}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c := New(src, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		_, err := c.Reload(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(src.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, c.Len())
}

func TestReload_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	setA := []Entry{yamlEntry("a1", "template: a\n"), yamlEntry("a2", "template: a\n")}
	setB := []Entry{yamlEntry("b1", "template: b\n"), yamlEntry("b2", "template: b\n"), yamlEntry("b3", "template: b\n")}
	src.set(setA, nil)
	c, err := Open(t.Context(), src, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	var bad atomic.Int32
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := c.Snapshot()
				names := snap.Names()
				if len(names) != 2 && len(names) != 3 {
					bad.Add(1)
				}
				for _, n := range names {
					if _, err := snap.Get(n); err != nil {
						bad.Add(1)
					}
				}
			}
		}()
	}
	for i := range 50 {
		if i%2 == 0 {
			src.set(setB, nil)
		} else {
			src.set(setA, nil)
		}
		_, err := c.Reload(t.Context())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	assert.Equal(t, int32(0), bad.Load())
}

func TestOnReload_NotifiesAndUnsubscribes(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c := New(src, WithLogger(quietLogger()))

	var got []uint64
	unsubscribe := c.OnReload(func(s *Snapshot) { got = append(got, s.Generation()) })
	_, err := c.Load(t.Context())
	require.NoError(t, err)
	_, err = c.Reload(t.Context())
	require.NoError(t, err)
	unsubscribe()
	_, err = c.Reload(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2}, got)
}

func TestOnReload_SeesSwappedSnapshot(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{yamlEntry("greet", greetYAML)}, nil)
	c := New(src, WithLogger(quietLogger()))

	var same bool
	c.OnReload(func(s *Snapshot) { same = s == c.Snapshot() })
	_, err := c.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, same)
}

func TestWithDecoder(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{{Name: "raw", Origin: "fake/raw", Data: []byte("Say {word}")}}, nil)
	decode := func(name string, data []byte) (*promptcatalog.Definition, error) {
		return &promptcatalog.Definition{
			Name:        name,
			Description: promptcatalog.DefaultDescription(name),
			Template:    string(data),
		}, nil
	}
	c, err := Open(t.Context(), src, WithLogger(quietLogger()), WithDecoder(decode))
	require.NoError(t, err)
	def, err := c.Get("raw")
	require.NoError(t, err)
	assert.Equal(t, "Say {word}", def.Template)
	assert.Equal(t, "fake/raw", def.Origin)
}

func TestWithDecoder_NilDefinitionSkipped(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	src.set([]Entry{
		{Name: "empty", Origin: "fake/empty", Data: []byte("x")},
		{Name: "ok", Origin: "fake/ok", Data: []byte("Say {word}")},
	}, nil)
	decode := func(name string, data []byte) (*promptcatalog.Definition, error) {
		if name == "empty" {
			return nil, nil
		}
		return &promptcatalog.Definition{Name: name, Template: string(data)}, nil
	}
	c := New(src, WithLogger(quietLogger()), WithDecoder(decode))
	var n int
	var err error
	require.NotPanics(t, func() { n, err = c.Load(t.Context()) })
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	failures := c.Snapshot().Failures()
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0], promptcatalog.ErrInvalidDefinition)
	var de *promptcatalog.DecodeError
	require.ErrorAs(t, failures[0], &de)
	assert.Equal(t, "empty", de.Name)
}
