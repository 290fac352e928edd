package remotesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/manifest"
)

// HTTPFetcher fetches YAML manifests over HTTP. The index is {baseURL}/index.yaml; manifests
// resolve to {baseURL}/{name}.yaml, then {baseURL}/{name}.yml. 404 tries the next candidate;
// other non-2xx returns ErrHTTPStatus. Network errors, 5xx and 429 are retried.
var _ Fetcher = (*HTTPFetcher)(nil)

// maxBodySize limits HTTP response body size (1 MB); YAML manifests are small.
const maxBodySize = 1 << 20

// defaultUserAgent is the User-Agent header value for HTTP requests.
const defaultUserAgent = "promptcatalog-remote-source/1.0"

// IndexFile is the listing document requested from the base URL.
const IndexFile = "index.yaml"

const (
	defaultAttempts   = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// HTTPFetcher holds base URL, client, optional Bearer token and retry policy.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	userAgent  string
	attempts   uint
	retryDelay time.Duration
}

// HTTPOption configures HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client. Default has 30s timeout. If c is nil, the default client is left unchanged.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPFetcher) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithAuthToken sets the Bearer token for Authorization header.
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTPFetcher) {
		h.authToken = token
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPFetcher) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithRetry sets the number of attempts per request (minimum 1, i.e. no retry) and the base
// delay between attempts. Delays grow with backoff and jitter.
func WithRetry(attempts uint, delay time.Duration) HTTPOption {
	return func(h *HTTPFetcher) {
		h.attempts = max(attempts, 1)
		if delay > 0 {
			h.retryDelay = delay
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher. baseURL must be a valid URL (e.g. https://api.example.com/prompts).
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remotesource: base URL must not be empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("remotesource: invalid base URL %q", baseURL)
	}
	h := &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Location returns the base URL.
func (h *HTTPFetcher) Location() string { return h.baseURL }

// indexDocument accepts either a bare YAML sequence or a mapping with a prompts key.
type indexDocument struct {
	Prompts []string `yaml:"prompts"`
}

// List reads {base}/index.yaml. A 404 means the location does not exist and yields
// promptcatalog.ErrSourceUnavailable. Entries with a manifest extension are reduced to their stem.
func (h *HTTPFetcher) List(ctx context.Context) ([]string, error) {
	data, err := h.get(ctx, IndexFile)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s/%s not found", promptcatalog.ErrSourceUnavailable, h.baseURL, IndexFile)
		}
		return nil, err
	}
	names, err := parseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%w: index: %w", ErrFetchFailed, err)
	}
	return names, nil
}

func parseIndex(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	var raw []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raw); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc indexDocument
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		raw = doc.Prompts
	default:
		return nil, fmt.Errorf("expected a list of names or a prompts mapping")
	}
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if manifest.IsManifestFile(n) {
			n = manifest.NameFromPath(n)
		}
		names = append(names, n)
	}
	return names, nil
}

// Fetch tries {base}/{name}.yaml, then .yml. On 404 proceeds to next; on other non-2xx returns ErrHTTPStatus.
func (h *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := promptcatalog.ValidateName(name); err != nil {
		return nil, err
	}
	for _, path := range CandidatePaths(name) {
		data, err := h.get(ctx, path)
		if err != nil {
			if errors.Is(err, errNotFound) {
				continue
			}
			return nil, err
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

var errNotFound = errors.New("not found")

// retryableError marks failures worth another attempt: transport errors, 5xx and 429.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (h *HTTPFetcher) get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			var err error
			data, err = h.fetchOne(ctx, path)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(h.attempts),
		retry.Delay(h.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var re *retryableError
			return errors.As(err, &re)
		}),
	)
	if err != nil {
		var re *retryableError
		if errors.As(err, &re) {
			return nil, re.err
		}
		return nil, err
	}
	return data, nil
}

func (h *HTTPFetcher) fetchOne(ctx context.Context, path string) ([]byte, error) {
	u := h.baseURL + "/" + url.PathEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	resp, err := h.httpClient.Do(req) // #nosec G704 -- URL is from config and path-escaped name
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		return nil, &retryableError{fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: %w: %s %s", ErrFetchFailed, ErrHTTPStatus, resp.Status, u)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{err}
		}
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &retryableError{fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)}
	}
	// Detect truncation: if more data is available, body exceeded maxBodySize.
	probe := make([]byte, 1)
	if n, _ := resp.Body.Read(probe); n > 0 {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrFetchFailed, maxBodySize)
	}
	return data, nil
}
