package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/roach88/postcache/internal/record"
)

// Defaults for the HTTP provider.
const (
	DefaultEndpoint     = "https://jsonplaceholder.typicode.com/posts"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// Provider is the source of fetched records.
type Provider interface {
	Fetch(ctx context.Context) ([]record.Record, error)
}

// Options configures an HTTPProvider.
type Options struct {
	// Endpoint is the http(s) URL returning the record array.
	Endpoint string

	// Timeout bounds the whole request. Ignored when Client is set.
	Timeout time.Duration

	// MaxBodyBytes caps the response body size.
	MaxBodyBytes int64

	// Client overrides the HTTP client (for testing).
	Client *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPProvider fetches records with a single GET request.
type HTTPProvider struct {
	endpoint  string
	client    *http.Client
	maxBody   int64
	validator *Validator
	logger    *slog.Logger
}

// NewHTTPProvider validates opts and compiles the response schema.
func NewHTTPProvider(opts Options) (*HTTPProvider, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", opts.Endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", opts.Endpoint)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	return &HTTPProvider{
		endpoint:  u.String(),
		client:    client,
		maxBody:   maxBody,
		validator: validator,
		logger:    logger,
	}, nil
}

// Endpoint returns the URL the provider fetches.
func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

// Fetch requests the endpoint and decodes the record array in response order.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]record.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, &FetchError{URL: p.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: p.endpoint, Err: err}
	}
	defer resp.Body.Close()

	p.logger.Debug("remote responded",
		"url", p.endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &FetchError{URL: p.endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: p.endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > p.maxBody {
		return nil, &ParseError{URL: p.endpoint, Err: fmt.Errorf("response exceeds %d bytes", p.maxBody)}
	}

	records, err := p.parse(body)
	if err != nil {
		return nil, &ParseError{URL: p.endpoint, Err: err}
	}
	return records, nil
}

func (p *HTTPProvider) parse(body []byte) ([]record.Record, error) {
	if err := p.validator.Validate(body); err != nil {
		return nil, err
	}
	records, err := record.DecodeList(body)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// IsFetchError returns true if err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
