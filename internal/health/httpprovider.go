package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const httpBodyLimit = 1 << 20 // 1 MB

// HTTPProvider talks to a remote health monitor over its JSON API.
type HTTPProvider struct {
	baseURL string
	client  *retryablehttp.Client
}

// HTTPProviderOption customizes the provider.
type HTTPProviderOption func(*HTTPProvider)

// WithHTTPTimeout overrides the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPProviderOption {
	return func(p *HTTPProvider) {
		p.client.HTTPClient.Timeout = timeout
	}
}

// NewHTTPProvider creates a Provider backed by the monitor at baseURL.
// Transient failures are retried by the client; the saga sees only the
// final outcome.
func NewHTTPProvider(baseURL string, opts ...HTTPProviderOption) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: 15 * time.Second}

	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PreDeploymentChecks implements Provider.
func (p *HTTPProvider) PreDeploymentChecks(ctx context.Context) (*Report, error) {
	return p.fetchReport(ctx, "/api/health/pre-deployment")
}

// PostDeploymentChecks implements Provider.
func (p *HTTPProvider) PostDeploymentChecks(ctx context.Context) (*Report, error) {
	return p.fetchReport(ctx, "/api/health/post-deployment")
}

// ValidateConfiguration implements Provider.
func (p *HTTPProvider) ValidateConfiguration(ctx context.Context, path string) (*ValidationResult, error) {
	endpoint := p.baseURL + "/api/validate?path=" + url.QueryEscape(path)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}

	var result ValidationResult
	if err := p.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *HTTPProvider) fetchReport(ctx context.Context, path string) (*Report, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}

	var report Report
	if err := p.do(req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (p *HTTPProvider) do(req *retryablehttp.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpBodyLimit))
	if err != nil {
		return fmt.Errorf("read health provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health provider returned %s", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode health provider response: %w", err)
	}
	return nil
}
