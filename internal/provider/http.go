package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/failsafe-go/failsafe-go/timeout"

	"commwatch/internal/domain"
)

// HTTPProvider fetches subject content from a JSON content API. Each fetch
// runs through a failsafe executor: a bounded timeout (a hang counts as a
// transient failure, never a silent stall) and a short in-call retry for
// flaky responses. Cross-cycle backoff stays with the scheduler.
type HTTPProvider struct {
	baseURL  string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
	log      *log.Logger
}

// HTTPConfig bounds individual fetch attempts.
type HTTPConfig struct {
	BaseURL      string
	FetchTimeout time.Duration
	MaxRetries   int
	RetryDelay   time.Duration

	// Client overrides the default HTTP client, for tests.
	Client *http.Client
}

// shouldRetry retries network errors, 5xx, and 429 within a single fetch.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// NewHTTP constructs an HTTP content provider.
func NewHTTP(cfg HTTPConfig, logger *log.Logger) *HTTPProvider {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.RetryDelay, 4*cfg.RetryDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		Build()
	deadline := timeout.New[*http.Response](cfg.FetchTimeout)

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPProvider{
		baseURL:  cfg.BaseURL,
		client:   client,
		executor: failsafe.With(retry, deadline),
		log:      logger,
	}
}

// Fetch retrieves the subject's profile and recent posts. Status codes map to
// the fetch error taxonomy: 401/403 auth-expired, 404/410 permanent,
// everything else transient.
func (p *HTTPProvider) Fetch(ctx context.Context, subjectID string, cred domain.Credential) (*Content, error) {
	url := fmt.Sprintf("%s/subjects/%s/content", p.baseURL, subjectID)

	resp, err := p.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if cred.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cred.Token)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		// A retryable response is abandoned by the retry policy without
		// anyone reading it; drain and close here so the connection can
		// be reused instead of leaking.
		if shouldRetry(resp, nil) {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return resp, nil
	})
	if err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &FetchError{Kind: KindAuthExpired, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, &FetchError{Kind: KindPermanent, Status: resp.StatusCode}
	default:
		return nil, &FetchError{Kind: KindTransient, Status: resp.StatusCode}
	}

	var content Content
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: fmt.Errorf("decode content: %w", err)}
	}
	return &content, nil
}
