package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/storefront-gateway/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// AccessTokenHeader carries the storefront access secret
	AccessTokenHeader = "X-Shopify-Access-Token"

	maxResponseBytes = 10 << 20
)

// Request describes one call to the commerce admin API
type Request struct {
	Domain     string
	Secret     string
	APIVersion string
	// Resource is the path below the versioned prefix without the .json suffix, e.g. "products/42"
	Resource string
	Method   string
	Query    url.Values
	Body     any
}

// Gateway performs authenticated calls to a storefront's admin API
type Gateway struct {
	client  *http.Client
	scheme  string
	baseURL func(domain string) string
	metrics *metrics.Metrics
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithScheme sets the URL scheme used to reach storefront domains
func WithScheme(scheme string) Option {
	return func(g *Gateway) {
		g.scheme = scheme
	}
}

// WithBaseURL overrides how a storefront domain maps to a base URL
func WithBaseURL(fn func(domain string) string) Option {
	return func(g *Gateway) {
		g.baseURL = fn
	}
}

// WithMetrics records every call on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a new gateway whose calls are bounded by timeout
func NewGateway(timeout time.Duration, opts ...Option) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &Gateway{
		client: &http.Client{Timeout: timeout},
		scheme: "https",
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.baseURL == nil {
		scheme := g.scheme
		g.baseURL = func(domain string) string {
			return scheme + "://" + domain
		}
	}
	return g
}

// Do sends req and decodes a successful JSON response into out (which may be nil)
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	if req.Domain == "" || req.Secret == "" || req.APIVersion == "" || strings.Trim(req.Resource, "/") == "" {
		return ErrInvalidRequest
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := g.URL(req)

	var body io.Reader
	if req.Body != nil && (method == http.MethodPost || method == http.MethodPut) {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(AccessTokenHeader, req.Secret)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		uerr := &UnreachableError{Timeout: isTimeout(err), Err: err}
		g.observe(method, "unreachable", start)
		log.Warn().Err(err).Str("domain", req.Domain).Str("method", method).Str("resource", req.Resource).Msg("upstream call failed")
		return uerr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		g.observe(method, "unreachable", start)
		return &UnreachableError{Timeout: isTimeout(err), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.Debug().
		Str("domain", req.Domain).
		Str("method", method).
		Str("resource", req.Resource).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode >= http.StatusBadRequest {
		g.observe(method, "rejected", start)
		return newStatusError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			g.observe(method, "malformed", start)
			return &MalformedError{StatusCode: resp.StatusCode, Err: err}
		}
	}

	g.observe(method, "ok", start)
	return nil
}

// URL builds the full admin API URL for req. The secret never appears in it.
func (g *Gateway) URL(req Request) string {
	resource := strings.TrimSuffix(strings.Trim(req.Resource, "/"), ".json")
	u := fmt.Sprintf("%s/admin/api/%s/%s.json", strings.TrimRight(g.baseURL(req.Domain), "/"), req.APIVersion, resource)
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (g *Gateway) observe(method, outcome string, start time.Time) {
	g.metrics.ObserveUpstream(method, outcome, time.Since(start))
}

func newStatusError(status int, raw []byte) *StatusError {
	serr := &StatusError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var envelope struct {
		Errors any `json:"errors"`
		Error  any `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Errors != nil:
			serr.Payload = envelope.Errors
		case envelope.Error != nil:
			serr.Payload = envelope.Error
		}
	}
	return serr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
