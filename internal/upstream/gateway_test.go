package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Rrens/storefront-gateway/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc, opts ...upstream.Option) *upstream.Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]upstream.Option{upstream.WithBaseURL(func(string) string { return srv.URL })}, opts...)
	return upstream.NewGateway(5*time.Second, opts...)
}

func baseRequest() upstream.Request {
	return upstream.Request{
		Domain:     "acme.myshopify.com",
		Secret:     "shpat_secret",
		APIVersion: "2024-01",
		Resource:   "shop",
	}
}

func TestGateway_Success(t *testing.T) {
	var gotPath, gotQuery, gotToken string
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotToken = r.Header.Get(upstream.AccessTokenHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Hat"}]}`))
	})

	req := baseRequest()
	req.Resource = "products"
	req.Query = url.Values{"limit": {"10"}, "status": {"active"}}

	var out struct {
		Products []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"products"`
	}
	require.NoError(t, gw.Do(context.Background(), req, &out))

	assert.Equal(t, "/admin/api/2024-01/products.json", gotPath)
	assert.Equal(t, "limit=10&status=active", gotQuery)
	assert.Equal(t, "shpat_secret", gotToken)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "Hat", out.Products[0].Title)
}

func TestGateway_SecretNeverInURL(t *testing.T) {
	gw := upstream.NewGateway(time.Second)
	u := gw.URL(baseRequest())

	assert.Equal(t, "https://acme.myshopify.com/admin/api/2024-01/shop.json", u)
	assert.NotContains(t, u, "shpat_secret")
}

func TestGateway_PostSendsBody(t *testing.T) {
	var got map[string]any
	var method string
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"webhook":{"id":99}}`))
	})

	req := baseRequest()
	req.Resource = "webhooks"
	req.Method = http.MethodPost
	req.Body = map[string]any{"webhook": map[string]string{"topic": "orders/create"}}

	var out struct {
		Webhook struct {
			ID int64 `json:"id"`
		} `json:"webhook"`
	}
	require.NoError(t, gw.Do(context.Background(), req, &out))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, int64(99), out.Webhook.ID)
	assert.Contains(t, got, "webhook")
}

func TestGateway_GetIgnoresBody(t *testing.T) {
	var length int64 = -1
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		length = int64(len(b))
		_, _ = w.Write([]byte(`{}`))
	})

	req := baseRequest()
	req.Body = map[string]string{"ignored": "yes"}
	require.NoError(t, gw.Do(context.Background(), req, nil))
	assert.Equal(t, int64(0), length)
}

func TestGateway_InvalidRequest(t *testing.T) {
	gw := upstream.NewGateway(time.Second)

	tests := []struct {
		name   string
		modify func(*upstream.Request)
	}{
		{"missing domain", func(r *upstream.Request) { r.Domain = "" }},
		{"missing secret", func(r *upstream.Request) { r.Secret = "" }},
		{"missing version", func(r *upstream.Request) { r.APIVersion = "" }},
		{"missing resource", func(r *upstream.Request) { r.Resource = "/" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.modify(&req)
			assert.ErrorIs(t, gw.Do(context.Background(), req, nil), upstream.ErrInvalidRequest)
		})
	}
}

func TestGateway_StatusError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"errors string", http.StatusUnauthorized, `{"errors":"[API] Invalid API key or access token"}`, "[API] Invalid API key or access token"},
		{"errors object", http.StatusUnprocessableEntity, `{"errors":{"address":["is invalid"]}}`, `{"address":["is invalid"]}`},
		{"error field", http.StatusNotFound, `{"error":"Not Found"}`, "Not Found"},
		{"raw body", http.StatusBadGateway, `<html>bad gateway</html>`, "<html>bad gateway</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := gw.Do(context.Background(), baseRequest(), nil)
			var serr *upstream.StatusError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.status, serr.StatusCode)
			assert.Equal(t, tt.wantDetail, serr.Detail())
		})
	}
}

func TestGateway_Malformed(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"shop":`))
	})

	var out map[string]any
	err := gw.Do(context.Background(), baseRequest(), &out)
	var merr *upstream.MalformedError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, http.StatusOK, merr.StatusCode)
}

func TestGateway_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	gw := upstream.NewGateway(time.Second, upstream.WithBaseURL(func(string) string { return base }))
	err := gw.Do(context.Background(), baseRequest(), nil)

	var uerr *upstream.UnreachableError
	require.True(t, errors.As(err, &uerr))
	assert.False(t, uerr.Timeout)
}

func TestGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	gw := upstream.NewGateway(50*time.Millisecond, upstream.WithBaseURL(func(string) string { return srv.URL }))
	err := gw.Do(context.Background(), baseRequest(), nil)

	var uerr *upstream.UnreachableError
	require.True(t, errors.As(err, &uerr))
	assert.True(t, uerr.Timeout)
}
