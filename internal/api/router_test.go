package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rrens/storefront-gateway/internal/api"
	"github.com/Rrens/storefront-gateway/internal/config"
	"github.com/Rrens/storefront-gateway/internal/metrics"
	"github.com/Rrens/storefront-gateway/internal/repository/memory"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

const goodSecret = "shpat_good"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// fakeStorefront mimics the commerce admin API for every domain
type fakeStorefront struct {
	webhookPosts atomic.Int32
}

func (f *fakeStorefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get(upstream.AccessTokenHeader) != goodSecret {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":"[API] Invalid API key or access token"}`))
		return
	}

	switch r.URL.Path {
	case "/admin/api/2024-01/shop.json":
		_, _ = w.Write([]byte(`{"shop":{"name":"Acme Goods"}}`))
	case "/admin/api/2024-01/products.json":
		_, _ = w.Write([]byte(`{"products":[
			{"id":1,"title":"Mug","handle":"mug","product_type":"Kitchen","status":"active","body_html":"<p>x</p>",
			 "images":[{"id":11,"src":"https://cdn/mug.png","alt":"mug"}],
			 "variants":[{"id":101,"title":"Default","price":"12.50","inventory_quantity":4,"sku":"M-1"}]}]}`))
	case "/admin/api/2024-01/products/count.json":
		_, _ = w.Write([]byte(`{"count":3}`))
	case "/admin/api/2024-01/products/1.json":
		_, _ = w.Write([]byte(`{"product":{"id":1,"title":"Mug","body_html":"<p>x</p>"}}`))
	case "/admin/api/2024-01/products/404.json":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	case "/admin/api/2024-01/webhooks.json":
		if r.Method == http.MethodPost {
			f.webhookPosts.Add(1)
			var body struct {
				Webhook struct {
					Topic   string `json:"topic"`
					Address string `json:"address"`
					Format  string `json:"format"`
				} `json:"webhook"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"webhook": map[string]any{
				"id":      7001,
				"topic":   body.Webhook.Topic,
				"address": body.Webhook.Address,
				"format":  body.Webhook.Format,
			}})
			return
		}
		_, _ = w.Write([]byte(`{"webhooks":[]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	}
}

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
	fake   *fakeStorefront
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fake := &fakeStorefront{}
	upstreamSrv := httptest.NewServer(fake)
	t.Cleanup(upstreamSrv.Close)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessSecret:    "access-secret-for-tests",
			RefreshSecret:   "refresh-secret-for-tests",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:      bcrypt.MinCost,
			EncryptionKey:   base64.StdEncoding.EncodeToString(key),
		},
		Upstream: config.UpstreamConfig{
			Timeout:         5 * time.Second,
			DomainSuffix:    ".myshopify.com",
			MaxPageSize:     250,
			DefaultPageSize: 50,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	m := metrics.New()
	store := memory.NewStore()
	gateway := upstream.NewGateway(5*time.Second,
		upstream.WithBaseURL(func(string) string { return upstreamSrv.URL }),
		upstream.WithMetrics(m),
	)

	router, err := api.NewRouter(api.Dependencies{
		Config:  cfg,
		Users:   store.Users(),
		Shops:   store.Shops(),
		Store:   store,
		Metrics: m,
		Gateway: gateway,
	})
	require.NoError(t, err)

	return &testServer{t: t, router: router, store: store, fake: fake}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) register(email string) (accessToken, refreshToken string) {
	s.t.Helper()

	status, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":                  "Test User",
		"email":                 email,
		"password":              "secret123",
		"password_confirmation": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, status)

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &result))
	assert.Equal(s.t, int64(3600), result.ExpiresIn)
	return result.AccessToken, result.RefreshToken
}

func connectBody(shopDomain, secret string) map[string]string {
	return map[string]string{
		"shop_domain":  shopDomain,
		"access_token": secret,
		"api_version":  "2024-01",
	}
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = srv.do(http.MethodGet, "/api/v1/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouter_AuthFlow(t *testing.T) {
	srv := newTestServer(t)
	access, refresh := srv.register("Jane@Example.com")

	status, env := srv.do(http.MethodGet, "/api/v1/auth/profile", access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"email":"jane@example.com"`)
	assert.NotContains(t, string(env.Data), "password")

	status, env = srv.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, status)

	status, env = srv.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid email or password", env.Error.Message)

	status, env = srv.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"access_token"`)
	assert.NotContains(t, string(env.Data), `"refresh_token"`)

	// an access token is not a refresh token
	status, _ = srv.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refresh_token": access})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = srv.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Again", "email": "jane@example.com", "password": "secret123", "password_confirmation": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = srv.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_RegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "J", "email": "not-an-email", "password": "secret123", "password_confirmation": "different",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_request", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "name")
	assert.Contains(t, env.Error.Fields, "email")
	assert.Contains(t, env.Error.Fields, "password_confirmation")
}

func TestRouter_ShopLifecycle(t *testing.T) {
	srv := newTestServer(t)
	access, _ := srv.register("owner@example.com")

	// not connected yet
	status, env := srv.do(http.MethodGet, "/api/v1/shopify/products", access, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_connected", env.Error.Code)

	// a bad secret fails the probe and stores nothing
	status, env = srv.do(http.MethodPost, "/api/v1/shopify/connect", access, connectBody("acme.myshopify.com", "shpat_bad"))
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "upstream_rejected", env.Error.Code)
	status, _ = srv.do(http.MethodGet, "/api/v1/shopify/connection", access, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = srv.do(http.MethodPost, "/api/v1/shopify/connect", access, connectBody("ACME.myshopify.com", goodSecret))
	require.Equal(t, http.StatusOK, status, string(env.Data))
	var summary struct {
		ShopID   string `json:"shop_id"`
		ShopName string `json:"shop_name"`
		Domain   string `json:"domain"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "Acme Goods", summary.ShopName)
	assert.Equal(t, "acme.myshopify.com", summary.Domain)
	assert.Equal(t, "connected", summary.Status)

	status, env = srv.do(http.MethodGet, "/api/v1/shopify/products?page=1&limit=2", access, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Products   []map[string]any `json:"products"`
		Pagination struct {
			CurrentPage   int `json:"current_page"`
			TotalPages    int `json:"total_pages"`
			TotalProducts int `json:"total_products"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Products, 1)
	assert.NotContains(t, page.Products[0], "body_html")
	assert.Contains(t, string(env.Data), `"price":"12.50"`)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 3, page.Pagination.TotalProducts)

	status, env = srv.do(http.MethodGet, "/api/v1/shopify/products/1", access, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "body_html")

	status, _ = srv.do(http.MethodGet, "/api/v1/shopify/products/404", access, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(http.MethodGet, "/api/v1/shopify/products/abc", access, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = srv.do(http.MethodPost, "/api/v1/shopify/webhooks", access, map[string]string{
		"topic": "orders/create", "address": "https://hooks.example.com/orders",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, string(env.Data), `"id":7001`)

	status, env = srv.do(http.MethodPost, "/api/v1/shopify/webhooks", access, map[string]string{
		"topic": "orders/exploded", "address": "https://hooks.example.com/orders",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, int32(1), srv.fake.webhookPosts.Load())

	status, env = srv.do(http.MethodGet, "/api/v1/shopify/connection", access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), goodSecret)
	var conn struct {
		LastSync *time.Time `json:"last_sync"`
		Webhooks []struct {
			WebhookID int64  `json:"webhook_id"`
			Topic     string `json:"topic"`
			Format    string `json:"format"`
		} `json:"webhooks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &conn))
	assert.NotNil(t, conn.LastSync)
	require.Len(t, conn.Webhooks, 1)
	assert.Equal(t, int64(7001), conn.Webhooks[0].WebhookID)
	assert.Equal(t, "json", conn.Webhooks[0].Format)

	// another account cannot take the domain over
	other, _ := srv.register("other@example.com")
	status, env = srv.do(http.MethodPost, "/api/v1/shopify/connect", other, connectBody("acme.myshopify.com", goodSecret))
	assert.Equal(t, http.StatusConflict, status)

	// the admin surface is closed to regular users
	status, _ = srv.do(http.MethodGet, "/api/v1/admin/shops/"+summary.ShopID, access, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRouter_ConnectValidation(t *testing.T) {
	srv := newTestServer(t)
	access, _ := srv.register("v@example.com")

	status, env := srv.do(http.MethodPost, "/api/v1/shopify/connect", access, connectBody("acme.example.com", goodSecret))
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "shop_domain")

	status, env = srv.do(http.MethodPost, "/api/v1/shopify/connect", access, map[string]string{
		"shop_domain": "acme.myshopify.com", "access_token": goodSecret, "api_version": "2024-13",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "api_version")

	status, _ = srv.do(http.MethodGet, "/api/v1/shopify/products?limit=abc", access, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(http.MethodGet, "/api/v1/shopify/products?status=deleted", access, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
