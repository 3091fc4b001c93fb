package main

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		AppPort:      ":0",
		AppEnv:       "test",
		BodyLimit:    32 << 20,
		OrderStore:   "memory",
		OrdersFile:   filepath.Join(dir, "orders.json"),
		DatabaseDSN:  filepath.Join(dir, "printshop.db"),
		UploadDir:    filepath.Join(dir, "uploads"),
		AdminEmail:   "admin@yourstore.com",
		SupportEmail: "support@yourstore.com",
	}
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	app, err := NewApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })
	return app
}

func submitOrder(t *testing.T, app *App) int {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := map[string]string{
		"productType": "hoodie",
		"color":       "black",
		"size":        "xl",
		"fullName":    "Мария Петрова",
		"email":       "maria@example.com",
		"phone":       "+7 912 345-67-89",
		"city":        "Казань",
		"address":     "ул. Баумана, 5, кв. 12",
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="designFile"; filename="logo.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Fiber.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func getStatus(t *testing.T, app *App, path string) int {
	t.Helper()
	resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ORDER_STORE", "sqlite")
	t.Setenv("BODY_LIMIT_MB", "16")
	t.Setenv("EMAIL_USER", "shop@example.com")
	t.Setenv("EMAIL_PASS", "app-password")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.OrderStore)
	assert.Equal(t, 16<<20, cfg.BodyLimit)
	assert.Equal(t, "uploads/designs", cfg.UploadDir)
	assert.Equal(t, 587, cfg.EmailPort)
	assert.True(t, cfg.EmailEnabled())
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["events"])
	assert.Equal(t, false, body["operatorAuth"])
}

func TestNewApp_OrderStores(t *testing.T) {
	for _, store := range []string{"memory", "file", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.OrderStore = store
			app := newTestApp(t, cfg)

			assert.Equal(t, http.StatusCreated, submitOrder(t, app))
			assert.Equal(t, http.StatusOK, getStatus(t, app, "/api/orders/1000"))
			assert.Equal(t, http.StatusNotFound, getStatus(t, app, "/api/orders/1001"))
		})
	}
}

func TestNewApp_FileStoreSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.OrderStore = "file"

	first, err := NewApp(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, submitOrder(t, first))
	require.NoError(t, first.Close())

	second := newTestApp(t, cfg)
	assert.Equal(t, http.StatusOK, getStatus(t, second, "/api/orders/1000"))
	require.Equal(t, http.StatusCreated, submitOrder(t, second))
	assert.Equal(t, http.StatusOK, getStatus(t, second, "/api/orders/1001"))
}

func TestNewApp_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	cfg.RedisCacheTTL = 0
	app := newTestApp(t, cfg)

	require.Equal(t, http.StatusCreated, submitOrder(t, app))
	require.Equal(t, http.StatusOK, getStatus(t, app, "/api/orders/1000"))
	assert.True(t, mr.Exists(fmt.Sprintf("orders:%d", 1000)))
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	app := newTestApp(t, cfg)

	assert.Equal(t, http.StatusCreated, submitOrder(t, app))
}

func TestNewApp_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.OrderStore = "cassandra"

	_, err := NewApp(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown ORDER_STORE")
}
