package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"printshop/internal/handlers"
	"printshop/internal/middleware"
	"printshop/internal/notify"
	"printshop/internal/repositories"
	"printshop/internal/services"
	"printshop/internal/storage"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const operatorPassword = "s3cret-operator"

type testApp struct {
	app       *fiber.App
	repo      repositories.OrderRepository
	uploadDir string
	auth      *services.AuthService
}

type appOptions struct {
	bodyLimit int
	withAuth  bool
}

// setupApp wires handlers over an in-memory repository and a temp upload dir.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	if opts.bodyLimit == 0 {
		opts.bodyLimit = 32 << 20
	}

	logger := zap.NewNop()
	repo := repositories.NewMemoryOrderRepository()
	uploadDir := t.TempDir()
	files := storage.NewLocalFileStore(uploadDir, "design")
	orderService := services.NewOrderService(repo, files, notify.NewLogNotifier(logger), nil, logger)

	var authService *services.AuthService
	if opts.withAuth {
		hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.MinCost)
		require.NoError(t, err)
		authService = services.NewAuthService(string(hash), "test_jwt_secret")
	} else {
		authService = services.NewAuthService("", "")
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    opts.bodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handlers.ErrorHandler(logger),
	})
	api := app.Group("/api")
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(api, middleware.OperatorRequired(authService, logger))
	handlers.NewCatalogHandler(orderService).RegisterRoutes(api)
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(api)

	return &testApp{app: app, repo: repo, uploadDir: uploadDir, auth: authService}
}

type filePart struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func validFields() map[string]string {
	return map[string]string{
		"productType": "tshirt",
		"color":       "white",
		"size":        "m",
		"fullName":    "Иван Иванов",
		"email":       "a@b.com",
		"phone":       "89991234567",
		"city":        "Москва",
		"address":     "ул. Ленина, 10",
	}
}

func pngPart(size int) filePart {
	data := make([]byte, size)
	copy(data, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	return filePart{field: "designFile", name: "design.png", contentType: "image/png", data: data}
}

func multipartRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, target string, payload any) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadedFiles(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestCreateOrder(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, body := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(1<<20)))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1000), data["orderId"])
	assert.Equal(t, float64(2099), data["totalPrice"])
	assert.Equal(t, "pending_review", data["status"])
	assert.True(t, strings.HasPrefix(data["orderNumber"].(string), "ORD-"))
	assert.NotEmpty(t, data["estimatedDelivery"])

	// Fetch it back
	req := httptest.NewRequest(http.MethodGet, "/api/orders/1000", nil)
	status, order := doRequest(t, ta.app, req)
	require.Equal(t, http.StatusOK, status)
	customer := order["customer"].(map[string]any)
	assert.Equal(t, "+79991234567", customer["phone"])
	product := order["product"].(map[string]any)
	assert.Equal(t, "M", product["size"])

	// Email is not configured, so both sends are recorded as failed
	notifications := order["emailNotifications"].(map[string]any)
	assert.Equal(t, false, notifications["adminEmailSent"])
	assert.Equal(t, false, notifications["customerEmailSent"])

	assert.Len(t, uploadedFiles(t, ta.uploadDir), 1)
}

func TestCreateOrder_UnknownProductType(t *testing.T) {
	ta := setupApp(t, appOptions{})
	fields := validFields()
	fields["productType"] = "socks"

	status, body := doRequest(t, ta.app, multipartRequest(t, fields, pngPart(1024)))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "productType", body["field"])
	assert.Equal(t, "validation error", body["error"])
	assert.NotEmpty(t, body["details"])

	orders, err := ta.repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, uploadedFiles(t, ta.uploadDir))
}

func TestCreateOrder_MissingDesignFile(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, body := doRequest(t, ta.app, multipartRequest(t, validFields()))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "designFile", body["field"])
}

func TestCreateOrder_OversizedDesignFile(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, body := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(12<<20)))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.OversizeMessage, body["error"])
	assert.Equal(t, "designFile", body["field"])

	orders, err := ta.repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, uploadedFiles(t, ta.uploadDir))
}

// The server-wide body limit is enforced while reading the connection,
// so it only shows up over a real listener.
func TestCreateOrder_BodyOverServerLimit(t *testing.T) {
	ta := setupApp(t, appOptions{bodyLimit: 1 << 20})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ta.app.Listener(ln) }()
	t.Cleanup(func() { _ = ta.app.Shutdown() })

	req := multipartRequest(t, validFields(), pngPart(2<<20))
	req.RequestURI = ""
	req.URL, err = url.Parse("http://" + ln.Addr().String() + "/api/orders")
	require.NoError(t, err)
	req.Host = req.URL.Host

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, services.OversizeMessage, body["error"])

	orders, err := ta.repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_WrongFileType(t *testing.T) {
	ta := setupApp(t, appOptions{})
	part := filePart{field: "designFile", name: "design.gif", contentType: "image/gif", data: []byte("GIF89a")}

	status, body := doRequest(t, ta.app, multipartRequest(t, validFields(), part))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "designFile", body["field"])
	assert.Equal(t, "supported formats: JPG, PNG, PDF, SVG", body["error"])
}

func TestCreateOrder_NotMultipart(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, body := doRequest(t, ta.app, jsonRequest(http.MethodPost, "/api/orders", validFields()))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "productType", body["field"])
}

func TestGetOrders(t *testing.T) {
	ta := setupApp(t, appOptions{})
	for i := 0; i < 2; i++ {
		status, _ := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(256)))
		require.Equal(t, http.StatusCreated, status)
	}

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/api/orders", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Len(t, orders, 2)
	assert.Equal(t, float64(1000), orders[0]["id"])
	assert.Equal(t, float64(1001), orders[1]["id"])
}

func TestGetOrderByID_NotFound(t *testing.T) {
	ta := setupApp(t, appOptions{})

	for _, id := range []string{"999", "abc"} {
		status, body := doRequest(t, ta.app, httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
		assert.Equal(t, http.StatusNotFound, status, id)
		assert.Equal(t, "order not found", body["error"])
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	ta := setupApp(t, appOptions{})
	status, _ := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(256)))
	require.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, ta.app, jsonRequest(http.MethodPatch, "/api/orders/1000/status", map[string]string{"status": "approved"}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	_, order := doRequest(t, ta.app, httptest.NewRequest(http.MethodGet, "/api/orders/1000", nil))
	assert.Equal(t, "approved", order["status"])
	history, ok := order["statusHistory"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2)
	assert.Equal(t, "pending_review", history[0].(map[string]any)["status"])
	last := history[1].(map[string]any)
	assert.Equal(t, "approved", last["status"])
	assert.Equal(t, "status updated by operator", last["note"])

	status, _ = doRequest(t, ta.app, jsonRequest(http.MethodPatch, "/api/orders/4242/status", map[string]string{"status": "approved"}))
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doRequest(t, ta.app, jsonRequest(http.MethodPatch, "/api/orders/1000/status", map[string]string{"status": ""}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "status", body["field"])
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUpdateOrderStatus_FormBodyOutlivesRequest(t *testing.T) {
	ta := setupApp(t, appOptions{})
	status, _ := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(256)))
	require.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, ta.app, formRequest(http.MethodPatch, "/api/orders/1000/status", url.Values{"status": {"shipped"}}))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "order status updated to shipped", body["message"])

	// Later requests reuse the same request buffers.
	for i := 0; i < 20; i++ {
		status, _ = doRequest(t, ta.app, formRequest(http.MethodPatch, "/api/orders/9999/status", url.Values{"status": {"XXXXXXX"}}))
		require.Equal(t, http.StatusNotFound, status)
	}

	stored, err := ta.repo.GetByID(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "shipped", string(stored.Status))
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, "shipped", string(stored.StatusHistory[1].Status))

	_, order := doRequest(t, ta.app, httptest.NewRequest(http.MethodGet, "/api/orders/1000", nil))
	assert.Equal(t, "shipped", order["status"])
}

func TestGetCatalog(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, body := doRequest(t, ta.app, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["products"], 4)
	assert.Len(t, body["colors"], 6)
	assert.Equal(t, []any{"XS", "S", "M", "L", "XL", "XXL"}, body["sizes"])
	assert.Equal(t, float64(500), body["printingCost"])
	assert.Equal(t, float64(300), body["shippingCost"])
}

func TestOperatorAuth(t *testing.T) {
	ta := setupApp(t, appOptions{withAuth: true})
	status, _ := doRequest(t, ta.app, multipartRequest(t, validFields(), pngPart(256)))
	require.Equal(t, http.StatusCreated, status)

	patch := func(token string) int {
		req := jsonRequest(http.MethodPatch, "/api/orders/1000/status", map[string]string{"status": "shipped"})
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		status, _ := doRequest(t, ta.app, req)
		return status
	}

	// No token
	assert.Equal(t, http.StatusUnauthorized, patch(""))
	assert.Equal(t, http.StatusUnauthorized, patch("garbage"))

	// Wrong password
	status, _ = doRequest(t, ta.app, jsonRequest(http.MethodPost, "/api/operator/login", map[string]string{"password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, status)

	// Missing password
	status, body := doRequest(t, ta.app, jsonRequest(http.MethodPost, "/api/operator/login", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation error", body["error"])

	status, body = doRequest(t, ta.app, jsonRequest(http.MethodPost, "/api/operator/login", map[string]string{"password": operatorPassword}))
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusOK, patch(token))
}

func TestOperatorLogin_Disabled(t *testing.T) {
	ta := setupApp(t, appOptions{})

	status, _ := doRequest(t, ta.app, jsonRequest(http.MethodPost, "/api/operator/login", map[string]string{"password": "x"}))
	assert.Equal(t, http.StatusNotFound, status)
}
