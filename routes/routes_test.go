package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"checkout-relay/config"
	"checkout-relay/gateway"
	"checkout-relay/handlers"
	"checkout-relay/monitoring"
	"checkout-relay/routes"
	"checkout-relay/service"
)

type stubGateway struct {
	srv   *httptest.Server
	calls atomic.Int32
	last  atomic.Value // map[string]any
}

func newStubGateway(t *testing.T, status int, body string) *stubGateway {
	t.Helper()
	g := &stubGateway{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.calls.Add(1)
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload != nil {
			g.last.Store(payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func newTestRouter(t *testing.T, gw *stubGateway, secret string) *gin.Engine {
	t.Helper()
	return newTestRouterWithTimeout(t, gw, secret, 2*time.Second)
}

func newTestRouterWithTimeout(t *testing.T, gw *stubGateway, secret string, timeout time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		ServiceName:    "checkout-relay-test",
		GatewayBaseURL: gw.srv.URL,
		GatewaySecret:  secret,
		GatewayTimeout: timeout,
		ReturnURLMode:  config.ReturnURLModeHTTPSRelay,
		PublicBaseURL:  "https://relay.example",
		DeepLinkScheme: "myeduapp",
	}
	require.NoError(t, cfg.Validate())

	client := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecret, gw.srv.Client())
	svc := service.NewPaymentService(noop.NewTracerProvider().Tracer("test"), cfg, client)
	h := handlers.NewPaymentHandler(svc, cfg.DeepLink())

	return routes.NewRouter(cfg.ServiceName, h, monitoring.MetricsHandler())
}

func createPayment(r *gin.Engine, body map[string]any) (*httptest.ResponseRecorder, map[string]any) {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/create-payment", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func validBody() map[string]any {
	return map[string]any{
		"amount":      20.00,
		"email":       "abebe@example.com",
		"name":        "Abebe",
		"userId":      "u42",
		"paymentType": "login",
	}
}

const okBody = `{"status":"success","message":"Hosted Link","data":{"checkout_url":"https://pay.example/x"}}`

func TestCreatePayment_EndToEndSuccess(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	w, out := createPayment(r, validBody())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "https://pay.example/x", out["checkout_url"])
	assert.Regexp(t, regexp.MustCompile(`^login_u42_\d+$`), out["tx_ref"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	sent := gw.last.Load().(map[string]any)
	assert.Equal(t, "20.00", sent["amount"])
	assert.Equal(t, "ETB", sent["currency"])
	assert.Equal(t, "Abebe", sent["first_name"])
	assert.Equal(t, "User", sent["last_name"])
	assert.Equal(t, "Payment for login", sent["description"])
	assert.Equal(t, "https://relay.example/payment-result", sent["return_url"])
	assert.Equal(t, out["tx_ref"], sent["tx_ref"])
	assert.NotContains(t, sent, "reference")
}

func TestCreatePayment_MissingEachRequiredField(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	for _, field := range []string{"amount", "email", "name", "userId", "paymentType"} {
		t.Run(field, func(t *testing.T) {
			body := validBody()
			delete(body, field)

			w, out := createPayment(r, body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Missing required fields", out["error"])
		})
	}
	assert.Zero(t, gw.calls.Load())
}

func TestCreatePayment_AmountEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		amount  any
		wantMsg string
	}{
		{"empty string", "", "Missing required fields"},
		{"null", nil, "Missing required fields"},
		{"zero string", "0", "Missing required fields"},
		{"non-numeric", "abc", "Invalid amount. Expected ETB 20.00"},
		{"boolean true", true, "Invalid amount. Expected ETB 20.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newStubGateway(t, http.StatusOK, okBody)
			r := newTestRouter(t, gw, "sk_test")

			body := validBody()
			body["amount"] = tt.amount

			w, out := createPayment(r, body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"error": tt.wantMsg}, out)
			assert.Zero(t, gw.calls.Load())
		})
	}
}

func TestCreatePayment_StringAmountAccepted(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	body := validBody()
	body["amount"] = "20.00"

	w, _ := createPayment(r, body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20.00", gw.last.Load().(map[string]any)["amount"])
}

func TestCreatePayment_NumericUserID(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	body := validBody()
	body["userId"] = 42

	w, out := createPayment(r, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, regexp.MustCompile(`^login_42_\d+$`), out["tx_ref"])
}

func TestCreatePayment_GatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	gw := &stubGateway{}
	gw.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw.calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(gw.srv.Close)
	t.Cleanup(func() { close(release) })

	r := newTestRouterWithTimeout(t, gw, "sk_test", 50*time.Millisecond)

	start := time.Now()
	w, out := createPayment(r, validBody())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "Payment setup failed"}, out)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestCreatePayment_InvalidPaymentType(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	body := validBody()
	body["paymentType"] = "premium"

	w, out := createPayment(r, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "Invalid paymentType")
}

func TestCreatePayment_WrongPriceForSignup(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	body := validBody()
	body["paymentType"] = "signup"

	w, out := createPayment(r, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "100.00")
	assert.Zero(t, gw.calls.Load())
}

func TestCreatePayment_NoCredential(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "")

	w, out := createPayment(r, validBody())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error", out["error"])
	assert.Zero(t, gw.calls.Load())
}

func TestCreatePayment_GatewayFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid API Key or User doesn't exist","status":"failed"}`},
		{"server error", http.StatusInternalServerError, `upstream exploded`},
		{"malformed success", http.StatusOK, `{"status":"success"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newStubGateway(t, tt.status, tt.body)
			r := newTestRouter(t, gw, "sk_test")

			w, out := createPayment(r, validBody())

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, map[string]any{"error": "Payment setup failed"}, out)
		})
	}
}

func TestPaymentResult_IgnoresQuery(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	for _, target := range []string{"/payment-result", "/payment-result?tx_ref=abc&status=failed&foo=bar"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "myeduapp://payment-result", w.Header().Get("Location"))
	}
}

func TestLivenessAndMetrics(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, okBody)
	r := newTestRouter(t, gw, "sk_test")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.LivenessMessage, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
