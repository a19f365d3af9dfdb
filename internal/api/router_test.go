package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRouter_RoutesExist(t *testing.T) {
	env := newTestEnv(t)

	expectedRoutes := map[string]string{
		"GET /":                     "welcome",
		"GET /health":               "health",
		"GET /swagger/*any":         "swagger",
		"GET /customers":            "list",
		"POST /customers":           "create",
		"POST /customers/pubsub":    "webhook",
		"GET /customers/:id":        "get",
		"PUT /customers/:id":        "update",
		"DELETE /customers/:id":     "delete",
		"GET /customers/:id/orders": "orders",
	}

	found := make(map[string]bool)
	for _, r := range env.router.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := expectedRoutes[key]; ok {
			found[key] = true
		}
	}

	for key, desc := range expectedRoutes {
		if !found[key] {
			t.Errorf("missing route %s (%s)", key, desc)
		}
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", "")
	if w.Code != http.StatusOK || w.Body.String() != welcomeMessage {
		t.Errorf("unexpected welcome response: %d %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestNewHandler_CORS(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHandler(NewCustomerHandler(nil, nil, env.orders, nil), testAPIKey, []string{"https://shop.example.com"})

	t.Run("preflight for api key header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/customers", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
		handler.ServeHTTP(w, req)

		if w.Code >= 300 {
			t.Fatalf("expected a successful preflight, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
			t.Errorf("unexpected Access-Control-Allow-Origin: %q", got)
		}
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
			t.Errorf("unexpected Access-Control-Allow-Origin: %q", got)
		}
	})

	t.Run("other origin gets no grant", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no Access-Control-Allow-Origin, got %q", got)
		}
	})
}
