package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEchoRouter() *gin.Engine {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})
	return r
}

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	newEchoRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	corrID := w.Header().Get(CorrelationIDHeader)
	if corrID == "" {
		t.Fatal("expected X-Correlation-ID header to be set")
	}
	if w.Body.String() != corrID {
		t.Errorf("body %q does not match header %q", w.Body.String(), corrID)
	}
}

func TestCorrelationIDMiddleware_UsesExistingID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CorrelationIDHeader, "my-custom-id")
	newEchoRouter().ServeHTTP(w, req)

	if got := w.Header().Get(CorrelationIDHeader); got != "my-custom-id" {
		t.Errorf("expected %q, got %q", "my-custom-id", got)
	}
	if w.Body.String() != "my-custom-id" {
		t.Errorf("body: expected %q, got %q", "my-custom-id", w.Body.String())
	}
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		header     string
		wantStatus int
	}{
		{"valid key", "secret", "secret", http.StatusOK},
		{"wrong key", "secret", "guess", http.StatusForbidden},
		{"missing header", "secret", "", http.StatusForbidden},
		{"unconfigured key", "", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/private", APIKey(tt.key), func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusForbidden && w.Body.String() != `{"message":"Forbidden: Invalid API Key"}` {
				t.Errorf("unexpected body: %s", w.Body.String())
			}
		})
	}
}
