package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func preflight(t *testing.T, handler gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	r.Use(handler)
	r.OPTIONS("/readings", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/readings", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsLocalDevOrigins(t *testing.T) {
	t.Parallel()

	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:8000",
	}

	for _, origin := range origins {
		origin := origin
		t.Run(origin, func(t *testing.T) {
			t.Parallel()
			rec := preflight(t, CORS(nil), origin)

			if rec.Code != http.StatusNoContent {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, origin)
			}
		})
	}
}

func TestCORSHonorsConfiguredOrigins(t *testing.T) {
	t.Parallel()

	allowed := "https://dashboard.pharmatrust.example"
	rec := preflight(t, CORS([]string{allowed}), allowed)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != allowed {
		t.Fatalf("configured origin not allowed: got=%q want=%q", got, allowed)
	}

	rec = preflight(t, CORS([]string{allowed}), "http://localhost:3000")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("default origin should be replaced by configured list, got=%q", got)
	}
}
