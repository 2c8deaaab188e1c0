package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/beatchart/beatchart/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.SetForTesting(config.AppConfig{
		AdminSecret:        "test-admin-secret",
		RateLimitPerMinute: 2,
	})
	os.Exit(m.Run())
}

func newGuardedRouter() *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin")
	admin.Use(AdminRequired())
	admin.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"code": 0})
	})
	return r
}

func TestAdminRequired(t *testing.T) {
	r := newGuardedRouter()

	cases := []struct {
		name   string
		secret string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"case variant", "TEST-ADMIN-SECRET", http.StatusUnauthorized},
		{"correct", "test-admin-secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.secret != "" {
				req.Header.Set(AdminSecretHeader, tc.secret)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.POST("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"code": 0})
	})

	// Burst is limit/2 with a floor of one; the configured budget of 2 per
	// minute allows a single immediate request from one client.
	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("burst of requests never rate limited")
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/ping", nil)
	req.RemoteAddr = "10.9.9.9:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("fresh client got %d, want 200", w.Code)
	}
}
