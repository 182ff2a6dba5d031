package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestWindowLimiterAllow(t *testing.T) {
	clock := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(3, 15*time.Minute, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected within budget", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request over budget allowed")
	}

	// A different client has its own budget.
	if !l.Allow("5.6.7.8") {
		t.Error("independent client rejected")
	}

	// The counter resets once the window elapses.
	clock = clock.Add(16 * time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Error("request rejected after window reset")
	}
}

func TestWindowLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(2, 15*time.Minute, func() time.Time { return clock })

	r := gin.New()
	r.Use(l.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	statuses := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, want := range statuses {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("request %d status = %d, want %d", i+1, w.Code, want)
		}
	}
}
