package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func limitedRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestBodyLimit(maxBytes))
	r.POST("/echo", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestBodyLimitRejectsOversizedBody(t *testing.T) {
	r := limitedRouter(8)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("way past the limit"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestRequestBodyLimitPassesSmallBody(t *testing.T) {
	r := limitedRouter(1 << 10)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"ok":1}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequestBodyLimitDisabledForZero(t *testing.T) {
	r := limitedRouter(0)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("anything goes"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
