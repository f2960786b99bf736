package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"partnersync/pkg/logging"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/test", func(c *gin.Context) {
		id := GetCorrelationID(c)
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	// Should have set the header
	corrID := w.Header().Get(CorrelationIDHeader)
	if corrID == "" {
		t.Fatal("expected X-Correlation-ID header to be set")
	}

	// Body should match header
	if w.Body.String() != corrID {
		t.Errorf("body %q does not match header %q", w.Body.String(), corrID)
	}
}

func TestCorrelationIDMiddleware_UsesExistingID(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/test", func(c *gin.Context) {
		id := GetCorrelationID(c)
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CorrelationIDHeader, "my-custom-id")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	corrID := w.Header().Get(CorrelationIDHeader)
	if corrID != "my-custom-id" {
		t.Errorf("expected %q, got %q", "my-custom-id", corrID)
	}

	if w.Body.String() != "my-custom-id" {
		t.Errorf("body: expected %q, got %q", "my-custom-id", w.Body.String())
	}
}

func TestCorrelationIDMiddleware_FallsBackToDeliveryID(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.POST("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set(DeliveryIDHeader, "msg_2abc")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(CorrelationIDHeader); got != "msg_2abc" {
		t.Errorf("expected delivery id as correlation id, got %q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(CorrelationID(), RequestLogger(logging.NewWithWriter(&buf, "test", "debug")))
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(CorrelationIDHeader, "corr-9")
	r.ServeHTTP(w, req)

	line := buf.String()
	for _, want := range []string{"level=ERROR", "status=500", "path=/fail", "correlation_id=corr-9"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestGetCorrelationID_NoContext(t *testing.T) {
	// When called with a context that has no correlation ID set,
	// it should generate a new UUID
	r := gin.New()
	r.GET("/test", func(c *gin.Context) {
		// No middleware, so no correlation ID in context
		id := GetCorrelationID(c)
		if id == "" {
			t.Error("expected a generated UUID, got empty string")
		}
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}
