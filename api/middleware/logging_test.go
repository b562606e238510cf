package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

func TestLoggingForwardsHandlerStatus(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 to pass through, got %d", w.Code)
	}
}

func TestLoggingPassesBodyOnImplicitOK(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected body to pass through, got %q", w.Body.String())
	}
}
