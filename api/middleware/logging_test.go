package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rgalindo-dev/storely-backend/pkg/logger"
)

func TestLoggingPassesThroughExplicitStatus(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/gateway", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}
}

func TestLoggingDefaultsToImplicitOK(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"received":true}`))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", rr.Code)
	}
}

func TestStatusRecorderCapturesCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}

	rec.WriteHeader(http.StatusBadRequest)

	if rec.status != http.StatusBadRequest {
		t.Fatalf("expected recorded status 400, got %d", rec.status)
	}
}
