package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := NewLoggingMiddleware(logger).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"path":"/webhooks/payments"`) {
		t.Errorf("expected the path in log output, got %q", out)
	}
	if !strings.Contains(out, `"status":202`) {
		t.Errorf("expected the status in log output, got %q", out)
	}
}
