package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/partstrack-backend/api/responses"
)

func TestRequestIDHeaderHandling(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"keeps caller id", "req-7f3a", true},
		{"mints id when missing", "", false},
		{"replaces ids with spaces", "two words", false},
		{"replaces oversized ids", strings.Repeat("x", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/parts", nil)
			if tt.header != "" {
				req.Header.Set(responses.RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(responses.RequestIDHeader)
			if got == "" {
				t.Fatal("expected a request id on the response")
			}
			if tt.keep != (got == tt.header) {
				t.Fatalf("header %q produced id %q", tt.header, got)
			}
		})
	}
}

func TestRecovererWritesInternalEnvelopeWithRequestID(t *testing.T) {
	handler := RequestID(nil)(Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil product map")
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/1/parts", nil)
	req.Header.Set(responses.RequestIDHeader, "req-panic")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	var body responses.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.RequestID != "req-panic" {
		t.Fatalf("expected request id in envelope, got %q", body.Error.RequestID)
	}
	if strings.Contains(body.Error.Message, "nil product map") {
		t.Fatalf("panic value leaked to the client: %q", body.Error.Message)
	}
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
