// Package testutil provides shared HTTP test helpers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Do serves one request against h and returns the recorder.
func Do(t testing.TB, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, body))
	return rec
}

// PostJSON marshals v and POSTs it to path.
func PostJSON(t testing.TB, h http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return Do(t, h, http.MethodPost, path, bytes.NewReader(data))
}

// DecodeJSON decodes the recorded body into v, failing the test on error.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// ErrorMessage returns the "error" field of a JSON error body.
func ErrorMessage(t testing.TB, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	DecodeJSON(t, rec, &body)
	return body["error"]
}
