package server

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler(t *testing.T) (http.Handler, ed25519.PrivateKey, *int) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	interactions := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	update := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("updated"))
	})
	h, err := NewHandler(Routes{Interactions: interactions, PublicKey: pub, MaxBodyBytes: 1 << 20, Update: update})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, priv, &calls
}

func signedRequest(priv ed25519.PrivateKey, body string) *http.Request {
	ts := "1700000000"
	sig := ed25519.Sign(priv, append([]byte(ts), body...))
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", ts)
	return req
}

func TestLiveness(t *testing.T) {
	h, _, _ := testHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != Liveness {
		t.Fatalf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type = %s", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatal("missing request id header")
	}
}

func TestNotFound(t *testing.T) {
	h, _, _ := testHandler(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/interactions"},
		{http.MethodPut, "/"},
		{http.MethodGet, "/update"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusNotFound || strings.TrimSpace(rec.Body.String()) != "Not Found" {
			t.Errorf("%s %s = %d %q", tc.method, tc.path, rec.Code, rec.Body.String())
		}
	}
}

func TestInteractionsRequireSignature(t *testing.T) {
	h, priv, calls := testHandler(t)
	body := `{"id":"1","type":1}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized || *calls != 0 {
		t.Fatalf("unsigned = %d, calls = %d", rec.Code, *calls)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(priv, body))
	if rec.Code != http.StatusOK || *calls != 1 {
		t.Fatalf("signed = %d, calls = %d", rec.Code, *calls)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte(body)) {
		t.Fatalf("body reached handler as %q", rec.Body.String())
	}
}

func TestUpdateRoute(t *testing.T) {
	h, _, _ := testHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/update", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "updated" {
		t.Fatalf("POST /update = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewHandlerValidates(t *testing.T) {
	if _, err := NewHandler(Routes{}); err == nil {
		t.Fatal("expected error without handler")
	}
	if _, err := NewHandler(Routes{Interactions: http.NotFoundHandler(), PublicKey: []byte{1}}); err == nil {
		t.Fatal("expected error for a short key")
	}
}
