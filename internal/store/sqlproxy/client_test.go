package sqlproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuerySendsBearerTokenAndBody(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data":[{"id":1}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL, BearerToken: "s3cret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := client.Query(context.Background(), "SELECT id FROM users WHERE email = %s", "a@b.c")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if gotAuth != "Bearer s3cret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotBody["sql"] != "SELECT id FROM users WHERE email = %s" {
		t.Errorf("sql = %v", gotBody["sql"])
	}
	params, ok := gotBody["params"].([]any)
	if !ok || len(params) != 1 || params[0] != "a@b.c" {
		t.Errorf("params = %v", gotBody["params"])
	}
	if len(res.Data) != 1 {
		t.Fatalf("data rows = %d", len(res.Data))
	}
}

func TestQueryEncodesEmptyParamsAsArray(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL, BearerToken: "t"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Query(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("query: %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if string(body["params"]) != "[]" {
		t.Errorf("params encoded as %s, want []", body["params"])
	}
}

func TestQuerySurfacesProxyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"syntax error near SELEC"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL, BearerToken: "t"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Query(context.Background(), "SELEC 1"); err == nil {
		t.Fatalf("expected error from proxy error field")
	}
}

func TestQueryRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL, BearerToken: "wrong"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("expected error for 403")
	}
}

func TestNewClientRequiresURLAndToken(t *testing.T) {
	if _, err := NewClient(Options{BearerToken: "t"}); err == nil {
		t.Fatalf("expected error without url")
	}
	if _, err := NewClient(Options{URL: "https://db.example.com"}); err == nil {
		t.Fatalf("expected error without token")
	}
}
