package rcsbapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdbsync/pdbsync/internal/rcsbapi"
)

func TestSearchReturnsRawJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result_set":[{"identifier":"1ABC"}]}`))
	}))
	defer srv.Close()

	client := &rcsbapi.Client{SearchBaseURL: srv.URL}
	raw, err := client.Search(context.Background(), rcsbapi.SearchQuery{
		Query:      json.RawMessage(`{"type":"terminal"}`),
		ReturnType: "entry",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), "1ABC") {
		t.Fatalf("expected raw response to contain 1ABC, got %s", raw)
	}
}

func TestEntryEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"rcsb_id":"1ABC"}`))
	}))
	defer srv.Close()

	client := &rcsbapi.Client{DataBaseURL: srv.URL}
	if _, err := client.Entry(context.Background(), "1ABC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/entry/1ABC" {
		t.Fatalf("expected path /entry/1ABC, got %s", gotPath)
	}
}

func TestDoReturnsErrorOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))
	defer srv.Close()

	client := &rcsbapi.Client{DataBaseURL: srv.URL}
	if _, err := client.Entry(context.Background(), "ZZZZ"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestDoRejectsNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := &rcsbapi.Client{DataBaseURL: srv.URL}
	if _, err := client.Entry(context.Background(), "1ABC"); err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
}
