package graphstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestMutateReturnsUidMap(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mutate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uids": map[string]string{"account_alice": "0x1"},
		})
	})

	store, err := New(Config{Endpoint: srv.URL}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uids, err := store.Mutate(context.Background(), Mutation{
		Set: []Entity{{"uid": "_:account_alice", "username": "alice"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uids["account_alice"] != "0x1" {
		t.Fatalf("expected uid map entry, got %+v", uids)
	}
}

func TestHealthNon200IsError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	store, _ := New(Config{Endpoint: srv.URL}, nil)
	if err := store.Health(context.Background()); err == nil {
		t.Fatalf("expected error on non-200 health response")
	}
}

func TestQueryGlobalStripsNamespace(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spkcc_T.account":[{"spkcc_T.username":"alice"}]}`))
	})
	store, _ := New(Config{Endpoint: srv.URL}, nil)
	raw, err := store.QueryGlobal(context.Background(), "query{}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if _, ok := v["account"]; !ok {
		t.Fatalf("expected stripped key 'account', got %+v", v)
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
