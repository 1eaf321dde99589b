package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"position":0.25}`))
	}))
	defer srv.Close()

	var out struct {
		Position float64 `json:"position"`
	}
	if err := GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Position != 0.25 {
		t.Errorf("Position = %v, want 0.25", out.Position)
	}
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	var out map[string]any
	if err := PostJSON(context.Background(), srv.URL, map[string]any{"name": "cam1"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out["name"] != "cam1" {
		t.Errorf("echo = %v", out)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"camera not found"}`))
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.URL, map[string]string{"name": "x"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || se.Message != "camera not found" {
		t.Errorf("got %+v", se)
	}
}
