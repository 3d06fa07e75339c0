package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testSchema = Schema{
	Name: "test_payload",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
		"required": []string{"answer"},
	},
}

func TestOpenAIComplete_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"answer\":\"42\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "gpt-4.1-mini", srv.Client())

	raw, err := p.Complete(context.Background(), "be precise", "what is the answer", testSchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if payload.Answer != "42" {
		t.Errorf("expected answer 42, got %q", payload.Answer)
	}

	// Request must carry the structured-output format and both messages.
	if captured["model"] != "gpt-4.1-mini" {
		t.Errorf("expected model in request, got %v", captured["model"])
	}
	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_schema" {
		t.Errorf("expected json_schema response format, got %v", captured["response_format"])
	}
	msgs, ok := captured["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", captured["messages"])
	}
}

func TestOpenAIComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "bad-key", "gpt-4.1-mini", srv.Client())

	_, err := p.Complete(context.Background(), "sys", "user", testSchema)
	if err == nil {
		t.Fatal("expected error for HTTP 401, got nil")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestOpenAIComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "gpt-4.1-mini", srv.Client())

	_, err := p.Complete(context.Background(), "sys", "user", testSchema)
	if err == nil {
		t.Fatal("expected error for empty choices, got nil")
	}
}
