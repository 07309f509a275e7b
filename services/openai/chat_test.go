package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		RetryConfig: &RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     10 * time.Millisecond,
		},
		RateLimiterConfig: &RateLimiterConfig{
			MaxTokens:   100,
			RefillRate:  100,
			MinInterval: 0,
		},
	})
	return client, server
}

func completionResponse(content string) ChatResponse {
	return ChatResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Choices: []ChatChoice{
			{Message: ChatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestChatCompletion(t *testing.T) {
	var gotReq ChatRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(completionResponse("hello"))
	})

	resp, err := client.ChatCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := resp.ExtractContent(); got != "hello" {
		t.Errorf("expected content %q, got %q", "hello", got)
	}
	if gotReq.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hi" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestChatCompletionOptions(t *testing.T) {
	var gotReq ChatRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(completionResponse("ok"))
	})

	_, err := client.ChatCompletion(context.Background(),
		[]ChatMessage{{Role: "user", Content: "hi"}},
		WithModel("gpt-4o"), WithTemperature(0.2), WithMaxTokens(55))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.Model != "gpt-4o" || gotReq.Temperature != 0.2 || gotReq.MaxTokens != 55 {
		t.Errorf("options not applied: %+v", gotReq)
	}
}

func TestChatCompletionRetriesOnServerError(t *testing.T) {
	var calls int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		json.NewEncoder(w).Encode(completionResponse("recovered"))
	})

	resp, err := client.ChatCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if resp.ExtractContent() != "recovered" {
		t.Errorf("unexpected content %q", resp.ExtractContent())
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestChatCompletionDoesNotRetryClientError(t *testing.T) {
	var calls int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	})

	_, err := client.ChatCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "bad request" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestSimpleCompletion(t *testing.T) {
	var gotReq ChatRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(completionResponse("answer"))
	})

	content, err := client.SimpleCompletion(context.Background(), "be brief", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "answer" {
		t.Errorf("expected %q, got %q", "answer", content)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected message layout: %+v", gotReq.Messages)
	}
}

func TestSimpleCompletionNoChoices(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{ID: "chatcmpl-2"})
	})

	if _, err := client.SimpleCompletion(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected an error for a response without choices")
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
	}

	if got := CalculateBackoff(0, config); got != 100*time.Millisecond {
		t.Errorf("attempt 0: got %v", got)
	}
	if got := CalculateBackoff(1, config); got != 200*time.Millisecond {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := CalculateBackoff(10, config); got != time.Second {
		t.Errorf("attempt 10 should cap at max, got %v", got)
	}
}

func TestRateLimiterTryAcquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{
		MaxTokens:   2,
		RefillRate:  0.001,
		MinInterval: 0,
	})

	if !limiter.TryAcquire() || !limiter.TryAcquire() {
		t.Fatal("expected the burst capacity to be available")
	}
	if limiter.TryAcquire() {
		t.Error("expected the bucket to be empty")
	}
}
