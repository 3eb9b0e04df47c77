package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type draftPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func chatServer(t *testing.T, choice map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		payload := map[string]any{"choices": []any{choice}}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func openRouterClient(url string, opts ...Option) *Client {
	return NewClient(Config{Provider: ProviderOpenRouter, APIKey: "test", BaseURL: url, Model: "demo-model"}, opts...)
}

func TestClientHealthCheck(t *testing.T) {
	server := chatServer(t, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	defer server.Close()

	if err := openRouterClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := chatServer(t, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	defer server.Close()

	if err := openRouterClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{Provider: ProviderOpenRouter, APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if status, ok := HTTPStatus(err); !ok || status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status, got %d (ok=%v)", status, ok)
	}
}

func TestClientCompleteJSONToolCallsArguments(t *testing.T) {
	server := chatServer(t, map[string]any{
		"finish_reason": "tool_calls",
		"message": map[string]any{
			"content": "",
			"tool_calls": []any{
				map[string]any{
					"type": "function",
					"id":   "call_1",
					"function": map[string]any{
						"name":      "draft_email",
						"arguments": `{"subject":"re: our call today","body":"Thanks"}`,
					},
				},
			},
		},
	})
	defer server.Close()

	content, err := openRouterClient(server.URL).CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	var draft draftPayload
	if err := DecodeLLMJSON(content, &draft); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draft.Subject != "re: our call today" {
		t.Fatalf("unexpected subject %q", draft.Subject)
	}
}

func TestClientCompleteJSONEmptyContentHasSnippet(t *testing.T) {
	server := chatServer(t, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	defer server.Close()

	client := openRouterClient(server.URL, WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {}))
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientCompleteJSONDeltaAndLegacyText(t *testing.T) {
	choices := []map[string]any{
		{"delta": map[string]any{"content": `{"subject":"a","body":"b"}`}},
		{"finish_reason": "stop", "text": `{"subject":"a","body":"b"}`},
	}
	for _, choice := range choices {
		server := chatServer(t, choice)
		content, err := openRouterClient(server.URL).CompleteJSON(context.Background(), "system", "user")
		server.Close()
		if err != nil {
			t.Fatalf("CompleteJSON returned error: %v", err)
		}
		if !strings.Contains(content, `"subject"`) {
			t.Fatalf("unexpected content %q", content)
		}
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer server.Close()

	var slept []time.Duration
	client := openRouterClient(server.URL,
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryOnBadRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := openRouterClient(server.URL, WithSleeper(func(time.Duration) {}), WithRetryMaxAttempts(5))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestAnthropicMessagesRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "anthropic-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing version header")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "be brief" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.MaxTokens != 1500 || req.Model != "claude-test" {
			t.Errorf("unexpected model settings: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []any{map[string]any{"type": "text", "text": "```json\n{\"subject\":\"s\",\"body\":\"b\"}\n```"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	client := NewClient(Config{Provider: ProviderAnthropic, APIKey: "anthropic-key", BaseURL: server.URL, Model: "claude-test"})
	content, err := client.CompleteJSON(context.Background(), "be brief", "draft it")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	var draft draftPayload
	if err := DecodeLLMJSON(content, &draft); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draft.Subject != "s" || draft.Body != "b" {
		t.Fatalf("unexpected draft %+v", draft)
	}
}

func TestAnthropicEmptyContentRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		blocks := []any{}
		if calls >= 2 {
			blocks = append(blocks, map[string]any{"type": "text", "text": `{"ok":true}`})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": blocks, "stop_reason": "max_tokens"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"}, WithRetryBackoff(0, 0))
	if client.Provider() != ProviderAnthropic {
		t.Fatalf("expected anthropic default provider, got %s", client.Provider())
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestCompleteJSONValidatesInputs(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("expected system prompt error")
	}
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var draft draftPayload
	if err := DecodeLLMJSON("Here you go:\n{\"subject\":\"x\",\"body\":\"y\"}\nThanks!", &draft); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if draft.Subject != "x" {
		t.Fatalf("unexpected subject %q", draft.Subject)
	}
	if err := DecodeLLMJSON("no json here", &draft); err == nil {
		t.Fatal("expected decode failure")
	}
}
