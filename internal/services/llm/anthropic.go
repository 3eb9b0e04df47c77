package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const anthropicVersion = "2023-06-01"

type messagesRequest struct {
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Messages    []messagesMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// sendMessages performs one Anthropic Messages API round trip.
func (c *Client) sendMessages(ctx context.Context, systemPrompt, userPrompt, op string) (string, error) {
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    systemPrompt,
		Messages: []messagesMessage{
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	body, err := c.post(ctx, payload, headers)
	if err != nil {
		return "", err
	}
	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(response.Error.Message))
	}

	var parts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			if text := strings.TrimSpace(block.Text); text != "" {
				parts = append(parts, text)
			}
		case "tool_use":
			if len(block.Input) > 0 {
				parts = append(parts, string(block.Input))
			}
		}
	}
	if content := strings.TrimSpace(strings.Join(parts, "\n")); content != "" {
		return content, nil
	}
	return "", &emptyContentError{
		Op:           op,
		FinishReason: response.StopReason,
		Snippet:      summarizePayloadSnippet(string(body)),
	}
}
