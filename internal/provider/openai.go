package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// OpenAIClient calls the chat completions endpoint of an OpenAI-compatible API
type OpenAIClient struct {
	baseURL string
	model   string
	hc      *http.Client
}

// NewOpenAIClient creates a new OpenAI client. Timeouts come from the caller's context.
func NewOpenAIClient(baseURL, model string, hc *http.Client) *OpenAIClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      hc,
	}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Client
func (c *OpenAIClient) Complete(ctx context.Context, key, instruction, text string) (string, error) {
	body := openAIRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(instruction, text)},
		},
	}

	var out openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + key}
	if err := postJSON(ctx, c.hc, OpenAI, c.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", errors.New("empty choices")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
