package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// GeminiClient calls the generateContent endpoint of the Gemini API
type GeminiClient struct {
	baseURL string
	model   string
	hc      *http.Client
}

// NewGeminiClient creates a new Gemini client. Timeouts come from the caller's context.
func NewGeminiClient(baseURL, model string, hc *http.Client) *GeminiClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      hc,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete implements Client
func (c *GeminiClient) Complete(ctx context.Context, key, instruction, text string) (string, error) {
	body := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: buildPrompt(instruction, text)}}},
		},
	}

	endpoint := c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": key}

	var out geminiResponse
	if err := postJSON(ctx, c.hc, Gemini, endpoint, headers, body, &out); err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", errors.New("empty candidates")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
