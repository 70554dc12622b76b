package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/discovery-service/internal/repository"
)

const maxInputChars = 24_000

const systemPrompt = `You extract structured facts from web page text. ` +
	`Respond with a JSON object: {"title": string, "top_facts": [string], ` +
	`"quotes": [string], "summary": string, "controversy_flags": [string], ` +
	`"confidence": number between 0 and 1}. Quotes must be verbatim passages ` +
	`from the text. Flag controversial or disputed claims.`

// Extractor implements ExtractionProvider against an OpenAI-compatible chat
// completions endpoint.
type Extractor struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewExtractor creates an LLM extraction provider.
func NewExtractor(endpoint, apiKey, model string, timeout time.Duration) *Extractor {
	return &Extractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type extractionPayload struct {
	Title            string   `json:"title"`
	TopFacts         []string `json:"top_facts"`
	Quotes           []string `json:"quotes"`
	Summary          string   `json:"summary"`
	ControversyFlags []string `json:"controversy_flags"`
	Confidence       float64  `json:"confidence"`
}

// Extract asks the model for structured facts about the page text.
func (e *Extractor) Extract(ctx context.Context, input repository.ExtractInput) (*repository.ExtractResult, error) {
	text := input.Text
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	userPrompt := fmt.Sprintf("Topic: %s\nURL: %s\nTitle: %s\n\nPage text:\n%s",
		input.Topic, input.URL, input.Title, text)

	reqBody, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction API %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal extraction response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extraction API returned no choices")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal extraction payload: %w", err)
	}

	return &repository.ExtractResult{
		Title:            payload.Title,
		TopFacts:         payload.TopFacts,
		Quotes:           payload.Quotes,
		Summary:          payload.Summary,
		ControversyFlags: payload.ControversyFlags,
		Confidence:       payload.Confidence,
		Metadata: map[string]any{
			"model": e.model,
		},
		Elapsed: time.Since(start),
	}, nil
}
