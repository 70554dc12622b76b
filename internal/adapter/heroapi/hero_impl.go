package heroapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/discovery-service/internal/repository"
)

// ErrNotConfigured is returned when no hero endpoint is set. The pipeline
// treats it as "no media selected" rather than a page failure.
var ErrNotConfigured = errors.New("hero provider not configured")

// Client implements HeroProvider over an HTTP media-resolution API.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a hero-media provider. An empty endpoint yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type heroRequest struct {
	Topic   string `json:"topic"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type heroResponse struct {
	MediaURL string `json:"media_url"`
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Alt      string `json:"alt"`
}

// SelectHero asks the media-resolution service for representative media.
func (c *Client) SelectHero(ctx context.Context, input repository.HeroInput) (*repository.HeroResult, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	reqBody, err := json.Marshal(heroRequest{
		Topic:   input.Topic,
		URL:     input.URL,
		Title:   input.Title,
		Summary: input.Summary,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal hero request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build hero request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hero request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hero API %d: %s", resp.StatusCode, string(body))
	}

	var result heroResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal hero response: %w", err)
	}

	return &repository.HeroResult{
		MediaURL: result.MediaURL,
		Kind:     result.Kind,
		Source:   result.Source,
		Alt:      result.Alt,
	}, nil
}
