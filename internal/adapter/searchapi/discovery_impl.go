package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/pkg/utils"
)

const providerName = "searchapi"

// Client implements DiscoveryProvider over an HTTP search API.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a discovery provider pointed at the given search
// endpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Discover queries the search API for candidate URLs, filtering by the
// domain allowlist when one is given.
func (c *Client) Discover(ctx context.Context, topic string, limit int, allowedDomains []string) ([]repository.Candidate, error) {
	reqBody, err := json.Marshal(searchRequest{Query: topic, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}

	allowed := make(map[string]bool, len(allowedDomains))
	for _, d := range allowedDomains {
		allowed[d] = true
	}

	candidates := make([]repository.Candidate, 0, len(result.Results))
	for _, r := range result.Results {
		if len(allowed) > 0 && !allowed[utils.DomainOf(r.URL)] {
			continue
		}
		candidates = append(candidates, repository.Candidate{
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  r.Snippet,
			Provider: providerName,
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}
