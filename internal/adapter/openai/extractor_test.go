package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/discovery-service/internal/repository"
)

func chatStub(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestExtract_ParsesStructuredPayload(t *testing.T) {
	srv, captured := chatStub(t, `{
		"title": "Eclipse Explained",
		"top_facts": ["totality lasts 4 minutes", "path crosses two countries"],
		"quotes": ["the sky went dark at noon"],
		"summary": "An overview of the eclipse.",
		"controversy_flags": [],
		"confidence": 0.85
	}`)

	e := NewExtractor(srv.URL, "key", "gpt-4o-mini", time.Second)
	result, err := e.Extract(context.Background(), repository.ExtractInput{
		Topic: "solar eclipse",
		URL:   "https://example.com/eclipse",
		Title: "Eclipse",
		Text:  "some page text",
	})

	require.NoError(t, err)
	assert.Equal(t, "Eclipse Explained", result.Title)
	assert.Len(t, result.TopFacts, 2)
	assert.Equal(t, []string{"the sky went dark at noon"}, result.Quotes)
	assert.Equal(t, 0.85, result.Confidence)
	assert.Equal(t, "gpt-4o-mini", result.Metadata["model"])

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "solar eclipse")
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestExtract_TruncatesLongInput(t *testing.T) {
	srv, captured := chatStub(t, `{"title":"t","confidence":0.5}`)

	e := NewExtractor(srv.URL, "key", "m", time.Second)
	_, err := e.Extract(context.Background(), repository.ExtractInput{
		Topic: "t",
		Text:  strings.Repeat("a", maxInputChars*2),
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(captured.Messages[1].Content), maxInputChars+500)
}

func TestExtract_APIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL, "key", "m", time.Second)
	_, err := e.Extract(context.Background(), repository.ExtractInput{Topic: "t", Text: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestExtract_MalformedModelOutput(t *testing.T) {
	srv, _ := chatStub(t, `not json at all`)

	e := NewExtractor(srv.URL, "key", "m", time.Second)
	_, err := e.Extract(context.Background(), repository.ExtractInput{Topic: "t", Text: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction payload")
}

func TestExtract_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL, "key", "m", time.Second)
	_, err := e.Extract(context.Background(), repository.ExtractInput{Topic: "t", Text: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
