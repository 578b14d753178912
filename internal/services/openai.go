package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resonarr/backend/internal/discovery"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"

	// promptLibrarySample bounds how many owned artists are quoted in the
	// prompt; enough for grounding without blowing the context window.
	promptLibrarySample = 150
)

// OpenAIService turns a free-text mood prompt into seed artist names.
type OpenAIService struct {
	settings   SettingsSource
	httpClient *http.Client
	baseURL    string
}

func NewOpenAIService(settings SettingsSource) *OpenAIService {
	return &OpenAIService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: defaultOpenAIBaseURL,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateSeeds asks the model for seed artists matching the prompt. The
// user's library is quoted so suggestions land outside it.
func (s *OpenAIService) GenerateSeeds(ctx context.Context, prompt string, library []string) ([]string, error) {
	cfg := s.settings.Get()
	if cfg.OpenAIAPIKey == "" {
		return nil, discovery.ErrNotConfigured
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = defaultOpenAIModel
	}
	maxSeeds := cfg.OpenAIMaxSeedArtists

	if len(library) > promptLibrarySample {
		library = library[:promptLibrarySample]
	}
	system := fmt.Sprintf(
		"You recommend music artists. Reply with a JSON array of at most %d artist names and nothing else. "+
			"Never suggest artists from this list: %s",
		maxSeeds, strings.Join(library, ", "))

	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	seeds, err := extractArtistArray(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}
	return seeds, nil
}

// extractArtistArray pulls a JSON string array out of a model reply, which
// may wrap it in a code fence or surrounding prose.
func extractArtistArray(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if fenced := betweenFences(content); fenced != "" {
		content = fenced
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var names []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &names); err != nil {
		return nil, fmt.Errorf("failed to parse model reply: %w", err)
	}

	out := names[:0]
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func betweenFences(content string) string {
	open := strings.Index(content, "```")
	if open == -1 {
		return ""
	}
	rest := content[open+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 && !strings.Contains(rest[:nl], "[") {
		rest = rest[nl+1:] // drop a language tag like "json"
	}
	closing := strings.Index(rest, "```")
	if closing == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:closing])
}
