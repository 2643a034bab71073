package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// GroqClient matches postings with a chat-completions model served by Groq.
type GroqClient struct {
	apiKey     string
	model      string
	baseURL    string
	profile    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

type Options struct {
	BaseURL string
	Model   string
	Profile string
}

func NewGroqClient(apiKey string, opts Options, log logrus.FieldLogger) *GroqClient {
	c := &GroqClient{
		apiKey:     apiKey,
		model:      opts.Model,
		baseURL:    opts.BaseURL,
		profile:    opts.Profile,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.profile == "" {
		c.profile = DefaultProfile
	}
	return c
}

func (c *GroqClient) Name() string {
	return "groq:" + c.model
}

type grokMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokRequest struct {
	Model       string        `json:"model"`
	Messages    []grokMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type grokResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type matchResult struct {
	Matches []struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
		Link  string `json:"link,omitempty"`
	} `json:"matches"`
}

// Match asks the model which candidates fit the profile. Results keep the
// candidates' order; a match's link always comes from its candidate when the
// candidate has one.
func (c *GroqClient) Match(ctx context.Context, candidates []feed.CandidatePosting) ([]models.Match, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	userPrompt, err := buildUserPrompt(candidates)
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, []grokMessage{
		{Role: "system", Content: buildSystemPrompt(c.profile)},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	var result matchResult
	if err := json.Unmarshal([]byte(cleanMarkdownJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AI response (raw length: %d): %w", len(content), err)
	}

	byIndex := make(map[int]models.Match)
	for _, m := range result.Matches {
		if m.Index < 0 || m.Index >= len(candidates) {
			c.log.WithField("index", m.Index).Warn("⚠️ Model returned an unknown post index, skipping")
			continue
		}
		if _, dup := byIndex[m.Index]; dup {
			continue
		}
		link := candidates[m.Index].Link
		if link == "" {
			link = m.Link
		}
		byIndex[m.Index] = models.Match{Link: link, Text: m.Text}
	}

	matches := make([]models.Match, 0, len(byIndex))
	for i := range candidates {
		if m, ok := byIndex[i]; ok {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (c *GroqClient) complete(ctx context.Context, messages []grokMessage) (string, error) {
	reqBody := grokRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal grok request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("grok API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var grokResp grokResponse
	if err := json.Unmarshal(bodyBytes, &grokResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if grokResp.Error != nil {
		return "", fmt.Errorf("API error: %s", grokResp.Error.Message)
	}
	if len(grokResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from grok API")
	}

	return grokResp.Choices[0].Message.Content, nil
}
