package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
)

// Summarizer turns a set of free-text comments into a short thematic
// summary. Callers are responsible for the anonymity gate; by the time
// comments reach a Summarizer they are already allowed to be read.
type Summarizer interface {
	Summarize(ctx context.Context, teamLeaderName string, comments []string) (string, error)
}

const systemPrompt = `You summarize anonymous workplace feedback about a team leader.
Identify the recurring themes across all comments and describe them in a few short paragraphs.
Stay neutral and constructive. Never quote, paraphrase closely, or otherwise reproduce any
individual comment, and never speculate about who wrote what.`

// ChatClient implements Summarizer against any chat-completions compatible
// API (OpenAI and the usual lookalikes).
type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     echo.Logger
}

// NewChatClient creates a new ChatClient
func NewChatClient(baseURL, apiKey, model string, logger echo.Logger) *ChatClient {
	return &ChatClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

func (c *ChatClient) Summarize(ctx context.Context, teamLeaderName string, comments []string) (string, error) {
	if len(comments) == 0 {
		return "", fmt.Errorf("no comments to summarize")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Feedback comments about %s, one per line:\n", teamLeaderName)
	for _, comment := range comments {
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(comment, "\n", " "))
		sb.WriteString("\n")
	}

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": sb.String()},
		},
		"temperature": 0.3,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling summary API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading summary response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if c.logger != nil {
			c.logger.Errorf("Summary API returned %d: %s", resp.StatusCode, string(raw))
		}
		return "", fmt.Errorf("summary API returned status %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", fmt.Errorf("summary API returned an empty completion")
	}

	return strings.TrimSpace(content.String()), nil
}
