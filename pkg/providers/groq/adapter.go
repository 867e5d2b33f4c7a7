package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/resilience"
)

// Adapter talks to Groq's OpenAI-compatible chat completions API.
type Adapter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewAdapter(apiKey, model string) *Adapter {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &Adapter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.groq.com/openai/v1",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() string { return "groq" }

func (a *Adapter) Generate(ctx context.Context, input llm.Request) (string, error) {
	body, err := a.buildRequest(input)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)
	resp, err := a.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return "", resilience.RateLimitError{Provider: "groq", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", errors.New(string(raw))
	}
	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return payload.Choices[0].Message.Content, nil
}

func (a *Adapter) buildRequest(input llm.Request) (*bytes.Buffer, error) {
	messages := make([]map[string]any, 0, len(input.Messages)+1)
	if input.System != "" {
		messages = append(messages, map[string]any{"role": llm.RoleSystem, "content": input.System})
	}
	for _, m := range input.Messages {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}
	req := map[string]any{
		"model":    a.Model,
		"messages": messages,
	}
	if input.Temperature > 0 {
		req["temperature"] = input.Temperature
	}
	if input.MaxTokens > 0 {
		req["max_tokens"] = input.MaxTokens
	}
	if input.JSONOnly {
		req["response_format"] = map[string]any{"type": "json_object"}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(b), nil
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

var _ llm.Adapter = (*Adapter)(nil)
