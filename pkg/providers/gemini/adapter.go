package gemini

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

// Adapter talks to the Gemini generateContent REST API.
type Adapter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewAdapter(apiKey, model string) *Adapter {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Adapter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) Generate(ctx context.Context, input llm.Request) (string, error) {
	body, err := a.buildRequest(input)
	if err != nil {
		return "", err
	}
	url := a.BaseURL + "/models/" + a.Model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.APIKey)
	resp, err := a.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return "", resilience.RateLimitError{Provider: "gemini", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", errors.New(string(raw))
	}
	var payload struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no candidates")
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}

func (a *Adapter) buildRequest(input llm.Request) (*bytes.Buffer, error) {
	contents := make([]map[string]any, 0, len(input.Messages))
	for _, m := range input.Messages {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}
	genCfg := map[string]any{}
	if input.Temperature > 0 {
		genCfg["temperature"] = input.Temperature
	}
	if input.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = input.MaxTokens
	}
	if input.JSONOnly {
		genCfg["responseMimeType"] = "application/json"
	}
	req := map[string]any{"contents": contents}
	if input.System != "" {
		req["system_instruction"] = map[string]any{
			"parts": []map[string]any{{"text": input.System}},
		}
	}
	if len(genCfg) > 0 {
		req["generationConfig"] = genCfg
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
