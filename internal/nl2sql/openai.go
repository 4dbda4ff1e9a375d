package nl2sql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const defaultBaseURL = "https://api.openai.com"

type OpenAIConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float64
	Timeout       time.Duration
	Template      Template
	ReferenceYear int
}

// OpenAITranslator calls a /chat/completions endpoint with the rendered
// system prompt and the user's question.
type OpenAITranslator struct {
	endpoint      string
	apiKey        string
	model         string
	temperature   float64
	template      Template
	referenceYear int
	client        *http.Client
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	tmpl := cfg.Template
	if tmpl.Version == "" {
		tmpl = HouseStyleV1
	}
	referenceYear := cfg.ReferenceYear
	if referenceYear <= 0 {
		referenceYear = 2025
	}
	return &OpenAITranslator{
		endpoint:      chatCompletionsURL(cfg.BaseURL),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		model:         model,
		temperature:   cfg.Temperature,
		template:      tmpl,
		referenceYear: referenceYear,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

// chatCompletionsURL accepts both https://host and https://host/v1 style base
// URLs.
func chatCompletionsURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
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

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	today := req.Today
	if today.IsZero() {
		today = time.Now()
	}
	payload := chatRequest{
		Model: t.model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildSystemPrompt(t.template, today, t.referenceYear)},
			{Role: "user", Content: req.Utterance},
		},
		Temperature: t.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, truncate(string(rawBody), 512))
	}

	var parsed chatResponse
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	sql := StripMarkdownSQL(parsed.Choices[0].Message.Content)
	if sql == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{
		SQL:      sql,
		Provider: "openai-compatible",
		Model:    t.model,
	}, nil
}

var openingFence = regexp.MustCompile("```[A-Za-z0-9_+-]*[ \t]*\r?\n")

// StripMarkdownSQL removes every code fence marker, the info string of an
// opening fence line and surrounding whitespace. Applying it twice gives the
// same result as applying it once.
func StripMarkdownSQL(value string) string {
	value = openingFence.ReplaceAllString(value, "")
	value = strings.ReplaceAll(value, "```sql", "")
	value = strings.ReplaceAll(value, "```", "")
	return strings.TrimSpace(value)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
