package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/domain/highlights"
	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/types"
)

const (
	DefaultModel   = "z-ai/glm-4.5-air:free"
	requestTimeout = 3 * time.Minute
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Stream         bool           `json:"stream"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string `json:"type"`
	JSONSchema struct {
		Name   string         `json:"name"`
		Schema map[string]any `json:"schema"`
	} `json:"json_schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content messageContent `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// messageContent accepts a plain string or an array of {type,text} parts.
type messageContent string

func (m *messageContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = messageContent(s)
		return nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("unexpected content %s", truncate(string(b), 40))
	}
	var sb strings.Builder
	for _, p := range parts {
		var part struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(p, &part) == nil {
			sb.WriteString(part.Text)
		}
	}
	*m = messageContent(sb.String())
	return nil
}

// FindHighlights asks the model for highlight segments of the transcript.
// Token usage is reported even when the answer cannot be used.
func (a *Adapter) FindHighlights(
	ctx context.Context,
	req ports.AnalysisRequest,
	progress ports.ProgressFunc,
	usage ports.UsageFunc,
) ([]types.Highlight, error) {
	if progress == nil {
		progress = func(string, float64) {}
	}
	if usage == nil {
		usage = func(runctl.Kind, float64) {}
	}
	if req.Count <= 0 || len(req.Cues) == 0 {
		return nil, nil
	}

	body := chatRequest{
		Model:    a.model,
		Messages: []chatMessage{{Role: "user", Content: highlights.BuildPrompt(req.Info, req.Cues, req.Count)}},
	}
	body.ResponseFormat.Type = "json_schema"
	body.ResponseFormat.JSONSchema.Name = "clipper_highlights"
	body.ResponseFormat.JSONSchema.Schema = highlights.ResponseSchema()

	progress("Finding highlights with "+a.model, -1)
	resp, err := a.complete(ctx, body)
	if err != nil {
		return nil, err
	}
	usage(runctl.LLMInput, float64(resp.Usage.PromptTokens))
	usage(runctl.LLMOutput, float64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return nil, errors.New("openrouter: response has no choices")
	}
	content := string(resp.Choices[0].Message.Content)
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("openrouter: empty content")
	}
	progress("Finding highlights: parsing answer", 0.9)

	raws, err := highlights.ParseResponse(content)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}
	return highlights.Normalize(raws, req.Cues, req.Info.DurationSeconds, req.Count), nil
}

// complete posts one chat completion. Errors never carry the API key.
func (a *Adapter) complete(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, fmt.Errorf("openrouter: %s", redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openrouter: decode response: %w", err)
	}
	return &out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`), "${1}[REDACTED]"},
}

func redactSecrets(s, apiKey string) string {
	if apiKey != "" {
		s = strings.ReplaceAll(s, apiKey, "[REDACTED]")
	}
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
