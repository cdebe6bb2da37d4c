// Package gemini talks to Google's Gemini models: highlight discovery with a
// streamed answer, and hook voice-overs from the TTS models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/forPelevin/clipper/internal/domain/highlights"
	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/types"
)

const DefaultModel = "gemini-2.5-flash"

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

type Adapter struct {
	model  string
	stream streamFunc
}

func New(ctx context.Context, apiKey, model string) (*Adapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newWithStream(model, client.Models.GenerateContentStream), nil
}

func newWithStream(model string, stream streamFunc) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{model: model, stream: stream}
}

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

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(highlights.BuildPrompt(req.Info, req.Cues, req.Count)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	}

	progress("Finding highlights with "+a.model, -1)
	var (
		b        strings.Builder
		meta     *genai.GenerateContentResponseUsageMetadata
		chunks   int
		finalErr error
	)
	for resp, err := range a.stream(ctx, a.model, contents, cfg) {
		if err != nil {
			finalErr = err
			break
		}
		if resp == nil {
			continue
		}
		if resp.UsageMetadata != nil {
			meta = resp.UsageMetadata
		}
		b.WriteString(resp.Text())
		chunks++
		progress(fmt.Sprintf("Finding highlights: received %d chunks", chunks), -1)
	}
	// usage metadata is cumulative; the last chunk carries the totals
	if meta != nil {
		usage(runctl.LLMInput, float64(meta.PromptTokenCount))
		usage(runctl.LLMOutput, float64(meta.CandidatesTokenCount))
	}
	if finalErr != nil {
		return nil, fmt.Errorf("gemini: %w", finalErr)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("gemini: empty response")
	}
	raws, err := highlights.ParseResponse(text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return highlights.Normalize(raws, req.Cues, req.Info.DurationSeconds, req.Count), nil
}
