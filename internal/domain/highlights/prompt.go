package highlights

import (
	"fmt"
	"strings"

	"github.com/forPelevin/clipper/internal/domain/subtitles"
	"github.com/forPelevin/clipper/internal/types"
)

const (
	MinClipSeconds = 15
	MaxClipSeconds = 90
)

// maxPromptRunes bounds the transcript sent to the analysis service.
const maxPromptRunes = 120_000

// BuildPrompt renders the analysis request. The transcript is passed with
// cue timestamps so the service can answer in the same format.
func BuildPrompt(info types.VideoInfo, cues []types.Cue, count int) string {
	var tr strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&tr, "[%s --> %s] %s\n",
			subtitles.FormatTimestamp(c.Start),
			subtitles.FormatTimestamp(c.End),
			strings.ReplaceAll(c.Text, "\n", " "),
		)
	}
	transcript := tr.String()
	if r := []rune(transcript); len(r) > maxPromptRunes {
		transcript = string(r[:maxPromptRunes])
	}

	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = "untitled"
	}
	return fmt.Sprintf(
		"You pick the most engaging segments of a long video for short vertical clips.\n"+
			"Video title: %s\n"+
			"Return strictly valid JSON (no markdown, no code fences) matching the provided schema, "+
			"with up to %d highlights ordered from best to worst. "+
			"Each highlight must be a self-contained moment between %d and %d seconds long that starts cleanly and ends on a complete thought. "+
			"Highlights must not overlap. "+
			"Use timestamps exactly in the transcript format HH:MM:SS,mmm. "+
			"virality_score is an integer from 0 to 10. "+
			"hook_text is a short attention-grabbing line (max 8 words) shown at the start of the clip.\n\n"+
			"Transcript:\n%s",
		title, count, MinClipSeconds, MaxClipSeconds, transcript,
	)
}

// ResponseSchema is the JSON schema the analysis response must follow.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"highlights": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":          map[string]any{"type": "string"},
						"description":    map[string]any{"type": "string"},
						"start_time":     map[string]any{"type": "string"},
						"end_time":       map[string]any{"type": "string"},
						"virality_score": map[string]any{"type": "integer"},
						"hook_text":      map[string]any{"type": "string"},
					},
					"required": []string{"title", "description", "start_time", "end_time", "virality_score", "hook_text"},
				},
			},
		},
		"required": []string{"highlights"},
	}
}
