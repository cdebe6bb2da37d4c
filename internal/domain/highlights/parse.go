package highlights

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/domain/subtitles"
	"github.com/forPelevin/clipper/internal/types"
)

// Raw is a highlight as returned by the analysis service, before
// normalization. Score is negative when the service gave none.
type Raw struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
	Score       float64
	HookText    string
}

// ParseResponse extracts highlights from a model answer. Fenced or
// prefixed JSON is tolerated.
func ParseResponse(content string) ([]Raw, error) {
	clean, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}
	var out struct {
		Highlights []struct {
			Title         string          `json:"title"`
			Description   string          `json:"description"`
			StartTime     json.RawMessage `json:"start_time"`
			EndTime       json.RawMessage `json:"end_time"`
			ViralityScore json.RawMessage `json:"virality_score"`
			HookText      string          `json:"hook_text"`
		} `json:"highlights"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode highlights: %w", err)
	}
	res := make([]Raw, 0, len(out.Highlights))
	for _, h := range out.Highlights {
		res = append(res, Raw{
			Title:       h.Title,
			Description: h.Description,
			StartTime:   rawString(h.StartTime),
			EndTime:     rawString(h.EndTime),
			Score:       rawNumber(h.ViralityScore),
			HookText:    h.HookText,
		})
	}
	return res, nil
}

// ExtractJSONObject returns the outermost JSON object in s, stripping
// markdown fences and surrounding prose.
func ExtractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("could not locate JSON object in: %q", truncate(t, 200))
}

func rawString(b json.RawMessage) string {
	if len(b) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	// bare seconds
	return strings.TrimSpace(string(b))
}

func rawNumber(b json.RawMessage) float64 {
	if len(b) == 0 {
		return -1
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return -1
}

// Normalize turns raw highlights into session highlights: timestamps are
// made canonical, durations recomputed from them, scores clamped to 0..10
// and estimated from the transcript when missing. Entries with unusable
// timing or overlapping an earlier entry are dropped. Order is kept.
func Normalize(raws []Raw, cues []types.Cue, videoSeconds float64, count int) []types.Highlight {
	limit := time.Duration(videoSeconds * float64(time.Second))
	type span struct{ st, en time.Duration }
	var taken []span

	out := make([]types.Highlight, 0, len(raws))
	for _, r := range raws {
		st, err := subtitles.ParseTimestamp(r.StartTime)
		if err != nil {
			continue
		}
		en, err := subtitles.ParseTimestamp(r.EndTime)
		if err != nil {
			continue
		}
		if limit > 0 && en > limit {
			en = limit
		}
		if en <= st {
			continue
		}
		overlaps := false
		for _, s := range taken {
			if overlapRatio(st, en, s.st, s.en) > 0.5 {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		taken = append(taken, span{st, en})

		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = fmt.Sprintf("Highlight %d", len(out)+1)
		}
		score := r.Score
		if score < 0 || math.IsNaN(score) {
			score = Estimate(subtitles.PlainText(subtitles.Window(cues, st, en)))
		}

		out = append(out, types.Highlight{
			Title:           title,
			Description:     strings.TrimSpace(r.Description),
			StartTime:       subtitles.FormatTimestamp(st),
			EndTime:         subtitles.FormatTimestamp(en),
			DurationSeconds: float64((en - st).Round(time.Millisecond)) / float64(time.Second),
			ViralityScore:   int(math.Round(clamp(score, 0, 10))),
			HookText:        strings.TrimSpace(r.HookText),
		})
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

// ByScore returns a copy of hs ordered by descending virality, stable.
func ByScore(hs []types.Highlight) []types.Highlight {
	out := append([]types.Highlight(nil), hs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ViralityScore > out[j].ViralityScore })
	return out
}

// Bounds parses the highlight timestamps.
func Bounds(h types.Highlight) (time.Duration, time.Duration, error) {
	st, err := subtitles.ParseTimestamp(h.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("highlight %q start: %w", h.Title, err)
	}
	en, err := subtitles.ParseTimestamp(h.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("highlight %q end: %w", h.Title, err)
	}
	if en <= st {
		return 0, 0, fmt.Errorf("highlight %q: end %s is not after start %s", h.Title, h.EndTime, h.StartTime)
	}
	return st, en, nil
}

func overlapRatio(a0, a1, b0, b1 time.Duration) float64 {
	lo := max(a0, b0)
	hi := min(a1, b1)
	if hi <= lo {
		return 0
	}
	shorter := min(a1-a0, b1-b0)
	if shorter <= 0 {
		return 0
	}
	return float64(hi-lo) / float64(shorter)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
