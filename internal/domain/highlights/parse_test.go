package highlights

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/clipper/internal/types"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantSub string
		wantErr bool
	}{
		{"raw", `{"highlights":[{"title":"t"}]}`, `"highlights"`, false},
		{"fenced", "```json\n{\"highlights\":[]}\n```", `"highlights"`, false},
		{"preface", "sure! {\"highlights\":[]} thanks", `"highlights"`, false},
		{"empty", "   ", "", true},
		{"nojson", "hello", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.wantSub) {
				t.Fatalf("expected %q to contain %q", got, tt.wantSub)
			}
		})
	}
}

func TestParseResponse_LooseTypes(t *testing.T) {
	t.Parallel()

	in := "```json\n" + `{"highlights":[
		{"title":"A","description":"d","start_time":"00:00:10,000","end_time":"00:00:40,000","virality_score":8,"hook_text":"h"},
		{"title":"B","start_time":75,"end_time":"01:50","virality_score":"6"},
		{"title":"C","start_time":"00:03:00,000","end_time":"00:03:30,000"}
	]}` + "\n```"
	got, err := ParseResponse(in)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "00:00:10,000", got[0].StartTime)
	assert.Equal(t, 8.0, got[0].Score)
	assert.Equal(t, "h", got[0].HookText)

	assert.Equal(t, "75", got[1].StartTime)
	assert.Equal(t, "01:50", got[1].EndTime)
	assert.Equal(t, 6.0, got[1].Score)

	assert.Equal(t, -1.0, got[2].Score)
}

func TestParseResponse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseResponse("no json here")
	require.Error(t, err)

	_, err = ParseResponse(`{"highlights": "nope"}`)
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cues := []types.Cue{
		{Start: 100 * time.Second, End: 110 * time.Second, Text: "Here is why this is important! Step 1 and step 2?"},
	}
	raws := []Raw{
		{Title: " First ", StartTime: "00:00:10,000", EndTime: "00:00:40.5", Score: 12, HookText: " hook "},
		{Title: "Overlap", StartTime: "00:00:12,000", EndTime: "00:00:38,000", Score: 9},
		{Title: "", StartTime: "95", EndTime: "01:55", Score: -1},
		{Title: "Broken", StartTime: "zz", EndTime: "00:01:00,000", Score: 5},
		{Title: "Backwards", StartTime: "00:05:00,000", EndTime: "00:04:00,000", Score: 5},
		{Title: "Past end", StartTime: "00:09:50,000", EndTime: "00:12:00,000", Score: 3},
	}

	got := Normalize(raws, cues, 600, 0)
	require.Len(t, got, 3)

	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "00:00:10,000", got[0].StartTime)
	assert.Equal(t, "00:00:40,500", got[0].EndTime)
	assert.InDelta(t, 30.5, got[0].DurationSeconds, 0.001)
	assert.Equal(t, 10, got[0].ViralityScore)
	assert.Equal(t, "hook", got[0].HookText)

	assert.Equal(t, "Highlight 2", got[1].Title)
	assert.Equal(t, "00:01:35,000", got[1].StartTime)
	assert.Equal(t, "00:01:55,000", got[1].EndTime)
	assert.Greater(t, got[1].ViralityScore, 0)

	assert.Equal(t, "Past end", got[2].Title)
	assert.Equal(t, "00:10:00,000", got[2].EndTime)
	assert.InDelta(t, 10.0, got[2].DurationSeconds, 0.001)

	for _, h := range got {
		st, en, err := Bounds(h)
		require.NoError(t, err)
		assert.InDelta(t, (en - st).Seconds(), h.DurationSeconds, 0.001)
	}
}

func TestNormalize_Count(t *testing.T) {
	t.Parallel()

	raws := []Raw{
		{Title: "a", StartTime: "0", EndTime: "20", Score: 1},
		{Title: "b", StartTime: "30", EndTime: "50", Score: 1},
		{Title: "c", StartTime: "60", EndTime: "80", Score: 1},
	}
	got := Normalize(raws, nil, 0, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Title)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	cues := []types.Cue{{Start: time.Second, End: 2 * time.Second, Text: "hello\nthere"}}
	p := BuildPrompt(types.VideoInfo{Title: "My Talk"}, cues, 4)
	assert.Contains(t, p, "Video title: My Talk")
	assert.Contains(t, p, "up to 4 highlights")
	assert.Contains(t, p, "[00:00:01,000 --> 00:00:02,000] hello there")
}

func TestBounds_Rejects(t *testing.T) {
	t.Parallel()

	_, _, err := Bounds(types.Highlight{StartTime: "00:00:10,000", EndTime: "00:00:10,000"})
	require.Error(t, err)
	_, _, err = Bounds(types.Highlight{StartTime: "x", EndTime: "00:00:10,000"})
	require.Error(t, err)
}
