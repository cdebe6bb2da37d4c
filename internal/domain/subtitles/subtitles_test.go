package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/forPelevin/clipper/internal/types"
)

const sampleSRT = "\ufeff1\n" +
	"00:00:01,000 --> 00:00:03,500\n" +
	"Here is the <i>key</i> idea.\n" +
	"\n" +
	"2\n" +
	"00:00:04,000 --> 00:00:06,000\n" +
	"Step one: do this.\n" +
	"Step two: measure.\n" +
	"\n" +
	"3\n" +
	"not a timing line\n" +
	"\n" +
	"4\n" +
	"00:01:00.250 --> 00:01:02.000\n" +
	"This is important!"

func TestParseSRT(t *testing.T) {
	t.Parallel()

	cues, err := ParseSRT(strings.NewReader(sampleSRT))
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, 1, cues[0].Index)
	assert.Equal(t, time.Second, cues[0].Start)
	assert.Equal(t, 3500*time.Millisecond, cues[0].End)
	assert.Equal(t, "Here is the key idea.", cues[0].Text)

	assert.Equal(t, "Step one: do this.\nStep two: measure.", cues[1].Text)

	assert.Equal(t, 4, cues[2].Index)
	assert.Equal(t, time.Minute+250*time.Millisecond, cues[2].Start)
	assert.Equal(t, "This is important!", cues[2].Text)
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{62*time.Second + 500*time.Millisecond, "00:01:02,500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03,004"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.in), tt.in.String())
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "00:01:02,500", want: 62500 * time.Millisecond},
		{in: "00:01:02.500", want: 62500 * time.Millisecond},
		{in: "01:00:00", want: time.Hour},
		{in: "01:30", want: 90 * time.Second},
		{in: "75.25", want: 75250 * time.Millisecond},
		{in: "", wantErr: true},
		{in: "aa:bb", wantErr: true},
		{in: "00:61:00", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
		{in: "00.5:10", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"00:00:00,000", "00:12:34,567", "02:00:59,999"} {
		d, err := ParseTimestamp(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatTimestamp(d))
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	cues := []types.Cue{
		{Start: 0, End: 2 * time.Second, Text: "a"},
		{Start: 9 * time.Second, End: 12 * time.Second, Text: "b"},
		{Start: 15 * time.Second, End: 16 * time.Second, Text: "c"},
	}
	got := Window(cues, 10*time.Second, 15*time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, time.Duration(0), got[0].Start)
	assert.Equal(t, 2*time.Second, got[0].End)
	assert.Equal(t, "b", got[0].Text)
}

func TestRenderOverlayASS_Captions(t *testing.T) {
	t.Parallel()

	cues := []types.Cue{
		{Start: 0, End: 2 * time.Second, Text: "hello world"},
		{Start: 2 * time.Second, End: 4 * time.Second, Text: "this is {important}"},
	}
	got, ok := RenderOverlayASS(Overlay{Cues: cues, Start: 0, End: 4 * time.Second, Captions: true})
	require.True(t, ok)
	assert.Contains(t, got, "PlayResX: 1080")
	assert.Contains(t, got, "PlayResY: 1920")
	assert.Contains(t, got, "{\\k")
	assert.Contains(t, got, "(important)")
	assert.NotContains(t, got, "Hook,,")
}

func TestRenderOverlayASS_HookOnly(t *testing.T) {
	t.Parallel()

	got, ok := RenderOverlayASS(Overlay{Start: 0, End: 3 * time.Second, Hook: "  Wait   for it  ", Width: 720, Height: 1280})
	require.True(t, ok)
	assert.Contains(t, got, "Dialogue: 1,0:00:00.00,0:00:03.00,Hook,,0,0,0,,Wait for it")
	assert.NotContains(t, got, "Caption,,")
}

func TestRenderOverlayASS_Nothing(t *testing.T) {
	t.Parallel()

	_, ok := RenderOverlayASS(Overlay{Start: 0, End: time.Second})
	assert.False(t, ok)

	_, ok = RenderOverlayASS(Overlay{Start: time.Second, End: time.Second, Hook: "x"})
	assert.False(t, ok)
}

func TestSpreadWords_CoversCue(t *testing.T) {
	t.Parallel()

	words := spreadWords([]types.Cue{{Start: time.Second, End: 3 * time.Second, Text: "ab abcd ab"}})
	require.Len(t, words, 3)
	assert.Equal(t, time.Second, words[0].Start)
	assert.Equal(t, 3*time.Second, words[2].End)
	for i := 1; i < len(words); i++ {
		assert.Equal(t, words[i-1].End, words[i].Start)
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	cues := []types.Cue{
		{Text: "This is a fairly long English sentence about making great videos."},
		{Text: "The most important thing is to keep your audience watching until the end."},
	}
	assert.Equal(t, "en", DetectLanguage(cues).String())
	assert.Equal(t, language.Und, DetectLanguage(nil))
}
