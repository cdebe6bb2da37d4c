package ytdlp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const infoJSON = `{
  "id": "abc123",
  "title": "Long Podcast",
  "duration": 3600.5,
  "webpage_url": "https://www.youtube.com/watch?v=abc123",
  "subtitles": {"en": [{"ext": "vtt", "name": "English"}], "live_chat": [{"ext": "json"}]},
  "automatic_captions": {"id": [{"ext": "vtt", "name": "Indonesian"}], "de-DE": [{"ext": "vtt"}]}
}`

func TestParseInfo(t *testing.T) {
	t.Parallel()

	v, err := parseInfo([]byte(infoJSON))
	require.NoError(t, err)

	info := v.info("https://youtu.be/abc123")
	assert.Equal(t, "abc123", info.SourceID)
	assert.Equal(t, "Long Podcast", info.Title)
	assert.Equal(t, 3600.5, info.DurationSeconds)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", info.SourceURL)

	tracks := v.tracks()
	require.Len(t, tracks, 3)
	assert.Equal(t, SubtitleTrack{Lang: "en", Name: "English", Auto: false}, tracks[0])
	assert.Equal(t, SubtitleTrack{Lang: "de-DE", Name: "de-DE", Auto: true}, tracks[1])
	assert.Equal(t, SubtitleTrack{Lang: "id", Name: "Indonesian", Auto: true}, tracks[2])

	assert.True(t, v.hasSubtitles("id"))
	assert.True(t, v.hasSubtitles("de"))
	assert.False(t, v.hasSubtitles("fr"))
	assert.False(t, v.hasSubtitles("live"))
}

func TestParseInfo_Invalid(t *testing.T) {
	t.Parallel()

	_, err := parseInfo([]byte("nope"))
	require.Error(t, err)
	_, err = parseInfo([]byte(`{"title":"x"}`))
	require.Error(t, err)
}

func TestRelayDownloadProgress(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"[youtube] abc123: Downloading webpage",
		"[download]   0.0% of ~ 100.00MiB at  1.00MiB/s ETA 01:40",
		"[download]  42.5% of ~ 100.00MiB at  1.00MiB/s ETA 00:50",
		"[download] 100% of 100.00MiB in 00:01:40",
		"[Merger] Merging formats",
	}, "\n")

	var statuses []string
	var fracs []float64
	relayDownloadProgress(strings.NewReader(out), func(s string, f float64) {
		statuses = append(statuses, s)
		fracs = append(fracs, f)
	})
	require.Len(t, statuses, 3)
	assert.Equal(t, "Downloading video (42.5%)", statuses[1])
	assert.InDelta(t, 0.425, fracs[1], 1e-9)
	assert.Equal(t, 1.0, fracs[2])
}

func TestFindSubtitleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, n := range []string{"source.mp4", "source.en-US.srt", "source.id.srt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	got, err := findSubtitleFile(dir, "id")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.id.srt"), got)

	got, err = findSubtitleFile(dir, "en")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.en-US.srt"), got)

	got, err = findSubtitleFile(dir, "fr")
	require.NoError(t, err)
	assert.Empty(t, got)
}
