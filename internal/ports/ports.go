package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/types"
)

// ProgressFunc receives free-form status text. fraction is in [0,1] or
// negative when the collaborator cannot tell.
type ProgressFunc func(status string, fraction float64)

// UsageFunc reports billable resource usage.
type UsageFunc func(kind runctl.Kind, amount float64)

type AcquireRequest struct {
	URL string
	// Language of the subtitles to fetch; "none" skips subtitles.
	Language string
	Dir      string
}

type Acquired struct {
	VideoPath      string
	TranscriptPath string
	Info           types.VideoInfo
}

// Acquirer downloads the source video and its subtitles. When no subtitles
// exist it returns *TranscriptNotFoundError.
type Acquirer interface {
	Acquire(ctx context.Context, req AcquireRequest, progress ProgressFunc) (Acquired, error)
}

type MediaTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
}

// Transcriber writes an SRT transcript for the audio file and returns its
// path.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, outPrefix string) (string, error)
}

type AnalysisRequest struct {
	Cues  []types.Cue
	Info  types.VideoInfo
	Count int
}

type Analyzer interface {
	FindHighlights(ctx context.Context, req AnalysisRequest, progress ProgressFunc, usage UsageFunc) ([]types.Highlight, error)
}

type RenderRequest struct {
	VideoPath string
	Start     time.Duration
	End       time.Duration
	// Cues are in source time; used for captions.
	Cues     []types.Cue
	HookText string
	Options  types.EnhancementOptions
	// HookAudioPath is a spoken version of the hook, mixed in from the
	// start of the clip. Empty means no voice-over.
	HookAudioPath string
	OutPath       string
	WorkDir       string
}

type Renderer interface {
	RenderClip(ctx context.Context, req RenderRequest, progress ProgressFunc) error
}

type SynthesisRequest struct {
	Text string
	// OutPath receives a WAV file.
	OutPath string
}

// Synthesizer speaks short texts. Billed characters are reported through
// usage as runctl.SynthesisChars.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest, usage UsageFunc) error
}

// TranscriptNotFoundError reports that the source has no subtitles in the
// requested language. It carries what is needed to continue with
// transcription.
type TranscriptNotFoundError struct {
	VideoPath  string
	Info       types.VideoInfo
	SessionDir string
	Language   string
}

func (e *TranscriptNotFoundError) Error() string {
	return fmt.Sprintf("no %q subtitles for %q", e.Language, e.Info.Title)
}
