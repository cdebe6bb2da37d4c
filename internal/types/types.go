package types

import "time"

type Status string

const (
	StatusDiscovering     Status = "discovering"
	StatusHighlightsFound Status = "highlights_found"
	StatusProcessing      Status = "processing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

type VideoInfo struct {
	Title           string  `json:"title"`
	SourceID        string  `json:"source_id,omitempty"`
	SourceURL       string  `json:"source_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Highlight is one candidate segment of the source video. Timestamps use the
// transcript format HH:MM:SS,mmm.
type Highlight struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
	ViralityScore   int     `json:"virality_score"`
	HookText        string  `json:"hook_text,omitempty"`
}

type Session struct {
	ID                 string      `json:"session_id"`
	VideoInfo          VideoInfo   `json:"video_info"`
	VideoPath          string      `json:"video_path"`
	TranscriptPath     string      `json:"transcript_path"`
	TranscriptLanguage string      `json:"transcript_language,omitempty"`
	SessionDir         string      `json:"session_dir"`
	Highlights         []Highlight `json:"highlights"`
	Status             Status      `json:"status"`
	ClipsProcessed     int         `json:"clips_processed"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type StepState string

const (
	StepPending   StepState = "pending"
	StepActive    StepState = "active"
	StepDone      StepState = "done"
	StepCancelled StepState = "cancelled"
)

// ProgressStep is an in-memory view of one pipeline step. Fraction is in
// [0,1], or negative when unknown.
type ProgressStep struct {
	Name     string
	State    StepState
	Fraction float64
	Label    string
}

type UsageMetrics struct {
	LLMInputTokens       int64   `json:"llm_input_tokens"`
	LLMOutputTokens      int64   `json:"llm_output_tokens"`
	TranscriptionSeconds float64 `json:"transcription_seconds"`
	SynthesisChars       int64   `json:"synthesis_chars"`
}

type EnhancementOptions struct {
	Captions bool
	HookText bool
}

// ClipMeta is written next to every rendered clip as data.json.
type ClipMeta struct {
	Title           string    `json:"title"`
	HookText        string    `json:"hook_text"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	ViralityScore   int       `json:"virality_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Cue is a single timed transcript entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}
