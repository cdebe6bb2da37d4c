package runctl

import (
	"math"
	"sync"

	"github.com/forPelevin/clipper/internal/types"
)

type Kind string

const (
	LLMInput             Kind = "llm_input"
	LLMOutput            Kind = "llm_output"
	TranscriptionSeconds Kind = "transcription_seconds"
	SynthesisChars       Kind = "synthesis_chars"
)

// Usage accumulates resource usage for one run. Counters only grow.
type Usage struct {
	mu sync.Mutex
	m  types.UsageMetrics
}

func NewUsage() *Usage { return &Usage{} }

// Record adds amount to the counter for kind. Negative, NaN and unknown kinds
// are ignored.
func (u *Usage) Record(kind Kind, amount float64) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	switch kind {
	case LLMInput:
		u.m.LLMInputTokens += int64(amount)
	case LLMOutput:
		u.m.LLMOutputTokens += int64(amount)
	case TranscriptionSeconds:
		u.m.TranscriptionSeconds += amount
	case SynthesisChars:
		u.m.SynthesisChars += int64(amount)
	}
}

func (u *Usage) Snapshot() types.UsageMetrics {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.m
}
