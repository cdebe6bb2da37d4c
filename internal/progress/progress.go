// Package progress turns free-form status text reported by long-running
// collaborators into a structured list of pipeline steps.
package progress

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/clipper/internal/types"
)

// Unknown is the fraction reported when no progress value is available.
const Unknown = -1.0

type Mode int

const (
	// TwoStep is download then discover; used when subtitles are available.
	TwoStep Mode = 2
	// ThreeStep adds a transcription step between download and discover.
	ThreeStep Mode = 3
)

const (
	StepDownload   = "download"
	StepTranscribe = "transcribe"
	StepDiscover   = "discover"
)

// Keywords are matched case-insensitively as substrings of the status text.
// Families are checked in field order.
type Keywords struct {
	Download   []string `yaml:"download"`
	Transcribe []string `yaml:"transcribe"`
	Discover   []string `yaml:"discover"`
	Complete   []string `yaml:"complete"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Download:   []string{"download"},
		Transcribe: []string{"transcrib"},
		Discover:   []string{"highlight", "finding"},
		Complete:   []string{"complete"},
	}
}

// withDefaults fills empty families from DefaultKeywords.
func (k Keywords) withDefaults() Keywords {
	d := DefaultKeywords()
	if len(k.Download) == 0 {
		k.Download = d.Download
	}
	if len(k.Transcribe) == 0 {
		k.Transcribe = d.Transcribe
	}
	if len(k.Discover) == 0 {
		k.Discover = d.Discover
	}
	if len(k.Complete) == 0 {
		k.Complete = d.Complete
	}
	return k
}

var percentRE = regexp.MustCompile(`\((\d+(?:\.\d+)?)%\)|(\d+(?:\.\d+)?)%`)

// Tracker is not safe for concurrent use; callers serialize updates.
type Tracker struct {
	mode  Mode
	kw    Keywords
	steps []types.ProgressStep
	last  int
}

func NewTracker(mode Mode, kw Keywords) *Tracker {
	if mode != TwoStep {
		mode = ThreeStep
	}
	names := []string{StepDownload, StepDiscover}
	if mode == ThreeStep {
		names = []string{StepDownload, StepTranscribe, StepDiscover}
	}
	steps := make([]types.ProgressStep, len(names))
	for i, n := range names {
		steps[i] = types.ProgressStep{Name: n, State: types.StepPending, Fraction: Unknown}
	}
	return &Tracker{mode: mode, kw: kw.withDefaults(), steps: steps}
}

func (t *Tracker) Mode() Mode { return t.mode }

// Steps returns a copy of the current step list.
func (t *Tracker) Steps() []types.ProgressStep {
	out := make([]types.ProgressStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Update applies a status message. hint is used as the fraction when it lies
// in [0,1]; otherwise a percentage in the text is used when present.
// Text matching no keyword only changes the label of the current step.
func (t *Tracker) Update(status string, hint float64) []types.ProgressStep {
	frac := hint
	if frac < 0 || frac > 1 {
		frac = ParsePercent(status)
	}
	lower := strings.ToLower(status)

	switch {
	case containsAny(lower, t.kw.Download):
		t.activate(0, status, frac, 0)
		t.resetFrom(1)
	case containsAny(lower, t.kw.Transcribe):
		t.done(0)
		t.activate(1, status, frac, 0)
		if t.mode == ThreeStep {
			t.resetFrom(2)
		}
	case containsAny(lower, t.kw.Discover):
		t.done(0)
		if t.mode == ThreeStep {
			t.done(1)
			t.activate(2, status, frac, Unknown)
		} else {
			t.activate(1, status, frac, Unknown)
		}
	case containsAny(lower, t.kw.Complete):
		for i := range t.steps {
			t.done(i)
		}
		t.steps[len(t.steps)-1].Label = status
		t.last = len(t.steps) - 1
	default:
		t.steps[t.current()].Label = status
	}
	return t.Steps()
}

// Cancel marks every active step as cancelled.
func (t *Tracker) Cancel() []types.ProgressStep {
	for i := range t.steps {
		if t.steps[i].State == types.StepActive {
			t.steps[i].State = types.StepCancelled
		}
	}
	return t.Steps()
}

func (t *Tracker) activate(i int, label string, frac, def float64) {
	if frac < 0 {
		frac = def
	}
	t.steps[i].State = types.StepActive
	t.steps[i].Fraction = frac
	t.steps[i].Label = label
	t.last = i
}

func (t *Tracker) done(i int) {
	t.steps[i].State = types.StepDone
	t.steps[i].Fraction = 1
}

func (t *Tracker) resetFrom(i int) {
	for ; i < len(t.steps); i++ {
		t.steps[i] = types.ProgressStep{Name: t.steps[i].Name, State: types.StepPending, Fraction: Unknown}
	}
}

func (t *Tracker) current() int {
	for i, s := range t.steps {
		if s.State == types.StepActive {
			return i
		}
	}
	return t.last
}

// ParsePercent returns the last percentage in s as a fraction in [0,1], or
// Unknown.
func ParsePercent(s string) float64 {
	m := percentRE.FindAllStringSubmatch(s, -1)
	if len(m) == 0 {
		return Unknown
	}
	last := m[len(m)-1]
	raw := last[1]
	if raw == "" {
		raw = last[2]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Unknown
	}
	return clamp01(v / 100)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
