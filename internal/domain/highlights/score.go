package highlights

import (
	"regexp"
	"strings"
)

// signal adds weight per match of re in a transcript excerpt.
type signal struct {
	re     *regexp.Regexp
	weight float64
	once   bool
}

var (
	// Concrete content: figures and instructions.
	substance = []signal{
		{re: regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`), weight: 0.4},
		{re: regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`), weight: 1.2, once: true},
	}
	// Attention grabbers.
	hooks = []signal{
		{re: regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember|nobody|actually)\b`), weight: 0.9},
		{re: regexp.MustCompile(`(?i)\bstep\s+\d+\b`), weight: 0.4},
		{re: regexp.MustCompile(`\?`), weight: 0.7},
		{re: regexp.MustCompile(`!`), weight: 0.3},
	}
)

func weigh(text string, signals []signal) float64 {
	var total float64
	for _, s := range signals {
		n := len(s.re.FindAllStringIndex(text, -1))
		if s.once && n > 1 {
			n = 1
		}
		total += float64(n) * s.weight
	}
	return total
}

// Estimate is the fallback virality score in [0,10] for a transcript excerpt
// the analyzer returned without a usable score. Long excerpts are penalised
// slightly.
func Estimate(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	content := clamp(weigh(t, substance)-0.0006*float64(len([]rune(t))), 0, 10)
	return clamp(content+clamp(weigh(t, hooks), 0, 10), 0, 10)
}

func clamp(x, lo, hi float64) float64 {
	return min(max(x, lo), hi)
}
