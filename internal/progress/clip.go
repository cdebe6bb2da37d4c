package progress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type ClipProgress struct {
	Index    int
	Total    int
	Title    string
	Fraction float64
}

var (
	clipRE       = regexp.MustCompile(`^Clip (\d+)/(\d+): (.*)$`)
	clipSuffixRE = regexp.MustCompile(`^(\d+(?:\.\d+)?)%\)$`)
)

// FormatClipStatus renders the per-clip status line understood by
// ParseClipStatus. A negative fraction omits the percentage.
func FormatClipStatus(index, total int, title string, frac float64) string {
	if frac < 0 {
		return fmt.Sprintf("Clip %d/%d: %s", index, total, title)
	}
	return fmt.Sprintf("Clip %d/%d: %s (%d%%)", index, total, title, int(clamp01(frac)*100+0.5))
}

// ParseClipStatus parses "Clip {i}/{n}: {title}" with an optional
// " ({p}%)" suffix. The title always ends at the last " (", so
// "Clip 1/2: Foo (bar)" has title "Foo" and no fraction. ok is false for
// anything else.
func ParseClipStatus(s string) (ClipProgress, bool) {
	m := clipRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ClipProgress{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return ClipProgress{}, false
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return ClipProgress{}, false
	}

	cp := ClipProgress{Index: idx, Total: total, Title: m[3], Fraction: Unknown}
	i := strings.LastIndex(m[3], " (")
	if i < 0 {
		return cp, true
	}
	cp.Title = m[3][:i]
	if sm := clipSuffixRE.FindStringSubmatch(m[3][i+2:]); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			cp.Fraction = clamp01(v / 100)
		}
	}
	return cp, true
}
