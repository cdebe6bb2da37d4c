package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/forPelevin/clipper/internal/clips"
	"github.com/forPelevin/clipper/internal/types"
	"github.com/forPelevin/clipper/internal/usecase"
)

// progressPrinter is a usecase.Observer writing one line per meaningful
// change. Per-clip percentages are reported in 10% steps.
type progressPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	last     string
	lastClip int
	bucket   int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, bucket: -1}
}

func (p *progressPrinter) OnEvent(e usecase.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var line string
	switch {
	case e.Err != nil, e.Cancelled:
		line = e.Status
	case e.Clip != nil:
		b := -1
		if e.Clip.Fraction >= 0 {
			b = int(e.Clip.Fraction * 10)
		}
		if e.Clip.Index == p.lastClip && b == p.bucket {
			return
		}
		p.lastClip, p.bucket = e.Clip.Index, b
		line = e.Status
	case len(e.Steps) > 0:
		line = stepLine(e.Steps)
	default:
		line = e.Status
	}
	if line == "" || line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.w, line)
}

// stepLine renders the active step, e.g. "[2/3 transcribe] Transcribing audio 10%".
func stepLine(steps []types.ProgressStep) string {
	for i, s := range steps {
		if s.State != types.StepActive && s.State != types.StepCancelled {
			continue
		}
		line := fmt.Sprintf("[%d/%d %s] %s", i+1, len(steps), s.Name, s.Label)
		if s.Fraction >= 0 && !strings.Contains(s.Label, "%") {
			line += fmt.Sprintf(" %d%%", int(s.Fraction*100+0.5))
		}
		return line
	}
	last := steps[len(steps)-1]
	if last.State == types.StepDone {
		return fmt.Sprintf("[%d/%d %s] %s", len(steps), len(steps), last.Name, last.Label)
	}
	return ""
}

func printHighlights(w io.Writer, hs []types.Highlight) {
	t := table{header: []string{"#", "SCORE", "START", "END", "SECS", "TITLE", "HOOK"}}
	for i, h := range hs {
		t.add(
			fmt.Sprint(i+1),
			fmt.Sprintf("%d/10", h.ViralityScore),
			h.StartTime,
			h.EndTime,
			fmt.Sprintf("%.0f", h.DurationSeconds),
			truncate(h.Title, 40),
			truncate(h.HookText, 30),
		)
	}
	t.write(w)
}

func printSessions(w io.Writer, sessions []types.Session) {
	t := table{header: []string{"ID", "STATUS", "HIGHLIGHTS", "CLIPS", "UPDATED", "TITLE"}}
	for _, s := range sessions {
		t.add(
			s.ID,
			string(s.Status),
			fmt.Sprint(len(s.Highlights)),
			fmt.Sprint(s.ClipsProcessed),
			s.UpdatedAt.Local().Format(time.DateTime),
			truncate(s.VideoInfo.Title, 48),
		)
	}
	t.write(w)
}

func printClips(w io.Writer, cs []clips.Clip) {
	t := table{header: []string{"SECS", "SCORE", "TITLE", "FILE"}}
	for _, c := range cs {
		t.add(
			fmt.Sprintf("%.0f", c.Meta.DurationSeconds),
			fmt.Sprintf("%d/10", c.Meta.ViralityScore),
			truncate(c.Meta.Title, 40),
			c.VideoPath,
		)
	}
	t.write(w)
}

func printUsage(w io.Writer, u types.UsageMetrics) {
	if u == (types.UsageMetrics{}) {
		return
	}
	fmt.Fprintf(w, "Usage: %d input / %d output LLM tokens", u.LLMInputTokens, u.LLMOutputTokens)
	if u.TranscriptionSeconds > 0 {
		fmt.Fprintf(w, ", %s transcribed", (time.Duration(u.TranscriptionSeconds * float64(time.Second))).Round(time.Second))
	}
	if u.SynthesisChars > 0 {
		fmt.Fprintf(w, ", %d synthesized chars", u.SynthesisChars)
	}
	fmt.Fprintln(w)
}

type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	for _, row := range append([][]string{t.header}, t.rows...) {
		var b strings.Builder
		for i, c := range row {
			if i == len(row)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(padRight(c, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
