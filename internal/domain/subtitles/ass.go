package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/types"
)

// HookDuration is how long the hook overlay stays on screen.
const HookDuration = 5 * time.Second

type Overlay struct {
	Cues     []types.Cue
	Start    time.Duration
	End      time.Duration
	Captions bool
	Hook     string
	Width    int
	Height   int
}

// RenderOverlayASS builds an ASS script with karaoke captions for the cues
// inside [Start,End) and an optional hook line at the top. ok is false when
// there is nothing to draw.
func RenderOverlayASS(o Overlay) (script string, ok bool) {
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 1080, 1920
	}
	clipLen := o.End - o.Start
	if clipLen <= 0 {
		return "", false
	}

	var lines []line
	if o.Captions {
		if words := spreadWords(Window(o.Cues, o.Start, o.End)); len(words) > 0 {
			lines = packWords(words)
		}
	}
	hook := sanitizeASS(strings.Join(strings.Fields(o.Hook), " "))
	if len(lines) == 0 && hook == "" {
		return "", false
	}

	var b strings.Builder
	b.WriteString(assHeader(o.Width, o.Height))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	if hook != "" {
		hookEnd := HookDuration
		if hookEnd > clipLen {
			hookEnd = clipLen
		}
		fmt.Fprintf(&b, "Dialogue: 1,%s,%s,Hook,,0,0,0,,%s\n", assTime(0), assTime(hookEnd), hook)
	}
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Caption,,0,0,0,,")
		for _, w := range ln.Words {
			durCS := int((w.End - w.Start) / (10 * time.Millisecond))
			if durCS < 1 {
				durCS = 1
			}
			fmt.Fprintf(&b, "{\\k%d}%s ", durCS, w.Text)
		}
		b.WriteString("\n")
	}
	return b.String(), true
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

// spreadWords splits each cue into words and spreads the cue duration over
// them by rune length. Transcripts carry no word timings.
func spreadWords(cues []types.Cue) []wword {
	var out []wword
	for _, c := range cues {
		fields := strings.Fields(c.Text)
		if len(fields) == 0 || c.End <= c.Start {
			continue
		}
		total := 0
		for _, f := range fields {
			total += len([]rune(f))
		}
		span := c.End - c.Start
		at := c.Start
		acc := 0
		for i, f := range fields {
			acc += len([]rune(f))
			end := c.Start + time.Duration(int64(span)*int64(acc)/int64(total))
			if i == len(fields)-1 {
				end = c.End
			}
			text := sanitizeASS(f)
			if text != "" {
				out = append(out, wword{Start: at, End: end, Text: text})
			}
			at = end
		}
	}
	return out
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	// short lines read better on vertical video
	charBudget := 28
	wordBudget := 6
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func assHeader(w, h int) string {
	captionSize := h / 24
	hookSize := h / 22
	marginV := h / 8
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, %d, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 60,60,%d,1
Style: Hook, Inter, %d, &H00000000, &H00000000, &H00FFFFFF, &H00FFFFFF, 1,0,0,0,100,100,0,0,3,12,0,8, 60,60,%d,1
`), w, h, captionSize, marginV, hookSize, marginV)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
