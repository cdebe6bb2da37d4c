package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/types"
)

var (
	srtTimeRE = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)
	tagRE     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// ReadSRTFile parses the SRT file at path.
func ReadSRTFile(path string) ([]types.Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return ParseSRT(f)
}

// ParseSRT reads SRT cues. Blocks without a valid timing line are skipped;
// inline markup is removed from cue text.
func ParseSRT(r io.Reader) ([]types.Cue, error) {
	var cues []types.Cue
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	cur := types.Cue{}
	state := "index"
	var text []string
	flush := func() {
		if len(text) > 0 {
			cur.Text = strings.Join(text, "\n")
			cues = append(cues, cur)
		}
		cur = types.Cue{}
		text = nil
		state = "index"
	}

	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			if idx, err := strconv.Atoi(line); err == nil {
				cur.Index = idx
				state = "time"
				continue
			}
			// some writers omit the index
			if st, en, ok := parseTimingLine(line); ok {
				cur.Start, cur.End = st, en
				state = "text"
			}
		case "time":
			if line == "" {
				continue
			}
			st, en, ok := parseTimingLine(line)
			if !ok {
				state = "index"
				continue
			}
			cur.Start, cur.End = st, en
			state = "text"
		case "text":
			if line == "" {
				flush()
				continue
			}
			if t := strings.TrimSpace(tagRE.ReplaceAllString(line, "")); t != "" {
				text = append(text, t)
			}
		}
	}
	if state == "text" {
		flush()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return cues, nil
}

func parseTimingLine(s string) (time.Duration, time.Duration, bool) {
	m := srtTimeRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	return hmsms(m[1], m[2], m[3], m[4]), hmsms(m[5], m[6], m[7], m[8]), true
}

func hmsms(h, m, s, ms string) time.Duration {
	hi, _ := strconv.Atoi(h)
	mi, _ := strconv.Atoi(m)
	si, _ := strconv.Atoi(s)
	msi, _ := strconv.Atoi(ms)
	return time.Duration(hi)*time.Hour +
		time.Duration(mi)*time.Minute +
		time.Duration(si)*time.Second +
		time.Duration(msi)*time.Millisecond
}

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := int64(d.Round(time.Millisecond) / time.Millisecond)
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp accepts HH:MM:SS,mmm as well as the looser forms analysis
// services tend to return: HH:MM:SS.mmm, HH:MM:SS, MM:SS and plain seconds.
func ParseTimestamp(s string) (time.Duration, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	t = strings.Replace(t, ",", ".", 1)
	parts := strings.Split(t, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var total float64
	for i, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		last := i == len(parts)-1
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || (!last && strings.Contains(p, ".")) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)).Round(time.Millisecond), nil
}

// PlainText joins cue text into a single transcript string.
func PlainText(cues []types.Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ReplaceAll(c.Text, "\n", " "))
	}
	return b.String()
}

// Window returns the cues overlapping [start,end), with times shifted to be
// relative to start and clipped to the window.
func Window(cues []types.Cue, start, end time.Duration) []types.Cue {
	var out []types.Cue
	for _, c := range cues {
		if c.End <= start || c.Start >= end {
			continue
		}
		st, en := c.Start, c.End
		if st < start {
			st = start
		}
		if en > end {
			en = end
		}
		out = append(out, types.Cue{Index: c.Index, Start: st - start, End: en - start, Text: c.Text})
	}
	return out
}
