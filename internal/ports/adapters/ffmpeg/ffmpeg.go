package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/domain/subtitles"
	"github.com/forPelevin/clipper/internal/ports"
)

const (
	outWidth  = 1080
	outHeight = 1920
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	logf    func(format string, args ...any)
}

func New(ffmpegPath, ffprobePath string, logf func(format string, args ...any)) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, logf: logf}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// RenderClip cuts [Start,End) into a 9:16 clip, burning captions and the
// hook line when requested, and mixing in the hook voice-over if one is given. Progress comes from ffmpeg's -progress stream.
func (a *Adapter) RenderClip(ctx context.Context, req ports.RenderRequest, progress ports.ProgressFunc) error {
	if progress == nil {
		progress = func(string, float64) {}
	}
	clipLen := req.End - req.Start
	if clipLen <= 0 {
		return fmt.Errorf("ffmpeg render clip: empty range %s..%s", req.Start, req.End)
	}

	filters := []string{
		"crop=w='min(iw,ih*9/16)':h='min(ih,iw*16/9)'",
		fmt.Sprintf("scale=%d:%d", outWidth, outHeight),
		"setsar=1",
	}
	hook := ""
	if req.Options.HookText {
		hook = req.HookText
	}
	script, ok := subtitles.RenderOverlayASS(subtitles.Overlay{
		Cues:     req.Cues,
		Start:    req.Start,
		End:      req.End,
		Captions: req.Options.Captions,
		Hook:     hook,
		Width:    outWidth,
		Height:   outHeight,
	})
	if ok {
		workDir := req.WorkDir
		if workDir == "" {
			workDir = filepath.Dir(req.OutPath)
		}
		assPath := filepath.Join(workDir, "overlay.ass")
		if err := os.WriteFile(assPath, []byte(script), 0o644); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
		defer os.Remove(assPath)
		filters = append(filters, "subtitles="+escapeFilterPath(assPath))
	}

	args := renderArgs(req, strings.Join(filters, ","))
	a.logf("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg render clip: %w", err)
	}

	progress("Rendering", 0)
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		if frac, ok := parseProgressLine(sc.Text(), clipLen); ok {
			progress("Rendering", frac)
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, tail(stderr.String(), 2000))
	}
	progress("Rendering", 1)
	return nil
}

// renderArgs builds the ffmpeg command line. A hook voice-over is mixed
// over the source audio from the first frame; the clip keeps its own length.
func renderArgs(req ports.RenderRequest, vf string) []string {
	args := []string{
		"-y",
		"-nostats",
		"-progress", "pipe:1",
		"-ss", fmtSeconds(req.Start),
		"-to", fmtSeconds(req.End),
		"-i", req.VideoPath,
	}
	if req.HookAudioPath == "" {
		args = append(args, "-vf", vf)
	} else {
		args = append(args,
			"-i", req.HookAudioPath,
			"-filter_complex", "[0:v]"+vf+"[v];[0:a][1:a]amix=inputs=2:duration=first:normalize=0[a]",
			"-map", "[v]",
			"-map", "[a]",
		)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		req.OutPath,
	)
}

// parseProgressLine reads out_time_us / out_time_ms (both microseconds in
// ffmpeg's output).
func parseProgressLine(line string, total time.Duration) (float64, bool) {
	k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || (k != "out_time_us" && k != "out_time_ms") {
		return 0, false
	}
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	frac := float64(time.Duration(us)*time.Microsecond) / float64(total)
	if frac > 1 {
		frac = 1
	}
	return frac, true
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
