// Package ytdlp acquires source videos and their subtitles with the yt-dlp
// command line tool.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/types"
)

// NoSubtitles is the language value that skips subtitle lookup.
const NoSubtitles = "none"

const (
	sourceName   = "source"
	videoFormat  = "bv*[height<=1080][ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b"
	mergedFormat = "mp4"
)

type Adapter struct {
	bin     string
	cookies string
	logf    func(format string, args ...any)
}

func New(binPath, cookiesPath string, logf func(format string, args ...any)) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Adapter{bin: binPath, cookies: cookiesPath, logf: logf}
}

type SubtitleTrack struct {
	Lang string
	Name string
	Auto bool
}

type videoJSON struct {
	ID                string                      `json:"id"`
	Title             string                      `json:"title"`
	Duration          float64                     `json:"duration"`
	WebpageURL        string                      `json:"webpage_url"`
	Subtitles         map[string][]subtitleFormat `json:"subtitles"`
	AutomaticCaptions map[string][]subtitleFormat `json:"automatic_captions"`
}

type subtitleFormat struct {
	Ext  string `json:"ext"`
	Name string `json:"name"`
}

func (a *Adapter) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings"}
	if a.cookies != "" {
		if _, err := os.Stat(a.cookies); err == nil {
			args = append(args, "--cookies", a.cookies)
		}
	}
	return args
}

func (a *Adapter) probe(ctx context.Context, url string) (videoJSON, error) {
	args := append(a.baseArgs(), "--dump-single-json", "--skip-download", url)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return videoJSON{}, fmt.Errorf("yt-dlp info: %w\n%s", err, stderr.String())
	}
	return parseInfo(out)
}

func parseInfo(b []byte) (videoJSON, error) {
	var v videoJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return videoJSON{}, fmt.Errorf("yt-dlp info: decode: %w", err)
	}
	if v.ID == "" {
		return videoJSON{}, fmt.Errorf("yt-dlp info: missing video id")
	}
	return v, nil
}

func (v videoJSON) info(url string) types.VideoInfo {
	src := v.WebpageURL
	if src == "" {
		src = url
	}
	return types.VideoInfo{Title: v.Title, SourceID: v.ID, SourceURL: src, DurationSeconds: v.Duration}
}

// tracks lists manual subtitles first, then automatic captions, each sorted
// by language code.
func (v videoJSON) tracks() []SubtitleTrack {
	var out []SubtitleTrack
	add := func(m map[string][]subtitleFormat, auto bool) {
		langs := make([]string, 0, len(m))
		for l := range m {
			if l == "live_chat" {
				continue
			}
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			name := l
			if fs := m[l]; len(fs) > 0 && fs[0].Name != "" {
				name = fs[0].Name
			}
			out = append(out, SubtitleTrack{Lang: l, Name: name, Auto: auto})
		}
	}
	add(v.Subtitles, false)
	add(v.AutomaticCaptions, true)
	return out
}

func (v videoJSON) hasSubtitles(lang string) bool {
	for _, t := range v.tracks() {
		if matchesLang(t.Lang, lang) {
			return true
		}
	}
	return false
}

// matchesLang treats regional and translated variants ("en-US",
// "en-orig") as the base language.
func matchesLang(track, want string) bool {
	track = strings.ToLower(track)
	want = strings.ToLower(want)
	return track == want || strings.HasPrefix(track, want+"-")
}

// ListSubtitles returns the subtitle tracks available for url.
func (a *Adapter) ListSubtitles(ctx context.Context, url string) ([]SubtitleTrack, error) {
	v, err := a.probe(ctx, url)
	if err != nil {
		return nil, err
	}
	return v.tracks(), nil
}

func (a *Adapter) Acquire(ctx context.Context, req ports.AcquireRequest, progress ports.ProgressFunc) (ports.Acquired, error) {
	if progress == nil {
		progress = func(string, float64) {}
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return ports.Acquired{}, err
	}

	progress("Downloading video info", 0)
	v, err := a.probe(ctx, req.URL)
	if err != nil {
		return ports.Acquired{}, err
	}
	info := v.info(req.URL)
	a.logf("source %s: %q (%.0fs)", info.SourceID, info.Title, info.DurationSeconds)

	videoPath, err := a.download(ctx, req, progress)
	if err != nil {
		return ports.Acquired{}, err
	}
	res := ports.Acquired{VideoPath: videoPath, Info: info}

	lang := strings.TrimSpace(req.Language)
	notFound := &ports.TranscriptNotFoundError{VideoPath: videoPath, Info: info, SessionDir: req.Dir, Language: lang}
	if lang == "" || strings.EqualFold(lang, NoSubtitles) || !v.hasSubtitles(lang) {
		return res, notFound
	}

	progress("Downloading subtitles", -1)
	srt, err := a.fetchSubtitles(ctx, req)
	if err != nil {
		return ports.Acquired{}, err
	}
	if srt == "" {
		return res, notFound
	}
	res.TranscriptPath = srt
	return res, nil
}

func (a *Adapter) download(ctx context.Context, req ports.AcquireRequest, progress ports.ProgressFunc) (string, error) {
	args := append(a.baseArgs(),
		"--newline",
		"-f", videoFormat,
		"--merge-output-format", mergedFormat,
		"-o", filepath.Join(req.Dir, sourceName+".%(ext)s"),
		req.URL,
	)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}
	relayDownloadProgress(stdout, progress)
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, stderr.String())
	}

	p := filepath.Join(req.Dir, sourceName+"."+mergedFormat)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("yt-dlp download: expected output %s: %w", p, err)
	}
	return p, nil
}

var downloadRE = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

func relayDownloadProgress(r io.Reader, progress ports.ProgressFunc) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := downloadRE.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		progress(fmt.Sprintf("Downloading video (%s%%)", m[1]), pct/100)
	}
}

func (a *Adapter) fetchSubtitles(ctx context.Context, req ports.AcquireRequest) (string, error) {
	args := append(a.baseArgs(),
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", req.Language+".*,"+req.Language,
		"--sub-format", "srt/vtt/best",
		"--convert-subs", "srt",
		"-o", filepath.Join(req.Dir, sourceName+".%(ext)s"),
		req.URL,
	)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp subtitles: %w\n%s", err, string(b))
	}
	return findSubtitleFile(req.Dir, req.Language)
}

// findSubtitleFile picks source.<lang>.srt, falling back to any regional
// variant of lang.
func findSubtitleFile(dir, lang string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, sourceName+".*.srt"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	var fallback string
	for _, m := range matches {
		l := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), sourceName+"."), ".srt")
		if strings.EqualFold(l, lang) {
			return m, nil
		}
		if fallback == "" && matchesLang(l, lang) {
			fallback = m
		}
	}
	return fallback, nil
}
