package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/clipper/internal/domain/subtitles"
	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/progress"
	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/session"
	"github.com/forPelevin/clipper/internal/types"
)

// NoSubtitles as subtitle language opts into AI transcription up front.
const NoSubtitles = "none"

type DiscoveryDeps struct {
	Store       *session.Store
	Acquirer    ports.Acquirer
	Media       ports.MediaTool
	Transcriber ports.Transcriber
	Analyzer    ports.Analyzer
	Keywords    progress.Keywords
	Logf        func(format string, args ...any)
}

type Discoverer struct{ d DiscoveryDeps }

func NewDiscoverer(d DiscoveryDeps) *Discoverer {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return &Discoverer{d: d}
}

type DiscoverRequest struct {
	URL              string
	ClipCount        int
	SubtitleLanguage string
}

// TranscriptionRequest resumes discovery on an already downloaded video.
type TranscriptionRequest struct {
	VideoPath  string
	VideoInfo  types.VideoInfo
	ClipCount  int
	SessionDir string
}

// Discover downloads the source and its transcript, then asks the analyzer
// for highlights. When the source has no subtitles in the requested language
// it returns *ports.TranscriptNotFoundError unless the language is
// NoSubtitles, in which case it transcribes the audio itself.
func (u *Discoverer) Discover(ctx context.Context, run Run, req DiscoverRequest, obs Observer) (*types.Session, error) {
	run = run.withDefaults()
	mode := progress.TwoStep
	if req.SubtitleLanguage == NoSubtitles {
		mode = progress.ThreeStep
	}
	rep := newReporter(PhaseDiscovery, progress.NewTracker(mode, u.d.Keywords), run.Usage, obs)
	defer rep.close()

	sess, err := u.discover(ctx, run, rep, req)
	return sess, u.finish(rep, err)
}

func (u *Discoverer) discover(ctx context.Context, run Run, rep *reporter, req DiscoverRequest) (*types.Session, error) {
	if req.ClipCount <= 0 {
		return nil, fmt.Errorf("clip count must be positive, got %d", req.ClipCount)
	}
	if run.Token.Cancelled() {
		return nil, ErrCancelled
	}

	sess, err := u.d.Store.Create(types.VideoInfo{SourceURL: req.URL})
	if err != nil {
		return nil, err
	}
	u.d.Logf("session %s: acquiring %s (subtitles: %s)", sess.ID, req.URL, req.SubtitleLanguage)

	rep.progress("Downloading video", progress.Unknown)
	acq, err := u.d.Acquirer.Acquire(ctx, ports.AcquireRequest{
		URL:      req.URL,
		Language: req.SubtitleLanguage,
		Dir:      sess.SessionDir,
	}, rep.progress)

	var tnf *ports.TranscriptNotFoundError
	if errors.As(err, &tnf) && !run.Token.Cancelled() {
		if tnf.SessionDir == "" {
			tnf.SessionDir = sess.SessionDir
		}
		if req.SubtitleLanguage != NoSubtitles {
			return nil, tnf
		}
		u.d.Logf("session %s: no subtitles, transcribing", sess.ID)
		sess.VideoPath = tnf.VideoPath
		sess.VideoInfo = mergeInfo(tnf.Info, req.URL)
		if err := u.transcribe(ctx, run, rep, sess); err != nil {
			return nil, err
		}
		return u.analyze(ctx, run, rep, sess, req.ClipCount)
	}
	if err := classify(run.Token, "acquire", err); err != nil {
		return nil, err
	}

	sess.VideoPath = acq.VideoPath
	sess.VideoInfo = mergeInfo(acq.Info, req.URL)
	sess.TranscriptPath = acq.TranscriptPath
	if req.SubtitleLanguage != "" && req.SubtitleLanguage != NoSubtitles {
		sess.TranscriptLanguage = req.SubtitleLanguage
	}
	return u.analyze(ctx, run, rep, sess, req.ClipCount)
}

// DiscoverWithTranscription continues after a *ports.TranscriptNotFoundError
// without downloading the video again.
func (u *Discoverer) DiscoverWithTranscription(ctx context.Context, run Run, req TranscriptionRequest, obs Observer) (*types.Session, error) {
	run = run.withDefaults()
	rep := newReporter(PhaseDiscovery, progress.NewTracker(progress.ThreeStep, u.d.Keywords), run.Usage, obs)
	defer rep.close()

	sess, err := u.continueWithTranscription(ctx, run, rep, req)
	return sess, u.finish(rep, err)
}

func (u *Discoverer) continueWithTranscription(ctx context.Context, run Run, rep *reporter, req TranscriptionRequest) (*types.Session, error) {
	if req.ClipCount <= 0 {
		return nil, fmt.Errorf("clip count must be positive, got %d", req.ClipCount)
	}
	if req.SessionDir == "" {
		return nil, errors.New("session dir is required")
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("source video: %w", err)
	}
	if run.Token.Cancelled() {
		return nil, ErrCancelled
	}

	// the download already happened in the interrupted run
	rep.progress("Download complete", 1)

	sess := &types.Session{
		ID:         filepath.Base(req.SessionDir),
		VideoInfo:  req.VideoInfo,
		VideoPath:  req.VideoPath,
		SessionDir: req.SessionDir,
		Status:     types.StatusDiscovering,
	}
	if err := u.transcribe(ctx, run, rep, sess); err != nil {
		return nil, err
	}
	return u.analyze(ctx, run, rep, sess, req.ClipCount)
}

func (u *Discoverer) transcribe(ctx context.Context, run Run, rep *reporter, sess *types.Session) error {
	wav := filepath.Join(sess.SessionDir, "audio.wav")
	rep.progress("Transcribing: extracting audio", 0)
	if err := u.d.Media.ExtractAudioMono16k(ctx, sess.VideoPath, wav); err != nil {
		return classify(run.Token, "extract audio", err)
	}
	defer os.Remove(wav)

	dur, err := u.d.Media.ProbeDuration(ctx, wav)
	if err != nil {
		return classify(run.Token, "probe audio", err)
	}
	if run.Token.Cancelled() {
		return ErrCancelled
	}

	rep.progress("Transcribing audio", 0.1)
	srt, err := u.d.Transcriber.Transcribe(ctx, wav, filepath.Join(sess.SessionDir, "transcript"))
	if err := classify(run.Token, "transcribe", err); err != nil {
		return err
	}
	rep.record(runctl.TranscriptionSeconds, dur.Seconds())
	rep.progress("Transcribing audio", 1)

	sess.TranscriptPath = srt
	if sess.VideoInfo.DurationSeconds <= 0 {
		sess.VideoInfo.DurationSeconds = dur.Seconds()
	}
	return nil
}

func (u *Discoverer) analyze(ctx context.Context, run Run, rep *reporter, sess *types.Session, count int) (*types.Session, error) {
	cues, err := subtitles.ReadSRTFile(sess.TranscriptPath)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("transcript %s has no cues", sess.TranscriptPath)
	}
	if sess.TranscriptLanguage == "" {
		if tag := subtitles.DetectLanguage(cues); tag.String() != "und" {
			sess.TranscriptLanguage = tag.String()
		}
	}
	if run.Token.Cancelled() {
		return nil, ErrCancelled
	}

	rep.progress("Finding highlights", progress.Unknown)
	hs, err := u.d.Analyzer.FindHighlights(ctx, ports.AnalysisRequest{
		Cues:  cues,
		Info:  sess.VideoInfo,
		Count: count,
	}, rep.progress, rep.record)
	if err := classify(run.Token, "find highlights", err); err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, ErrNoHighlights
	}

	sess.Highlights = hs
	sess.Status = types.StatusHighlightsFound
	if err := u.d.Store.Save(sess); err != nil {
		return nil, err
	}
	u.d.Logf("session %s: %d highlights", sess.ID, len(hs))
	rep.progress("Complete", 1)
	return sess, nil
}

func (u *Discoverer) finish(rep *reporter, err error) error {
	var tnf *ports.TranscriptNotFoundError
	switch {
	case err == nil, errors.As(err, &tnf):
	case errors.Is(err, ErrCancelled):
		rep.cancelled()
	default:
		u.d.Logf("discovery failed: %v", err)
		rep.failed(err)
	}
	return err
}

func mergeInfo(info types.VideoInfo, url string) types.VideoInfo {
	if info.SourceURL == "" {
		info.SourceURL = url
	}
	return info
}
