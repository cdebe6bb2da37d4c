package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/clipper/internal/clips"
	"github.com/forPelevin/clipper/internal/domain/highlights"
	"github.com/forPelevin/clipper/internal/domain/subtitles"
	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/progress"
	"github.com/forPelevin/clipper/internal/session"
	"github.com/forPelevin/clipper/internal/types"
)

type ProductionDeps struct {
	Store    *session.Store
	Renderer ports.Renderer
	// Synthesizer voices hook lines; nil renders hooks as text only.
	Synthesizer ports.Synthesizer
	Logf        func(format string, args ...any)
}

const hookAudioFile = "hook.wav"

type Producer struct {
	d   ProductionDeps
	now func() time.Time
}

func NewProducer(d ProductionDeps) *Producer {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return &Producer{d: d, now: time.Now}
}

// Produce renders the selected highlights in the given order. Every finished
// clip is persisted before the next one starts, so a cancelled or failed run
// leaves an accurate ClipsProcessed count and intact clip directories.
func (u *Producer) Produce(
	ctx context.Context,
	run Run,
	sess *types.Session,
	selected []types.Highlight,
	opts types.EnhancementOptions,
	obs Observer,
) error {
	run = run.withDefaults()
	rep := newReporter(PhaseProduction, nil, run.Usage, obs)
	defer rep.close()

	err := u.produce(ctx, run, rep, sess, selected, opts)
	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled):
		rep.cancelled()
	default:
		u.d.Logf("production failed: %v", err)
		rep.failed(err)
	}
	return err
}

func (u *Producer) produce(
	ctx context.Context,
	run Run,
	rep *reporter,
	sess *types.Session,
	selected []types.Highlight,
	opts types.EnhancementOptions,
) error {
	if sess == nil {
		return errors.New("session is required")
	}
	if run.Token.Cancelled() {
		return ErrCancelled
	}
	if len(selected) == 0 {
		return errors.New("no highlights selected")
	}

	var cues []types.Cue
	if opts.Captions {
		var err error
		cues, err = subtitles.ReadSRTFile(sess.TranscriptPath)
		if err != nil {
			u.d.Logf("captions disabled: %v", err)
			opts.Captions = false
		}
	}

	next, err := clips.NextIndex(sess.SessionDir)
	if err != nil {
		return err
	}

	sess.Status = types.StatusProcessing
	if err := u.d.Store.Save(sess); err != nil {
		return err
	}

	total := len(selected)
	rendered := 0
	for i, h := range selected {
		if run.Token.Cancelled() {
			return u.stop(sess, rendered)
		}
		start, end, err := highlights.Bounds(h)
		if err != nil {
			return u.fail(sess, err)
		}

		dir := clips.Dir(sess.SessionDir, next+i, h.Title)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return u.fail(sess, fmt.Errorf("create clip dir: %w", err))
		}

		title := h.Title
		report := func(status string, frac float64) {
			rep.progress(progress.FormatClipStatus(i+1, total, clipLabel(title, status), frac), frac)
		}
		report("", 0)

		hookAudio, err := u.voiceHook(ctx, run, rep, dir, h.HookText, opts, report)
		if err != nil {
			_ = os.RemoveAll(dir)
			return u.stop(sess, rendered)
		}
		err = u.d.Renderer.RenderClip(ctx, ports.RenderRequest{
			VideoPath:     sess.VideoPath,
			Start:         start,
			End:           end,
			Cues:          cues,
			HookText:      h.HookText,
			Options:       opts,
			HookAudioPath: hookAudio,
			OutPath:       filepath.Join(dir, clips.VideoFile),
			WorkDir:       dir,
		}, func(status string, frac float64) {
			report(status, frac)
		})
		if hookAudio != "" {
			_ = os.Remove(hookAudio)
		}
		// a render that finished despite a cancel request is kept; the loop
		// stops at the next checkpoint
		if err != nil {
			_ = os.RemoveAll(dir)
			err = classify(run.Token, "render clip", err)
			if errors.Is(err, ErrCancelled) {
				return u.stop(sess, rendered)
			}
			return u.fail(sess, err)
		}

		if err := clips.WriteMeta(dir, types.ClipMeta{
			Title:           h.Title,
			HookText:        h.HookText,
			DurationSeconds: (end - start).Seconds(),
			StartTime:       h.StartTime,
			EndTime:         h.EndTime,
			ViralityScore:   h.ViralityScore,
			CreatedAt:       u.now().UTC(),
		}); err != nil {
			_ = os.RemoveAll(dir)
			return u.fail(sess, err)
		}

		rendered++
		sess.ClipsProcessed++
		if err := u.d.Store.Save(sess); err != nil {
			return err
		}
		u.d.Logf("session %s: clip %d/%d done: %s", sess.ID, i+1, total, dir)
	}

	sess.Status = types.StatusCompleted
	if err := u.d.Store.Save(sess); err != nil {
		return err
	}
	rep.progress(fmt.Sprintf("Complete: %d clips", total), 1)
	return nil
}

// voiceHook speaks the hook line into dir and returns the audio path, or ""
// when there is nothing to voice. A failed synthesis costs only the
// voice-over; the returned error is always ErrCancelled.
func (u *Producer) voiceHook(
	ctx context.Context,
	run Run,
	rep *reporter,
	dir, hookText string,
	opts types.EnhancementOptions,
	report ports.ProgressFunc,
) (string, error) {
	if u.d.Synthesizer == nil || !opts.HookText || strings.TrimSpace(hookText) == "" {
		return "", nil
	}
	report("Voicing hook", 0)
	path := filepath.Join(dir, hookAudioFile)
	err := u.d.Synthesizer.Synthesize(ctx, ports.SynthesisRequest{Text: hookText, OutPath: path}, rep.record)
	if err == nil {
		return path, nil
	}
	_ = os.Remove(path)
	if err = classify(run.Token, "synthesize hook", err); errors.Is(err, ErrCancelled) {
		return "", err
	}
	u.d.Logf("hook voice-over skipped: %v", err)
	return "", nil
}

// clipLabel appends the renderer's own status to the clip title.
func clipLabel(title, status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return title
	}
	return title + " - " + status
}

// stop persists the session after a cancellation. Nothing rendered in this
// call means the session is back to its post-discovery state.
func (u *Producer) stop(sess *types.Session, rendered int) error {
	if rendered == 0 {
		sess.Status = types.StatusHighlightsFound
	} else {
		sess.Status = types.StatusProcessing
	}
	if err := u.d.Store.Save(sess); err != nil {
		return errors.Join(ErrCancelled, err)
	}
	return ErrCancelled
}

func (u *Producer) fail(sess *types.Session, err error) error {
	sess.Status = types.StatusFailed
	if serr := u.d.Store.Save(sess); serr != nil {
		return errors.Join(err, serr)
	}
	return err
}
