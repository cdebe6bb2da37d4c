package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/ports/adapters/espeak"
	"github.com/forPelevin/clipper/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipper/internal/ports/adapters/gemini"
	"github.com/forPelevin/clipper/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipper/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/clipper/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/clipper/internal/progress"
	"github.com/forPelevin/clipper/internal/session"
	"github.com/forPelevin/clipper/internal/types"
	"github.com/forPelevin/clipper/internal/usecase"
)

var (
	ErrBusy          = errors.New("a run of this phase is already active")
	ErrSourceMissing = errors.New("source video is missing")
)

type Deps struct {
	Store       *session.Store
	Acquirer    ports.Acquirer
	Media       ports.MediaTool
	Transcriber ports.Transcriber
	Analyzer    ports.Analyzer
	Renderer    ports.Renderer
	Synthesizer ports.Synthesizer
	Keywords    progress.Keywords
	Logf        func(format string, args ...any)
}

// Orchestrator owns the cancellation token and usage totals of the current
// run and runs each phase on a background worker. At most one discovery and
// one production can be active at a time.
type Orchestrator struct {
	store *session.Store
	disc  *usecase.Discoverer
	prod  *usecase.Producer
	logf  func(format string, args ...any)

	mu     sync.Mutex
	run    usecase.Run
	active map[usecase.Phase]bool
	g      errgroup.Group
}

// New wires the external tools and the configured analysis provider.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	var analyzer ports.Analyzer
	switch cfg.Provider {
	case ProviderGemini:
		a, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		analyzer = a
	default:
		analyzer = openrouter.New(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.BaseURL)
	}
	logf("analysis provider: %s", cfg.Provider)

	var synth ports.Synthesizer
	switch cfg.Voice.Provider {
	case VoiceGemini:
		s, err := gemini.NewSpeaker(ctx, cfg.Gemini.APIKey, cfg.Voice.Model, cfg.Voice.Name)
		if err != nil {
			return nil, err
		}
		synth = s
	case VoiceEspeak:
		synth = espeak.New(cfg.Voice.EspeakBin, cfg.Voice.Name)
	}
	logf("hook voice: %s", cfg.Voice.Provider)

	media := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, logf)
	return NewWithDeps(Deps{
		Store:       session.NewStore(cfg.OutputDir),
		Acquirer:    ytdlp.New(cfg.Tools.YtDlp, cfg.Tools.Cookies, logf),
		Media:       media,
		Transcriber: whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, ""),
		Analyzer:    analyzer,
		Renderer:    media,
		Synthesizer: synth,
		Keywords:    cfg.Progress,
		Logf:        logf,
	}), nil
}

func NewWithDeps(d Deps) *Orchestrator {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return &Orchestrator{
		store: d.Store,
		disc: usecase.NewDiscoverer(usecase.DiscoveryDeps{
			Store:       d.Store,
			Acquirer:    d.Acquirer,
			Media:       d.Media,
			Transcriber: d.Transcriber,
			Analyzer:    d.Analyzer,
			Keywords:    d.Keywords,
			Logf:        d.Logf,
		}),
		prod: usecase.NewProducer(usecase.ProductionDeps{
			Store:       d.Store,
			Renderer:    d.Renderer,
			Synthesizer: d.Synthesizer,
			Logf:        d.Logf,
		}),
		logf:   d.Logf,
		run:    usecase.NewRun(),
		active: map[usecase.Phase]bool{},
	}
}

func (o *Orchestrator) Sessions() *session.Store { return o.store }

// NewRun starts a fresh run: a new token and zeroed usage totals. It fails
// with ErrBusy while a phase is still running on the current run.
func (o *Orchestrator) NewRun() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.active) > 0 {
		return ErrBusy
	}
	o.run = usecase.NewRun()
	return nil
}

// Cancel requests cancellation of the current run and of every phase running
// on it. It never blocks. Later Continue/Production calls on the same run
// fail with usecase.ErrCancelled until a new run starts.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	tok := o.run.Token
	o.mu.Unlock()
	tok.Cancel()
}

func (o *Orchestrator) Usage() types.UsageMetrics {
	o.mu.Lock()
	u := o.run.Usage
	o.mu.Unlock()
	return u.Snapshot()
}

// StartDiscovery discovers highlights in the background. It begins a new run
// when no phase is active; otherwise it joins the current one so that Cancel
// reaches both.
func (o *Orchestrator) StartDiscovery(ctx context.Context, req usecase.DiscoverRequest, obs usecase.Observer) (*Job[*types.Session], error) {
	return start(o, usecase.PhaseDiscovery, true, func(run usecase.Run) (*types.Session, error) {
		return o.disc.Discover(ctx, run, req, obs)
	})
}

// ContinueWithTranscription resumes a discovery that stopped with
// *ports.TranscriptNotFoundError. Usage keeps accumulating in the same run.
func (o *Orchestrator) ContinueWithTranscription(ctx context.Context, req usecase.TranscriptionRequest, obs usecase.Observer) (*Job[*types.Session], error) {
	return start(o, usecase.PhaseDiscovery, false, func(run usecase.Run) (*types.Session, error) {
		return o.disc.DiscoverWithTranscription(ctx, run, req, obs)
	})
}

// StartProduction renders the selected highlights of sess in the background.
func (o *Orchestrator) StartProduction(
	ctx context.Context,
	sess *types.Session,
	selected []types.Highlight,
	opts types.EnhancementOptions,
	obs usecase.Observer,
) (*Job[struct{}], error) {
	return start(o, usecase.PhaseProduction, false, func(run usecase.Run) (struct{}, error) {
		return struct{}{}, o.prod.Produce(ctx, run, sess, selected, opts, obs)
	})
}

// Resume loads a discovered session so production can start without running
// discovery again.
func (o *Orchestrator) Resume(id string) (*types.Session, error) {
	sess, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(sess.VideoPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, sess.VideoPath)
	}
	if len(sess.Highlights) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, usecase.ErrNoHighlights)
	}
	o.logf("resumed session %s (%s, %d highlights)", sess.ID, sess.Status, len(sess.Highlights))
	return sess, nil
}

// Close waits for background workers to finish.
func (o *Orchestrator) Close() error {
	return o.g.Wait()
}

func start[T any](o *Orchestrator, phase usecase.Phase, fresh bool, fn func(usecase.Run) (T, error)) (*Job[T], error) {
	o.mu.Lock()
	if o.active[phase] {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	idle := len(o.active) == 0
	switch {
	case fresh && idle:
		o.run = usecase.NewRun()
	case o.run.Token.Cancelled():
		o.mu.Unlock()
		return nil, usecase.ErrCancelled
	}
	o.active[phase] = true
	run := o.run
	o.mu.Unlock()

	j := &Job[T]{done: make(chan struct{})}
	o.g.Go(func() error {
		defer close(j.done)
		defer o.release(phase)
		j.val, j.err = fn(run)
		return nil
	})
	return j, nil
}

func (o *Orchestrator) release(phase usecase.Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, phase)
}

// ensure adapters implement ports
var (
	_ ports.Acquirer    = (*ytdlp.Adapter)(nil)
	_ ports.MediaTool   = (*ffmpeg.Adapter)(nil)
	_ ports.Renderer    = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber = (*whispercpp.Adapter)(nil)
	_ ports.Analyzer    = (*openrouter.Adapter)(nil)
	_ ports.Analyzer    = (*gemini.Adapter)(nil)
)
