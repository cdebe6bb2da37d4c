package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/session"
	"github.com/forPelevin/clipper/internal/types"
)

const testSRT = `1
00:00:00,000 --> 00:00:10,000
Nobody tells you this about starting a company.

2
00:00:10,000 --> 00:00:25,000
The secret is that most of the work is boring and that is fine.

3
00:00:25,000 --> 00:00:50,000
Here is why the boring part is where the money is.
`

type fakeAcquirer struct {
	noSubs bool
	err    error
	calls  int
}

func (f *fakeAcquirer) Acquire(_ context.Context, req ports.AcquireRequest, progress ports.ProgressFunc) (ports.Acquired, error) {
	f.calls++
	if f.err != nil {
		return ports.Acquired{}, f.err
	}
	progress("Downloading video (50%)", -1)
	video := filepath.Join(req.Dir, "source.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0o644); err != nil {
		return ports.Acquired{}, err
	}
	info := types.VideoInfo{Title: "Startup talk", SourceID: "abc", DurationSeconds: 50}
	if f.noSubs || req.Language == NoSubtitles {
		return ports.Acquired{}, &ports.TranscriptNotFoundError{VideoPath: video, Info: info, Language: req.Language}
	}
	srt := filepath.Join(req.Dir, "source."+req.Language+".srt")
	if err := os.WriteFile(srt, []byte(testSRT), 0o644); err != nil {
		return ports.Acquired{}, err
	}
	return ports.Acquired{VideoPath: video, TranscriptPath: srt, Info: info}, nil
}

type fakeMedia struct{}

func (fakeMedia) ExtractAudioMono16k(_ context.Context, _, outWav string) error {
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (fakeMedia) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 50 * time.Second, nil
}

type fakeTranscriber struct {
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _, outPrefix string) (string, error) {
	f.calls++
	p := outPrefix + ".srt"
	return p, os.WriteFile(p, []byte(testSRT), 0o644)
}

type fakeAnalyzer struct {
	highlights []types.Highlight
	err        error
	during     func()
}

func (f *fakeAnalyzer) FindHighlights(_ context.Context, req ports.AnalysisRequest, progress ports.ProgressFunc, usage ports.UsageFunc) ([]types.Highlight, error) {
	progress("Finding highlights (50%)", -1)
	usage(runctl.LLMInput, 120)
	usage(runctl.LLMOutput, 30)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.highlights) > req.Count {
		return f.highlights[:req.Count], nil
	}
	return f.highlights, nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	requests []ports.RenderRequest
	failOn   int
	after    func(n int)
}

func (f *fakeRenderer) RenderClip(_ context.Context, req ports.RenderRequest, progress ports.ProgressFunc) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()

	if n == f.failOn {
		return errors.New("ffmpeg exited with status 1")
	}
	progress("Rendering", 0.5)
	if err := os.WriteFile(req.OutPath, []byte("clip"), 0o644); err != nil {
		return err
	}
	progress("Rendering", 1)
	if f.after != nil {
		f.after(n)
	}
	return nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) statuses() []string {
	var out []string
	for _, e := range r.all() {
		out = append(out, e.Status)
	}
	return out
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	texts []string
	err   error
	// during runs before the answer, e.g. to cancel the run
	during func()
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req ports.SynthesisRequest, usage ports.UsageFunc) error {
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()

	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return f.err
	}
	if err := os.WriteFile(req.OutPath, []byte("RIFF"), 0o644); err != nil {
		return err
	}
	usage(runctl.SynthesisChars, float64(len([]rune(req.Text))))
	return nil
}

func testHighlights() []types.Highlight {
	return []types.Highlight{
		{Title: "Boring work", StartTime: "00:00:10,000", EndTime: "00:00:25,000", DurationSeconds: 15, ViralityScore: 8, HookText: "Nobody says this"},
		{Title: "Money", StartTime: "00:00:25,000", EndTime: "00:00:50,000", DurationSeconds: 25, ViralityScore: 7},
		{Title: "Intro", StartTime: "00:00:00,000", EndTime: "00:00:10,000", DurationSeconds: 10, ViralityScore: 5},
	}
}

type discoverFixture struct {
	store       *session.Store
	acquirer    *fakeAcquirer
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	uc          *Discoverer
}

func newDiscoverFixture(root string) *discoverFixture {
	f := &discoverFixture{
		store:       session.NewStore(root),
		acquirer:    &fakeAcquirer{},
		transcriber: &fakeTranscriber{},
		analyzer:    &fakeAnalyzer{highlights: testHighlights()},
	}
	f.uc = NewDiscoverer(DiscoveryDeps{
		Store:       f.store,
		Acquirer:    f.acquirer,
		Media:       fakeMedia{},
		Transcriber: f.transcriber,
		Analyzer:    f.analyzer,
	})
	return f
}

// discoveredSession builds a saved session ready for production.
func discoveredSession(store *session.Store) (*types.Session, error) {
	sess, err := store.Create(types.VideoInfo{Title: "Startup talk"})
	if err != nil {
		return nil, err
	}
	sess.VideoPath = filepath.Join(sess.SessionDir, "source.mp4")
	sess.TranscriptPath = filepath.Join(sess.SessionDir, "source.en.srt")
	if err := os.WriteFile(sess.VideoPath, []byte("mp4"), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(sess.TranscriptPath, []byte(testSRT), 0o644); err != nil {
		return nil, err
	}
	sess.Highlights = testHighlights()
	sess.Status = types.StatusHighlightsFound
	return sess, store.Save(sess)
}
