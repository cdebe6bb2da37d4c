// Package espeak voices hook texts offline with espeak-ng.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
)

type Adapter struct {
	bin   string
	voice string
}

// New returns an espeak-ng adapter. An empty voice uses espeak's default.
func New(binPath, voice string) *Adapter {
	if binPath == "" {
		binPath = "espeak-ng"
	}
	return &Adapter{bin: binPath, voice: voice}
}

func (a *Adapter) args(outPath string) []string {
	args := []string{"-w", outPath}
	if a.voice != "" {
		args = append(args, "-v", a.voice)
	}
	// text goes through stdin so a leading '-' is never read as a flag
	return append(args, "--stdin")
}

func (a *Adapter) Synthesize(ctx context.Context, req ports.SynthesisRequest, usage ports.UsageFunc) error {
	if usage == nil {
		usage = func(runctl.Kind, float64) {}
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return errors.New("espeak-ng: nothing to synthesize")
	}

	cmd := exec.CommandContext(ctx, a.bin, a.args(req.OutPath)...)
	cmd.Stdin = strings.NewReader(text)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak-ng failed: %w\n%s", err, string(b))
	}
	st, err := os.Stat(req.OutPath)
	if err != nil {
		return fmt.Errorf("espeak-ng output: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("espeak-ng produced empty audio: %s", req.OutPath)
	}
	usage(runctl.SynthesisChars, float64(utf8.RuneCountInString(text)))
	return nil
}
