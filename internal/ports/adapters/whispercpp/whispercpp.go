package whispercpp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

type Adapter struct {
	bin      string
	model    string
	language string
}

// New returns a whisper.cpp adapter. An empty language lets whisper detect
// it.
func New(binPath, modelPath, language string) *Adapter {
	if language == "" {
		language = "auto"
	}
	return &Adapter{bin: binPath, model: modelPath, language: language}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, outPrefix string) (string, error) {
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-osrt",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	srt := outPrefix + ".srt"
	st, err := os.Stat(srt)
	if err != nil {
		return "", fmt.Errorf("whisper.cpp output: %w", err)
	}
	if st.Size() == 0 {
		return "", fmt.Errorf("whisper.cpp produced an empty transcript: %s", srt)
	}
	return srt, nil
}
