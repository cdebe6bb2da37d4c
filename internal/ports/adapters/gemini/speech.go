package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
)

const (
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"

	// TTS models answer with headerless 16-bit mono PCM.
	defaultSampleRate = 24000
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Speaker voices hook texts with a Gemini TTS model.
type Speaker struct {
	model    string
	voice    string
	generate generateFunc
}

func NewSpeaker(ctx context.Context, apiKey, model, voice string) (*Speaker, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newSpeaker(model, voice, client.Models.GenerateContent), nil
}

func newSpeaker(model, voice string, generate generateFunc) *Speaker {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Speaker{model: model, voice: voice, generate: generate}
}

// Synthesize writes req.Text as a WAV file. The characters sent are billed
// once the model has answered.
func (s *Speaker) Synthesize(ctx context.Context, req ports.SynthesisRequest, usage ports.UsageFunc) error {
	if usage == nil {
		usage = func(runctl.Kind, float64) {}
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return errors.New("gemini: nothing to synthesize")
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}
	resp, err := s.generate(ctx, s.model, contents, cfg)
	if err != nil {
		return fmt.Errorf("gemini tts: %w", err)
	}
	usage(runctl.SynthesisChars, float64(utf8.RuneCountInString(text)))

	blob := audioBlob(resp)
	if blob == nil || len(blob.Data) == 0 {
		return errors.New("gemini tts: response has no audio")
	}
	return writeWAV(req.OutPath, blob.Data, sampleRate(blob.MIMEType))
}

func audioBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil {
				return p.InlineData
			}
		}
	}
	return nil
}

var rateRE = regexp.MustCompile(`(?i)rate=(\d+)`)

// sampleRate reads "audio/L16;codec=pcm;rate=24000".
func sampleRate(mime string) int {
	if m := rateRE.FindStringSubmatch(mime); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return defaultSampleRate
}

// writeWAV wraps 16-bit little-endian mono PCM in a RIFF header.
func writeWAV(path string, pcm []byte, rate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, channels, uint32(rate), uint32(rate * channels * bitsPerSample / 8), channels * bitsPerSample / 8, bitsPerSample})
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write hook audio: %w", err)
	}
	return nil
}
