package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/clipper/internal/ports/adapters/gemini"
	"github.com/forPelevin/clipper/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipper/internal/progress"
	"github.com/forPelevin/clipper/internal/usecase"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	VoiceNone   = "none"
	VoiceGemini = "gemini"
	VoiceEspeak = "espeak"

	DefaultConfigFile = "clipper.yaml"
)

type Config struct {
	OutputDir        string            `yaml:"output_dir"`
	ClipCount        int               `yaml:"clip_count"`
	SubtitleLanguage string            `yaml:"subtitle_language"`
	Provider         string            `yaml:"provider"`
	Tools            ToolsConfig       `yaml:"tools"`
	OpenRouter       OpenRouterConfig  `yaml:"openrouter"`
	Gemini           GeminiConfig      `yaml:"gemini"`
	Voice            VoiceConfig       `yaml:"voice"`
	Progress         progress.Keywords `yaml:"progress"`

	Logf func(format string, args ...any) `yaml:"-"`
}

type ToolsConfig struct {
	YtDlp        string `yaml:"yt_dlp"`
	Cookies      string `yaml:"cookies"`
	FFmpeg       string `yaml:"ffmpeg"`
	FFprobe      string `yaml:"ffprobe"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

type OpenRouterConfig struct {
	APIKey       string   `yaml:"api_key"`
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// VoiceConfig selects who speaks hook lines when hook text is enabled.
// Gemini reuses the gemini api key.
type VoiceConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Name      string `yaml:"name"`
	EspeakBin string `yaml:"espeak_bin"`
}

// LoadConfig reads the configuration and validates it.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ReadConfig reads .env (best-effort), then the YAML file at path, or
// $CLIPPER_CONFIG, or clipper.yaml. A missing default file is not an error.
// Empty fields fall back to the environment and then to defaults. The
// result is not validated.
func ReadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CLIPPER_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.OutputDir, "CLIPPER_OUTPUT_DIR")
	setFromEnv(&c.Provider, "CLIPPER_PROVIDER")
	setFromEnv(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	setFromEnv(&c.OpenRouter.Model, "OPENROUTER_MODEL")
	setFromEnv(&c.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")
	setFromEnv(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Gemini.Model, "GEMINI_MODEL")
	setFromEnv(&c.Tools.WhisperModel, "WHISPER_MODEL")
	setFromEnv(&c.Voice.Provider, "CLIPPER_VOICE")
	if len(c.OpenRouter.AllowedHosts) == 0 {
		c.OpenRouter.AllowedHosts = openrouter.ParseAllowedHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS"))
	}
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "sessions"
	}
	if c.ClipCount == 0 {
		c.ClipCount = 5
	}
	if c.SubtitleLanguage == "" {
		c.SubtitleLanguage = "en"
	}
	if c.Provider == "" {
		c.Provider = ProviderOpenRouter
		if c.OpenRouter.APIKey == "" && c.Gemini.APIKey != "" {
			c.Provider = ProviderGemini
		}
	}
	defaultString(&c.Tools.YtDlp, "yt-dlp")
	defaultString(&c.Tools.FFmpeg, "ffmpeg")
	defaultString(&c.Tools.FFprobe, "ffprobe")
	defaultString(&c.Tools.WhisperBin, ".cache/bin/whisper.cpp")
	defaultString(&c.Tools.WhisperModel, ".cache/models/ggml-base.bin")
	defaultString(&c.OpenRouter.Model, openrouter.DefaultModel)
	defaultString(&c.OpenRouter.BaseURL, openrouter.DefaultBaseURL)
	defaultString(&c.Gemini.Model, gemini.DefaultModel)
	defaultString(&c.Voice.Provider, VoiceNone)
	switch c.Voice.Provider {
	case VoiceGemini:
		defaultString(&c.Voice.Model, gemini.DefaultSpeechModel)
		defaultString(&c.Voice.Name, gemini.DefaultVoice)
	case VoiceEspeak:
		defaultString(&c.Voice.EspeakBin, "espeak-ng")
	}
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output dir is required")
	}
	if c.ClipCount <= 0 {
		return fmt.Errorf("clip count must be > 0")
	}
	if err := ValidateSubtitleLanguage(c.SubtitleLanguage); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return errors.New("OpenRouter API key is required (set OPENROUTER_API_KEY or openrouter.api_key)")
		}
		return openrouter.ValidateBaseURL(c.OpenRouter.BaseURL, c.OpenRouter.AllowedHosts)
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
		}
		return nil
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenRouter, ProviderGemini)
	}
}

func (c Config) validateVoice() error {
	switch c.Voice.Provider {
	case "", VoiceNone, VoiceEspeak:
		return nil
	case VoiceGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("Gemini API key is required for the gemini voice (set GEMINI_API_KEY or gemini.api_key)")
		}
		return nil
	default:
		return fmt.Errorf("unknown voice provider %q (want %s, %s or %s)", c.Voice.Provider, VoiceNone, VoiceGemini, VoiceEspeak)
	}
}

// ValidateSubtitleLanguage accepts a BCP 47 tag or "none".
func ValidateSubtitleLanguage(lang string) error {
	if lang == usecase.NoSubtitles {
		return nil
	}
	if strings.TrimSpace(lang) == "" {
		return errors.New("subtitle language is required")
	}
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("invalid subtitle language %q: %w", lang, err)
	}
	return nil
}

func setFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func defaultString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
