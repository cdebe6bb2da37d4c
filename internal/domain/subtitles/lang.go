package subtitles

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/forPelevin/clipper/internal/types"
)

// DetectLanguage guesses the transcript language, or returns language.Und.
func DetectLanguage(cues []types.Cue) language.Tag {
	text := PlainText(cues)
	if len(text) < 20 {
		return language.Und
	}
	code := whatlanggo.DetectLang(text).Iso6391()
	if code == "" {
		return language.Und
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}
