package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// TargetLanguages are the languages the backends translate into, plus the
// English source.
var TargetLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.Spanish,
	lingua.German,
	lingua.Italian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Tamil,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Korean,
	lingua.Thai,
	lingua.Vietnamese,
	lingua.Indonesian,
	lingua.Malay,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over langs. lingua needs at least two candidates,
// so fewer means every language it knows. Building is expensive; reuse the
// instance.
func New(langs ...lingua.Language) *Detector {
	var detector lingua.LanguageDetector
	if len(langs) > 1 {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build()
	} else {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build()
	}
	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
