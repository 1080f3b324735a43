// Package validator checks that a translation is in the expected target language.
package validator

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/transbench/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector,
// restricted to langs when given.
func New(langs ...lingua.Language) *Validator {
	return &Validator{det: detector.New(langs...)}
}

// Detect returns the ISO 639-1 code of text, or "" when the text is too
// short or its language is ambiguous.
func (v *Validator) Detect(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minValidationLength {
		return ""
	}
	code, ok := v.det.DetectISO(text)
	if !ok {
		return ""
	}
	return code
}

// Check reports the detected language of translatedText and an error when it
// is known and differs from targetLang. Short and ambiguous texts pass with
// an empty detected code.
func (v *Validator) Check(translatedText, targetLang string) (string, error) {
	text := strings.TrimSpace(translatedText)
	if text == "" {
		return "", fmt.Errorf("translation is empty")
	}

	detected := v.Detect(text)
	if detected == "" || targetLang == "" {
		return detected, nil
	}
	if !strings.EqualFold(detected, targetLang) {
		return detected, fmt.Errorf("expected %s but detected %s", strings.ToLower(targetLang), detected)
	}
	return detected, nil
}
