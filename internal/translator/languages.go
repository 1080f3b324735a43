package translator

import (
	"sort"
	"strings"
)

// Language is one entry of the shared language table. Backends keep their
// own code tables; this one only resolves what the caller typed.
type Language struct {
	Name   string `json:"code"`
	Label  string `json:"name"`
	Native string `json:"native"`
	ISO    string `json:"iso"`
}

var languages = map[string]Language{
	"english":    {Name: "english", Label: "English", Native: "English", ISO: "en"},
	"french":     {Name: "french", Label: "French", Native: "Français", ISO: "fr"},
	"spanish":    {Name: "spanish", Label: "Spanish", Native: "Español", ISO: "es"},
	"german":     {Name: "german", Label: "German", Native: "Deutsch", ISO: "de"},
	"italian":    {Name: "italian", Label: "Italian", Native: "Italiano", ISO: "it"},
	"japanese":   {Name: "japanese", Label: "Japanese", Native: "日本語", ISO: "ja"},
	"chinese":    {Name: "chinese", Label: "Chinese", Native: "中文", ISO: "zh"},
	"tamil":      {Name: "tamil", Label: "Tamil", Native: "தமிழ்", ISO: "ta"},
	"portuguese": {Name: "portuguese", Label: "Portuguese", Native: "Português", ISO: "pt"},
	"dutch":      {Name: "dutch", Label: "Dutch", Native: "Nederlands", ISO: "nl"},
	"korean":     {Name: "korean", Label: "Korean", Native: "한국어", ISO: "ko"},
	"thai":       {Name: "thai", Label: "Thai", Native: "ไทย", ISO: "th"},
	"vietnamese": {Name: "vietnamese", Label: "Vietnamese", Native: "Tiếng Việt", ISO: "vi"},
	"indonesian": {Name: "indonesian", Label: "Indonesian", Native: "Bahasa Indonesia", ISO: "id"},
	"malay":      {Name: "malay", Label: "Malay", Native: "Bahasa Melayu", ISO: "ms"},
}

var languageAliases = map[string]string{
	"bahasa":        "malay",
	"malaysian":     "malay",
	"bahasa_melayu": "malay",
	"mandarin":      "chinese",
}

// NormalizeLanguage lower-cases and trims a caller-supplied language.
func NormalizeLanguage(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// LookupLanguage resolves a language by name, alias or ISO 639-1 code,
// case-insensitively.
func LookupLanguage(raw string) (Language, bool) {
	key := NormalizeLanguage(raw)
	if key == "" {
		return Language{}, false
	}
	if lang, ok := languages[key]; ok {
		return lang, true
	}
	if name, ok := languageAliases[key]; ok {
		return languages[name], true
	}
	for _, lang := range languages {
		if lang.ISO == key {
			return lang, true
		}
	}
	return Language{}, false
}

// Languages lists the table sorted by name, English excluded since it is
// the fixed source language.
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, lang := range languages {
		if lang.Name == "english" {
			continue
		}
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// codeTable maps language names to a backend's own codes.
type codeTable map[string]string

// resolve finds the backend code for raw, accepting names, aliases and ISO
// codes understood by the shared table.
func (t codeTable) resolve(raw string) (string, bool) {
	key := NormalizeLanguage(raw)
	if code, ok := t[key]; ok {
		return code, true
	}
	if lang, ok := LookupLanguage(key); ok {
		code, ok := t[lang.Name]
		return code, ok
	}
	return "", false
}

func (t codeTable) names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
