package postprocess

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// referenceThreshold is the confidence above which a key reference is
// trusted enough to complete partial mentions of it.
const referenceThreshold = 0.7

// Context describes where a translation will be used.
type Context struct {
	Domain        string             `json:"domain,omitempty"`
	KeyReferences map[string]float64 `json:"key_references,omitempty"`
}

func (c *Context) Empty() bool {
	return c == nil || (c.Domain == "" && len(c.KeyReferences) == 0)
}

// domainTerms holds term substitutions per domain and target ISO code.
var domainTerms = map[string]map[string][][2]string{
	"museum_tour": {
		"fr": {{"pièce", "œuvre"}, {"montrer", "présenter"}},
	},
	"art_gallery": {
		"fr": {{"pièce", "tableau"}},
	},
}

// Adapt applies domain vocabulary for the target language (ISO 639-1) and
// completes partial mentions of confident key references, e.g. "Leonardo"
// becomes "Leonardo da Vinci". It never changes an empty translation.
func Adapt(translation, targetISO string, ctx *Context) string {
	if ctx.Empty() || strings.TrimSpace(translation) == "" {
		return translation
	}

	out := translation
	for _, pair := range domainTerms[ctx.Domain][strings.ToLower(targetISO)] {
		out = strings.ReplaceAll(out, pair[0], pair[1])
	}

	names := make([]string, 0, len(ctx.KeyReferences))
	for name, confidence := range ctx.KeyReferences {
		if confidence > referenceThreshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		out = completeReference(out, name)
	}
	return out
}

func completeReference(text, name string) string {
	name = strings.TrimSpace(name)
	fields := strings.Fields(name)
	if len(fields) < 2 || strings.Contains(text, name) {
		return text
	}

	first := fields[0]
	var b strings.Builder
	pos := 0
	for {
		i := strings.Index(text[pos:], first)
		if i < 0 {
			break
		}
		start, end := pos+i, pos+i+len(first)
		b.WriteString(text[pos:start])
		if isWordBoundary(text, start, end) {
			b.WriteString(name)
		} else {
			b.WriteString(first)
		}
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// isWordBoundary reports whether text[start:end] is neither preceded nor
// followed by a letter or digit.
func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
