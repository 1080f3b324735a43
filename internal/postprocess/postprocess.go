// Package postprocess cleans and adapts translation output.
//
// Clean is applied to the raw text returned by the LLM-backed backends
// (ChatGPT, Ollama) before the result is used downstream. Adapt applies
// caller-supplied usage context to any successful translation.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean strips what an LLM wraps around its translation of source and
// returns the trimmed result. Anything the source itself carries, such as
// surrounding quotes, is left alone.
func Clean(output, source string) string {
	text := removeThinkingBlocks(output)
	text = removePromptEcho(text, source)
	text = removeLeadIn(text)
	text = removeQuoteWrapping(text, source)
	return strings.TrimSpace(text)
}

// Reasoning models (deepseek-r1, qwq on Ollama) emit <think> blocks before
// the answer. RE2 has no backreferences, so each tag is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// An opened block whose closing tag never came: the model was cut off.
var truncatedThinkingRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>).*$`)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var (
	// ChatGPT user prompt: "Translate this text to French: <source>".
	// Ollama prompt: "Translate the following text from English to French."
	instructionEchoRe = regexp.MustCompile(`(?i)^translate (?:this|the following) text (?:from english )?to [^:.\n]+[:.]\s*`)
	// Ollama prompt body: `Text: "<source>"` followed by "Translation:".
	sourceLabelRe      = regexp.MustCompile(`(?i)^text\s*:\s*`)
	translationLabelRe = regexp.MustCompile(`(?im)^translation\s*:[ \t]*`)
	onlyOutputRe       = regexp.MustCompile(`(?i)^only respond with the translation[^\n]*\n?`)
)

// removePromptEcho drops a repeated prompt: the instruction line, the
// echoed source and the labels the Ollama prompt ends with.
func removePromptEcho(text, source string) string {
	src := strings.TrimSpace(source)
	echoed := false

	if loc := instructionEchoRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
		echoed = true
	}
	if loc := onlyOutputRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
		echoed = true
	}
	if loc := sourceLabelRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
		echoed = true
	}
	if echoed && src != "" {
		text = trimSourcePrefix(text, src)
	}

	// Keep what follows the last "Translation:" label when the lines before
	// it are only prompt.
	locs := translationLabelRe.FindAllStringIndex(text, -1)
	if len(locs) > 0 {
		last := locs[len(locs)-1]
		before := strings.TrimSpace(text[:last[0]])
		if before == "" || echoed || trimSourcePrefix(before, src) == "" {
			text = strings.TrimSpace(text[last[1]:])
		}
	}
	return text
}

// trimSourcePrefix removes src from the start of text, quoted or not.
func trimSourcePrefix(text, src string) string {
	if src == "" {
		return text
	}
	for _, candidate := range []string{`"` + src + `"`, src} {
		if strings.HasPrefix(text, candidate) {
			return strings.TrimSpace(text[len(candidate):])
		}
	}
	return text
}

// Lead-ins such as "Here is the French translation:" or "Sure! Translation:".
// A colon is required so ordinary sentences are never cut.
var leadInPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:(?:certainly|sure|of course)[,.!]?\s*)?here(?:'s| is)(?: the| your)?(?: [\p{L}()]+){0,3}? translation\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:[\p{L}]+ )?(?:translation|translated text)(?: in [\p{L} ()]+)?\s*:`),
}

func removeLeadIn(text string) string {
	for _, re := range leadInPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'“', '”'},
	{'‘', '’'},
	{'「', '」'},
}

// removeQuoteWrapping strips one outer quote pair the model added. When
// the source was itself quoted the pair belongs to the translation.
func removeQuoteWrapping(text, source string) string {
	if _, ok := quotePair(strings.TrimSpace(source)); ok {
		return text
	}
	if _, ok := quotePair(text); ok {
		runes := []rune(text)
		return strings.TrimSpace(string(runes[1 : len(runes)-1]))
	}
	return text
}

func quotePair(text string) ([2]rune, bool) {
	runes := []rune(text)
	if len(runes) < 2 {
		return [2]rune{}, false
	}
	for _, p := range quotePairs {
		if runes[0] == p[0] && runes[len(runes)-1] == p[1] {
			return p, true
		}
	}
	return [2]rune{}, false
}
