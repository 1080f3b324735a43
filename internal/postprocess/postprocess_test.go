package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"none", "Bonjour le monde", "Bonjour le monde"},
		{"think block", "<think>User wants French.</think>\nBonjour le monde", "Bonjour le monde"},
		{"multiline reasoning", "<reasoning>\nstep one\nstep two\n</reasoning>Hola", "Hola"},
		{"upper case tags", "<THINKING>x</THINKING>Hallo", "Hallo"},
		{"truncated block", "Ciao <think>the model was cut off", "Ciao"},
		{"only a block", "<think>nothing else</think>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeThinkingBlocks(tt.input); got != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemovePromptEcho(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		source   string
		expected string
	}{
		{
			name:     "chatgpt instruction",
			input:    "Translate this text to French: Bonjour",
			source:   "Hello",
			expected: "Bonjour",
		},
		{
			name:     "chatgpt instruction with source",
			input:    "Translate this text to Malay (Bahasa Melayu): Hello\nHalo",
			source:   "Hello",
			expected: "Halo",
		},
		{
			name:     "ollama prompt repeated",
			input:    "Translate the following text from English to French.\nOnly respond with the translation, nothing else.\n\nText: \"Hello\"\n\nTranslation: Bonjour",
			source:   "Hello",
			expected: "Bonjour",
		},
		{
			name:     "ollama labels only",
			input:    "Text: \"Hello\"\nTranslation: Bonjour",
			source:   "Hello",
			expected: "Bonjour",
		},
		{
			name:     "bare translation label",
			input:    "Translation: Hola",
			source:   "Hello",
			expected: "Hola",
		},
		{
			name:     "label inside real content is kept",
			input:    "Voici le texte.\nTranslation: notes",
			source:   "Here is the text.",
			expected: "Voici le texte.\nTranslation: notes",
		},
		{
			name:     "plain output",
			input:    "Guten Morgen",
			source:   "Good morning",
			expected: "Guten Morgen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removePromptEcho(tt.input, tt.source); got != tt.expected {
				t.Errorf("removePromptEcho(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveLeadIn(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Here is the French translation: Bonjour", "Bonjour"},
		{"Sure! Here's your translation: Hola", "Hola"},
		{"French translation: Bonjour", "Bonjour"},
		{"Translation in Japanese: こんにちは", "こんにちは"},
		{"Here is the museum entrance.", "Here is the museum entrance."},
		{"Bonjour", "Bonjour"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := removeLeadIn(tt.input); got != tt.expected {
				t.Errorf("removeLeadIn(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		source   string
		expected string
	}{
		{"added double quotes", `"Bonjour"`, "Hello", "Bonjour"},
		{"added guillemets", "«Bonjour»", "Hello", "Bonjour"},
		{"added curly quotes", "“Hola”", "Hello", "Hola"},
		{"added corner brackets", "「こんにちは」", "Hello", "こんにちは"},
		{"quoted source keeps quotes", `"Bonjour"`, `"Hello"`, `"Bonjour"`},
		{"curly quoted source keeps quotes", "«Bonjour»", "“Hello”", "«Bonjour»"},
		{"mismatched pair", `"Bonjour'`, "Hello", `"Bonjour'`},
		{"inner quotes", `Il a dit "oui"`, "He said yes", `Il a dit "oui"`},
		{"single rune", `"`, "Hello", `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeQuoteWrapping(tt.input, tt.source); got != tt.expected {
				t.Errorf("removeQuoteWrapping(%q, %q) = %q, want %q", tt.input, tt.source, got, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		source   string
		expected string
	}{
		{"plain", "  Bonjour le monde \n", "Hello world", "Bonjour le monde"},
		{"chatgpt echo", "Translate this text to French: Bonjour", "Hello", "Bonjour"},
		{"quoted source", `"Bonjour"`, `"Hello"`, `"Bonjour"`},
		{
			name:     "reasoning ollama output",
			input:    "<think>Simple greeting.</think>\nTranslation: \"Bonjour\"",
			source:   "Hello",
			expected: "Bonjour",
		},
		{
			name:     "lead-in and quotes",
			input:    "Here is the Spanish translation: \"Buenos días\"",
			source:   "Good morning",
			expected: "Buenos días",
		},
		{"empty", "<think>no answer</think>", "Hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input, tt.source); got != tt.expected {
				t.Errorf("Clean(%q, %q) = %q, want %q", tt.input, tt.source, got, tt.expected)
			}
		})
	}
}
