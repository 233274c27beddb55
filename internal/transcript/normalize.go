package transcript

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Normalizer converts raw captured text into a reading form for display
// and character counting.
type Normalizer interface {
	Normalize(raw string) string
}

// IdentityNormalizer returns input unchanged. It is the fallback when no
// reading tokenizer is available: normalized text equals the raw text.
type IdentityNormalizer struct{}

// Normalize returns raw unchanged.
func (IdentityNormalizer) Normalize(raw string) string { return raw }

// ReadingNormalizer converts text to its hiragana reading using a
// morphological analyzer, so learners see the transcript in a normalized
// reading form regardless of the script the recognizer produced.
type ReadingNormalizer struct {
	t *tokenizer.Tokenizer
}

// NewReadingNormalizer builds a reading normalizer over the bundled IPA
// dictionary.
func NewReadingNormalizer() (*ReadingNormalizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("build reading tokenizer: %w", err)
	}
	return &ReadingNormalizer{t: t}, nil
}

// Normalize returns the hiragana reading of raw. Tokens without a reading
// keep their surface form.
func (n *ReadingNormalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, tk := range n.t.Tokenize(raw) {
		reading, ok := tk.Reading()
		if !ok || reading == "" || reading == "*" {
			b.WriteString(tk.Surface)
			continue
		}
		b.WriteString(katakanaToHiragana(reading))
	}
	return b.String()
}

// katakanaToHiragana lowers the katakana block (ァ..ヶ) into hiragana.
func katakanaToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'ァ' && r <= 'ヶ' {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// CountChars returns the rune count of text with all whitespace stripped,
// including full-width spaces. This is the character count fed to scoring.
func CountChars(text string) int {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '　', '\r', '\n', '\t':
			return -1
		}
		return r
	}, text)
	return len([]rune(stripped))
}
