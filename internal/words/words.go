// apps/go-server/internal/words/words.go
//
// Hangul initial-consonant (chosung) helpers for the game engine.
//
// Responsibilities:
//   - Map a precomposed Hangul syllable to its initial consonant class.
//   - Collapse tense consonants (ㄲ ㄸ ㅃ ㅆ ㅉ) onto their base class.
//   - Generate two-character prompts from the 14 simple classes.
//   - Decide structural eligibility of a word against a prompt.
//
// Notes:
//   • Only the syllable block U+AC00..U+D7A3 carries an initial; anything else has no class.
//   • Lengths are counted in runes, never bytes.

package words

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

const (
	syllableFirst = 0xAC00
	syllableLast  = 0xD7A3
	// medials (21) * finals (28) syllables share one initial.
	syllablesPerInitial = 21 * 28

	// PromptLen is the number of characters in a prompt and in an eligible word.
	PromptLen = 2
)

// fullInitials are the 19 initials in Unicode composition order.
var fullInitials = []rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ',
	'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ',
	'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// Alphabet holds the 14 simple classes prompts are drawn from.
var Alphabet = []rune{
	'ㄱ', 'ㄴ', 'ㄷ', 'ㄹ', 'ㅁ',
	'ㅂ', 'ㅅ', 'ㅇ', 'ㅈ', 'ㅊ',
	'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// base maps tense initials to the class used for display and matching.
func base(r rune) rune {
	switch r {
	case 'ㄲ':
		return 'ㄱ'
	case 'ㄸ':
		return 'ㄷ'
	case 'ㅃ':
		return 'ㅂ'
	case 'ㅆ':
		return 'ㅅ'
	case 'ㅉ':
		return 'ㅈ'
	default:
		return r
	}
}

// Initial returns the simple consonant class of a syllable.
// ok is false for runes outside the Hangul syllable block.
func Initial(r rune) (class rune, ok bool) {
	if r < syllableFirst || r > syllableLast {
		return 0, false
	}
	idx := int(r-syllableFirst) / syllablesPerInitial
	if idx >= len(fullInitials) {
		return 0, false
	}
	return base(fullInitials[idx]), true
}

// Matches reports whether word is structurally eligible for prompt:
// both must be exactly two characters and each syllable's class must equal
// the prompt character at the same position. Malformed input yields false.
func Matches(word, prompt string) bool {
	if utf8.RuneCountInString(word) != PromptLen || utf8.RuneCountInString(prompt) != PromptLen {
		return false
	}
	pr := []rune(prompt)
	for i, r := range []rune(word) {
		class, ok := Initial(r)
		if !ok || class != pr[i] {
			return false
		}
	}
	return true
}

// RandomPrompt draws a prompt using the package-level random source.
func RandomPrompt() string {
	return pick(rand.IntN)
}

// PromptFrom draws a prompt from r; useful for reproducible sequences.
func PromptFrom(r *rand.Rand) string {
	return pick(r.IntN)
}

func pick(intn func(int) int) string {
	var b strings.Builder
	for i := 0; i < PromptLen; i++ {
		b.WriteRune(Alphabet[intn(len(Alphabet))])
	}
	return b.String()
}

// IsPrompt reports whether s is two characters from Alphabet.
func IsPrompt(s string) bool {
	if utf8.RuneCountInString(s) != PromptLen {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(string(Alphabet), r) {
			return false
		}
	}
	return true
}
