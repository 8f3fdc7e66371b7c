package stylometry

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// IndexReadability computes the classic readability formulas directly from
// word, sentence, and syllable counts. Syllables are approximated by vowel
// groups, which tracks the published indices closely enough for scoring
// relative sophistication.
type IndexReadability struct{}

func NewIndexReadability() *IndexReadability { return &IndexReadability{} }

func (*IndexReadability) Score(text string) (ReadabilityScores, error) {
	words := strings.Fields(text)
	sentences := splitSentences(text)
	if len(words) == 0 || len(sentences) == 0 {
		return ReadabilityScores{}, errors.New("no sentences to score")
	}

	var (
		chars     int
		syllSum   int
		polySyll  int
		longWords int
	)
	for _, w := range words {
		length := letterDigitCount(w)
		chars += length
		if length > 6 {
			longWords++
		}
		s := syllables(w)
		syllSum += s
		if s >= 3 {
			polySyll++
		}
	}

	w := float64(len(words))
	s := float64(len(sentences))

	scores := ReadabilityScores{
		FleschKincaid: 0.39*(w/s) + 11.8*(float64(syllSum)/w) - 15.59,
		ARI:           4.71*(float64(chars)/w) + 0.5*(w/s) - 21.43,
		LIX:           w/s + 100*float64(longWords)/w,
	}
	// SMOG is unstable below three sentences.
	if len(sentences) >= 3 {
		scores.SMOG = 1.0430*math.Sqrt(float64(polySyll)*30/s) + 3.1291
	}
	return scores, nil
}

func letterDigitCount(word string) int {
	count := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}

// syllables counts maximal vowel groups, discounting a trailing silent e,
// minimum one per word.
func syllables(word string) int {
	trimmed := strings.TrimFunc(strings.ToLower(word), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	count := 0
	prevVowel := false
	for _, r := range trimmed {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	runes := []rune(trimmed)
	if n := len(runes); n >= 2 && runes[n-1] == 'e' && !strings.ContainsRune("aeiouy", runes[n-2]) {
		count--
	}
	if count < 1 {
		return 1
	}
	return count
}
