package index

import (
	"maps"
	"slices"
)

const trigramSize = 3

// Trigrams returns every contiguous 3-rune window of s, sliding one rune at a
// time. Strings shorter than 3 runes are returned whole and the empty string
// yields no terms.
func Trigrams(s string) []string {
	if s == "" {
		return nil
	}

	runes := []rune(s)
	if len(runes) < trigramSize {
		return []string{s}
	}

	grams := make([]string, 0, len(runes)-trigramSize+1)
	for offset := 0; offset+trigramSize <= len(runes); offset++ {
		grams = append(grams, string(runes[offset:offset+trigramSize]))
	}

	return grams
}

// Tokenize maps each trigram of every input key to the payloads of the keys
// it came from. Input keys are visited in lexical order.
func Tokenize[T any](input map[string]T) map[string][]T {
	tokens := make(map[string][]T)
	for _, source := range slices.Sorted(maps.Keys(input)) {
		for _, gram := range Trigrams(source) {
			tokens[gram] = append(tokens[gram], input[source])
		}
	}

	return tokens
}
