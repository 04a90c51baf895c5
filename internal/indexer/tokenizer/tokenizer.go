// Package tokenizer provides the text normalisation shared by corpus
// indexing and query retrieval. It lower-cases input, strips a fixed set of
// ASCII punctuation and splits on whitespace. Documents and questions must
// go through the same function or their terms will not line up.
package tokenizer

import (
	"strings"
)

// Punctuation is the set of characters removed before splitting.
const Punctuation = "`~!@#$%^&*()_+[]\\;',./{}|:\"<>?"

var stripper = buildStripper()

func buildStripper() *strings.Replacer {
	pairs := make([]string, 0, len(Punctuation)*2)
	for _, r := range Punctuation {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Normalize returns the ordered terms of text.
func Normalize(text string) []string {
	return strings.Fields(stripper.Replace(strings.ToLower(text)))
}

// Tokenize is Normalize with term positions attached.
func Tokenize(text string) []Token {
	terms := Normalize(text)
	tokens := make([]Token, len(terms))
	for i, term := range terms {
		tokens[i] = Token{Term: term, Position: i}
	}
	return tokens
}
