// Package textutil holds the tokenizer and sentence splitter shared by the
// hashing embedder, the summarizer and the terminal renderer.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	// A sentence runs up to and including a Latin or CJK terminator, or to a line break.
	sentencePattern = regexp.MustCompile(`[^.!?。．！？\n]+(?:[.!?。．！？]+|\n|$)`)
	stopwords       = buildStopwords()
)

// Terms lowercases text and returns its index terms in order. Latin-script words
// are kept whole with English stopwords removed; CJK runs become overlapping
// character bigrams.
func Terms(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	var out []string
	for _, tok := range raw {
		if !hasCJK(tok) {
			if !IsStopword(tok) {
				out = append(out, tok)
			}
			continue
		}
		out = append(out, cjkBigrams(tok)...)
	}
	return out
}

// TermSet returns the distinct terms of text.
func TermSet(text string) map[string]struct{} {
	terms := Terms(text)
	m := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		m[t] = struct{}{}
	}
	return m
}

// Sentences splits text into trimmed, non-empty sentences.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsStopword reports whether a lowercased word is an English stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// cjkBigrams splits a token into runs of CJK and non-CJK runes. CJK runs
// yield overlapping bigrams (or the single rune), other runs are kept whole.
func cjkBigrams(tok string) []string {
	var out []string
	var run []rune
	cjk := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		switch {
		case !cjk:
			out = append(out, string(run))
		case len(run) == 1:
			out = append(out, string(run))
		default:
			for i := 0; i+1 < len(run); i++ {
				out = append(out, string(run[i:i+2]))
			}
		}
		run = run[:0]
	}
	for _, r := range tok {
		isCJK := isCJKRune(r)
		if len(run) > 0 && isCJK != cjk {
			flush()
		}
		cjk = isCJK
		run = append(run, r)
	}
	flush()
	return out
}

func hasCJK(s string) bool {
	for _, r := range s {
		if isCJKRune(r) {
			return true
		}
	}
	return false
}

func isCJKRune(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func buildStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
