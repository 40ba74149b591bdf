// Package chunker splits oversized text into bounded chunks along paragraph
// and sentence boundaries. The output is deterministic for a given input and
// limit: chunk positions are part of vector IDs, so a re-import must produce
// the exact same sequence to overwrite rather than duplicate.
package chunker

import (
	"iter"
	"regexp"
	"slices"
	"unicode"
	"unicode/utf8"
)

// paragraphSep matches a blank line, possibly containing whitespace.
var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// separator joins paragraphs that share a chunk.
const separator = "\n\n"

// Chunks returns a lazy sequence of chunks of text, each at most maxSize
// bytes. The sequence may be ranged over any number of times.
//
// Paragraphs are accumulated greedily while the running chunk stays within
// maxSize. A paragraph that alone exceeds maxSize is cut into sentences
// (a sentence ends at '.', '!' or '?' followed by whitespace); when no
// sentence fits, the paragraph is hard-cut at maxSize bytes, backing off to
// the previous rune boundary so chunks remain valid UTF-8.
func Chunks(text string, maxSize int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if maxSize <= 0 {
			if text != "" {
				yield(text)
			}
			return
		}

		current := ""
		for _, paragraph := range paragraphSep.Split(text, -1) {
			if len(current)+len(paragraph)+len(separator) <= maxSize {
				if current != "" {
					current += separator
				}
				current += paragraph
				continue
			}

			if current != "" {
				if !yield(current) {
					return
				}
				current = ""
			}

			if len(paragraph) <= maxSize {
				current = paragraph
				continue
			}

			for remaining := paragraph; remaining != ""; {
				var piece string
				if sentence, rest, ok := firstSentence(remaining); ok && len(sentence) <= maxSize {
					piece, remaining = sentence, rest
				} else {
					cut := hardCut(remaining, maxSize)
					piece, remaining = remaining[:cut], remaining[cut:]
				}
				if !yield(piece) {
					return
				}
			}
		}

		if current != "" {
			yield(current)
		}
	}
}

// Split is Chunks collected into a slice.
func Split(text string, maxSize int) []string {
	return slices.Collect(Chunks(text, maxSize))
}

// firstSentence returns the shortest prefix of s (at least two bytes long)
// that ends in sentence punctuation followed by whitespace, and the rest of
// s with that whitespace removed.
func firstSentence(s string) (sentence, rest string, ok bool) {
	for i := 1; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
		default:
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i+1:])
		if !unicode.IsSpace(r) {
			continue
		}
		j := i + 1 + size
		for j < len(s) {
			r, size = utf8.DecodeRuneInString(s[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		return s[:i+1], s[j:], true
	}
	return "", "", false
}

// hardCut returns the byte offset at which to cut s so the piece is at most
// maxSize bytes and ends on a rune boundary. It always makes progress.
func hardCut(s string, maxSize int) int {
	if len(s) <= maxSize {
		return len(s)
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return cut
}
