package importer

import (
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// cleanCharCount counts the clean characters in an HTML fragment: tags are
// stripped, script/style content is skipped, and only Unicode letters and
// numbers are counted, by code point. This makes counts comparable across
// scripts; whitespace, punctuation, and symbols never contribute.
func cleanCharCount(fragment string) int {
	return countCleanRunes(extractText(fragment))
}

// countCleanRunes counts the letter and number code points in s.
func countCleanRunes(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	return n
}

// extractText strips markup from an HTML fragment using a tokenizer, so
// malformed fragments degrade instead of failing. Content inside script and
// style elements is skipped.
func extractText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var buf strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// Tokenizers only fail on read errors; a string reader ends in EOF.
			if errors.Is(tokenizer.Err(), io.EOF) {
				return buf.String()
			}
			return buf.String()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextTag(atom.Lookup(name)) {
				skipDepth++
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextTag(atom.Lookup(name)) && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth == 0 {
				buf.Write(tokenizer.Text())
			}
		}
	}
}

func skippedTextTag(a atom.Atom) bool {
	return a == atom.Script || a == atom.Style
}
