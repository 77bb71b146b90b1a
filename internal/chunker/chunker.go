// Package chunker splits input for engine APIs that cap the size of a single
// query, preferring sentence and word boundaries over hard cuts.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is one cut of the input.
type Piece struct {
	Text string
	// Sep is the whitespace that followed Text in the input. It is empty for
	// the last piece and after a hard cut.
	Sep string
}

// Split cuts text into pieces of at most maxBytes bytes each without
// splitting a UTF-8 sequence. Boundaries are tried in order: line break,
// sentence end (. ! ? । 。 followed by a space or end), whitespace, then a
// hard cut at the last rune that fits. maxBytes <= 0 disables splitting.
// Pieces are trimmed; empty pieces are dropped.
func Split(text string, maxBytes int) []string {
	segments := Segments(text, maxBytes)
	pieces := make([]string, 0, len(segments))
	for _, seg := range segments {
		pieces = append(pieces, seg.Text)
	}
	return pieces
}

// Segments cuts text like Split and keeps the whitespace removed at each
// cut, so Join can rebuild the line structure around translated pieces.
func Segments(text string, maxBytes int) []Piece {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []Piece{{Text: text}}
	}

	var pieces []Piece
	for len(text) > maxBytes {
		cut := splitPoint(text, maxBytes)
		head, rest := text[:cut], text[cut:]
		piece := strings.TrimRightFunc(head, unicode.IsSpace)
		next := strings.TrimLeftFunc(rest, unicode.IsSpace)
		sep := head[len(piece):] + rest[:len(rest)-len(next)]
		text = next

		if piece == "" {
			if n := len(pieces); n > 0 {
				pieces[n-1].Sep += sep
			}
			continue
		}
		pieces = append(pieces, Piece{Text: piece, Sep: sep})
	}
	if text != "" {
		pieces = append(pieces, Piece{Text: text})
	}
	return pieces
}

// Join concatenates texts, one per piece, with each piece's separator.
func Join(pieces []Piece, texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		b.WriteString(t)
		if i < len(pieces) && i < len(texts)-1 {
			b.WriteString(pieces[i].Sep)
		}
	}
	return b.String()
}

// splitPoint returns a byte offset in (0, maxBytes] at which to cut text.
func splitPoint(text string, maxBytes int) int {
	limit := maxBytes
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	if limit == 0 {
		// A single rune wider than maxBytes; keep it whole.
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	window := text[:limit]

	if i := strings.LastIndexByte(window, '\n'); i > 0 {
		return i + 1
	}

	best := -1
	for i, r := range window {
		if !isSentenceEnd(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		if end == len(window) {
			if next, _ := utf8.DecodeRuneInString(text[end:]); unicode.IsSpace(next) {
				best = end
			}
			continue
		}
		if next, _ := utf8.DecodeRuneInString(window[end:]); unicode.IsSpace(next) {
			best = end
		}
	}
	if best > 0 {
		return best
	}

	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		return i
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '।', '。', '！', '？':
		return true
	}
	return false
}
