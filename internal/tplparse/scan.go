package tplparse

import (
	"strings"
)

type pieceKind uint8

const (
	pieceText pieceKind = iota
	pieceStmt           // {% ... %}
	piecePrint          // {{ ... }}
)

type piece struct {
	kind pieceKind
	body string // trimmed tag body, or raw text for pieceText
	line uint32 // 1-based line the piece starts on
}

// scan splits template content into text runs and tag bodies, tracking the
// 1-based line each piece starts on. Unterminated tags are reported with the
// line of the opening delimiter.
func scan(content string) ([]piece, *SyntaxError) {
	var pieces []piece
	line := uint32(1)
	rest := content

	for len(rest) > 0 {
		idx := strings.IndexByte(rest, '{')
		if idx < 0 || idx+1 >= len(rest) || (rest[idx+1] != '%' && rest[idx+1] != '{') {
			// No further tag opener; everything (through this '{' if any) is text.
			var text string
			if idx < 0 {
				text, rest = rest, ""
			} else {
				text, rest = rest[:idx+1], rest[idx+1:]
			}
			if text != "" {
				pieces = append(pieces, piece{kind: pieceText, body: text, line: line})
				line += countLines(text)
			}
			continue
		}

		if idx > 0 {
			text := rest[:idx]
			pieces = append(pieces, piece{kind: pieceText, body: text, line: line})
			line += countLines(text)
			rest = rest[idx:]
		}

		var closer string
		var kind pieceKind
		if rest[1] == '%' {
			closer, kind = "%}", pieceStmt
		} else {
			closer, kind = "}}", piecePrint
		}

		end := strings.Index(rest[2:], closer)
		if end < 0 {
			return nil, &SyntaxError{Line: line, Msg: "unterminated tag"}
		}
		body := rest[2 : 2+end]
		pieces = append(pieces, piece{kind: kind, body: strings.TrimSpace(body), line: line})
		line += countLines(rest[:2+end+2])
		rest = rest[2+end+2:]
	}
	return pieces, nil
}

func countLines(s string) uint32 {
	return uint32(strings.Count(s, "\n")) // #nosec G115 -- bounded by content size
}
