// Package dslref is the reference implementation of the dsl.Parser
// collaborator contract: "text → RuleProgram or parse error" (spec §4.B,
// §6). It is one valid rules-source grammar among many a host could plug
// in; the kernel itself never imports this package directly.
package dslref

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
	line int
}

var keywords = map[string]bool{
	"rule": true, "salience": true, "when": true, "then": true,
	"assign": true, "log": true, "retract": true, "call": true,
	"true": true, "false": true, "null": true, "and": true, "or": true, "not": true,
}

type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer { return &lexer{src: src, line: 1} }

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	return r, size
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r, size := l.peekRune()
		if r == '\n' {
			l.line++
			l.pos += size
			continue
		}
		if r == ' ' || r == '\t' || r == '\r' {
			l.pos += size
			continue
		}
		if r == '#' {
			for l.pos < len(l.src) {
				r2, s2 := l.peekRune()
				if r2 == '\n' {
					break
				}
				l.pos += s2
			}
			continue
		}
		if strings.HasPrefix(l.src[l.pos:], "//") {
			for l.pos < len(l.src) {
				r2, s2 := l.peekRune()
				if r2 == '\n' {
					break
				}
				l.pos += s2
			}
			continue
		}
		break
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '.'
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos, line: l.line}, nil
	}
	start := l.pos
	line := l.line
	r, size := l.peekRune()

	switch {
	case isIdentStart(r):
		for l.pos < len(l.src) {
			r2, s2 := l.peekRune()
			if !isIdentPart(r2) {
				break
			}
			l.pos += s2
		}
		// A hyphenated built-in name such as valid-email lexes as one
		// identifier when the hyphenated word runs straight into "(";
		// anywhere else "-" stays the minus operator.
		if l.pos < len(l.src) && l.src[l.pos] == '-' && !strings.Contains(l.src[start:l.pos], ".") {
			k := l.pos
			for k < len(l.src) && l.src[k] != '.' && (l.src[k] == '-' || isIdentPart(rune(l.src[k]))) {
				k++
			}
			if k < len(l.src) && l.src[k] == '(' && l.src[k-1] != '-' {
				l.pos = k
			}
		}
		text := l.src[start:l.pos]
		base := strings.ToLower(text)
		if keywords[base] && !strings.Contains(text, ".") {
			return token{kind: tokKeyword, text: base, pos: start, line: line}, nil
		}
		return token{kind: tokIdent, text: text, pos: start, line: line}, nil

	case r == '"':
		l.pos += size
		var sb strings.Builder
		for {
			r2, s2 := l.peekRune()
			if s2 == 0 {
				return token{}, fmt.Errorf("line %d: unterminated string literal", line)
			}
			if r2 == '"' {
				l.pos += s2
				break
			}
			if r2 == '\\' {
				l.pos += s2
				r3, s3 := l.peekRune()
				l.pos += s3
				switch r3 {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case '"', '\\':
					sb.WriteRune(r3)
				default:
					sb.WriteRune(r3)
				}
				continue
			}
			sb.WriteRune(r2)
			l.pos += s2
		}
		return token{kind: tokString, text: sb.String(), pos: start, line: line}, nil

	case r >= '0' && r <= '9':
		for l.pos < len(l.src) {
			r2, s2 := l.peekRune()
			if (r2 >= '0' && r2 <= '9') || r2 == '.' || r2 == 'e' || r2 == 'E' || r2 == '-' || r2 == '+' {
				if (r2 == '-' || r2 == '+') && !(l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')) {
					break
				}
				l.pos += s2
				continue
			}
			break
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start, line: line}, nil

	default:
		for _, p := range []string{"==", "!=", "<=", ">=", "&&", "||"} {
			if strings.HasPrefix(l.src[l.pos:], p) {
				l.pos += len(p)
				return token{kind: tokPunct, text: p, pos: start, line: line}, nil
			}
		}
		l.pos += size
		return token{kind: tokPunct, text: string(r), pos: start, line: line}, nil
	}
}

func parseNumberLiteral(text string) (isInt bool, i int64, f float64, err error) {
	if !strings.ContainsAny(text, ".eE") {
		i, err = strconv.ParseInt(text, 10, 64)
		if err == nil {
			return true, i, 0, nil
		}
	}
	f, err = strconv.ParseFloat(text, 64)
	return false, 0, f, err
}
