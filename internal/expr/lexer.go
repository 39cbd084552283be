package expr

import (
	"fmt"
	"strings"
)

// lexer turns expression source into a token stream. It has no knowledge of
// grammar beyond what distinguishes a token from its neighbors; precedence
// and structure live in the parser.
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekRuneAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }

// next returns the next token in the stream, or a tokEOF once exhausted.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	r := l.src[l.pos]

	switch {
	case isDigit(r):
		return l.lexNumber(), nil
	case r == '\'':
		return l.lexString()
	case isIdentStart(r):
		return l.lexIdent(), nil
	case r == '#':
		l.pos++
		if !isIdentStart(l.peekRune()) {
			return token{}, fmt.Errorf("expected identifier after '#' at position %d", start)
		}
		id := l.lexIdent()
		return token{kind: tokVar, text: id.text, pos: start}, nil
	}

	two := string(r) + string(l.peekRuneAt(1))
	switch two {
	case "?.":
		l.pos += 2
		return token{kind: tokQuestionDot, text: two, pos: start}, nil
	case "<=":
		l.pos += 2
		return token{kind: tokLe, text: two, pos: start}, nil
	case ">=":
		l.pos += 2
		return token{kind: tokGe, text: two, pos: start}, nil
	case "==":
		l.pos += 2
		return token{kind: tokEq, text: two, pos: start}, nil
	case "!=":
		l.pos += 2
		return token{kind: tokNe, text: two, pos: start}, nil
	case "&&":
		l.pos += 2
		return token{kind: tokAnd, text: two, pos: start}, nil
	case "||":
		l.pos += 2
		return token{kind: tokOr, text: two, pos: start}, nil
	}

	single := map[rune]tokenKind{
		'.': tokDot, '(': tokLParen, ')': tokRParen, '[': tokLBracket, ']': tokRBracket,
		',': tokComma, '?': tokQuestion, ':': tokColon, '!': tokBang, '-': tokMinus,
		'+': tokPlus, '*': tokStar, '/': tokSlash, '<': tokLt, '>': tokGt,
	}
	if kind, ok := single[r]; ok {
		l.pos++
		return token{kind: kind, text: string(r), pos: start}, nil
	}

	return token{}, fmt.Errorf("unexpected character %q at position %d", r, start)
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for isDigit(l.peekRune()) {
		l.pos++
	}
	isFloat := false
	if l.peekRune() == '.' && isDigit(l.peekRuneAt(1)) {
		isFloat = true
		l.pos++
		for isDigit(l.peekRune()) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		return token{kind: tokFloat, text: text, pos: start}
	}
	return token{kind: tokInt, text: text, pos: start}
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string literal starting at position %d", start)
		}
		r := l.src[l.pos]
		if r == '\'' {
			if l.peekRuneAt(1) == '\'' {
				sb.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		if r == '\\' && l.peekRuneAt(1) == '\'' {
			sb.WriteRune('\'')
			l.pos += 2
			continue
		}
		sb.WriteRune(r)
		l.pos++
	}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for isIdentPart(l.peekRune()) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	switch text {
	case "null":
		return token{kind: tokNull, text: text, pos: start}
	case "true":
		return token{kind: tokTrue, text: text, pos: start}
	case "false":
		return token{kind: tokFalse, text: text, pos: start}
	default:
		return token{kind: tokIdent, text: text, pos: start}
	}
}
