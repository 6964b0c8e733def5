package exprlex

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Lexer tokenizes a single predicate or code-fragment expression.
//
// Grounded on the teacher's internal/lexer.Lexer: a readChar-driven scanner
// over runes, tracking a byte offset instead of line/column since §4.1's
// compiler errors carry only "the item id and a character offset".
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
}

// New creates a Lexer over a single expression's text. Identifier text is
// NFC-normalized up front so visually identical qids typed under different
// keyboard layouts or composition forms intern to the same symbol.
func New(input string) *Lexer {
	l := &Lexer{input: norm.NFC.String(input)}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// Next returns the next token in the stream, advancing past it.
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	offset := l.position

	switch {
	case l.ch == 0:
		return Token{Type: EOF, Offset: offset}
	case l.ch == '.':
		l.readChar()
		return Token{Type: DOT, Lit: ".", Offset: offset}
	case l.ch == ',':
		l.readChar()
		return Token{Type: COMMA, Lit: ",", Offset: offset}
	case l.ch == '(':
		l.readChar()
		return Token{Type: LPAREN, Lit: "(", Offset: offset}
	case l.ch == ')':
		l.readChar()
		return Token{Type: RPAREN, Lit: ")", Offset: offset}
	case l.ch == '+':
		l.readChar()
		return Token{Type: PLUS, Lit: "+", Offset: offset}
	case l.ch == '-':
		l.readChar()
		return Token{Type: MINUS, Lit: "-", Offset: offset}
	case l.ch == '*':
		l.readChar()
		return Token{Type: STAR, Lit: "*", Offset: offset}
	case l.ch == '%':
		l.readChar()
		return Token{Type: PERCENT, Lit: "%", Offset: offset}
	case l.ch == '/':
		if l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return Token{Type: IDIV, Lit: "//", Offset: offset}
		}
		l.readChar()
		return Token{Type: ILLEGAL, Lit: "/", Offset: offset}
	case l.ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: EQ, Lit: "==", Offset: offset}
		}
		l.readChar()
		return Token{Type: ASSIGN, Lit: "=", Offset: offset}
	case l.ch == '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: NEQ, Lit: "!=", Offset: offset}
		}
		l.readChar()
		return Token{Type: ILLEGAL, Lit: "!", Offset: offset}
	case l.ch == '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: LTE, Lit: "<=", Offset: offset}
		}
		l.readChar()
		return Token{Type: LT, Lit: "<", Offset: offset}
	case l.ch == '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: GTE, Lit: ">=", Offset: offset}
		}
		l.readChar()
		return Token{Type: GT, Lit: ">", Offset: offset}
	case unicode.IsDigit(l.ch):
		return l.readNumber(offset)
	case isIdentStart(l.ch):
		return l.readIdent(offset)
	default:
		ch := l.ch
		l.readChar()
		return Token{Type: ILLEGAL, Lit: string(ch), Offset: offset}
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (l *Lexer) readIdent(offset int) Token {
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	lit := sb.String()
	if kw, ok := keywords[lit]; ok {
		return Token{Type: kw, Lit: lit, Offset: offset}
	}
	return Token{Type: IDENT, Lit: lit, Offset: offset}
}

func (l *Lexer) readNumber(offset int) Token {
	var sb strings.Builder
	for unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return Token{Type: INT, Lit: sb.String(), Offset: offset}
}
