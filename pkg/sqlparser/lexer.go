package sqlparser

import (
	"strings"
	"unicode"
)

// singleCharTokens maps bytes that form a token on their own.
var singleCharTokens = map[byte]TokenType{
	'+': TOKEN_PLUS,
	'-': TOKEN_MINUS,
	'*': TOKEN_STAR,
	'/': TOKEN_SLASH,
	'%': TOKEN_PERCENT,
	'=': TOKEN_EQ,
	'.': TOKEN_DOT,
	',': TOKEN_COMMA,
	'(': TOKEN_LPAREN,
	')': TOKEN_RPAREN,
	'[': TOKEN_LBRACKET,
	']': TOKEN_RBRACKET,
}

// Lexer turns SQL text into a token stream.
type Lexer struct {
	src  string
	pos  int // offset of ch
	next int // offset after ch
	ch   byte
	line int
	col  int
}

// NewLexer creates a lexer over the given input.
func NewLexer(src string) *Lexer {
	l := &Lexer{src: src, line: 1}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	if l.next >= len(l.src) {
		l.ch = 0
	} else {
		l.ch = l.src[l.next]
	}
	l.pos = l.next
	l.next++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peek() byte {
	if l.next >= len(l.src) {
		return 0
	}
	return l.src[l.next]
}

func (l *Lexer) here() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// emit builds a token at the given position and steps past the last
// consumed byte.
func (l *Lexer) emit(t TokenType, lit string, pos Position) Token {
	l.advance()
	return Token{Type: t, Literal: lit, Pos: pos}
}

// NextToken scans and returns the next token in the stream.
func (l *Lexer) NextToken() Token {
	l.skipTrivia()
	pos := l.here()

	if l.ch == 0 {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	// Two-char operators first, since < > ! | : all pair up.
	switch l.ch {
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return l.emit(TOKEN_LE, "<=", pos)
		case '>':
			l.advance()
			return l.emit(TOKEN_NE, "<>", pos)
		}
		return l.emit(TOKEN_LT, "<", pos)
	case '>':
		if l.peek() == '=' {
			l.advance()
			return l.emit(TOKEN_GE, ">=", pos)
		}
		return l.emit(TOKEN_GT, ">", pos)
	case '!':
		if l.peek() == '=' {
			l.advance()
			return l.emit(TOKEN_NE, "!=", pos)
		}
		return l.emit(TOKEN_ILLEGAL, "!", pos)
	case '|':
		if l.peek() == '|' {
			l.advance()
			return l.emit(TOKEN_DPIPE, "||", pos)
		}
		return l.emit(TOKEN_ILLEGAL, "|", pos)
	case ':':
		if l.peek() == ':' {
			l.advance()
			return l.emit(TOKEN_DCOLON, "::", pos)
		}
		return l.emit(TOKEN_ILLEGAL, ":", pos)
	case '\'':
		return Token{Type: TOKEN_STRING, Literal: l.scanQuoted('\''), Pos: pos}
	case '"':
		return Token{Type: TOKEN_IDENT, Literal: l.scanQuoted('"'), Pos: pos}
	case '`':
		return Token{Type: TOKEN_IDENT, Literal: l.scanQuoted('`'), Pos: pos}
	}

	if t, ok := singleCharTokens[l.ch]; ok {
		return l.emit(t, string(l.src[l.pos]), pos)
	}

	if isIdentStart(l.ch) {
		lit := l.scanIdent()
		return Token{Type: LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
	}
	if isDigit(l.ch) {
		return Token{Type: TOKEN_NUMBER, Literal: l.scanNumber(), Pos: pos}
	}

	return l.emit(TOKEN_ILLEGAL, string(l.src[l.pos]), pos)
}

// skipTrivia consumes whitespace, -- line comments, and /* */ block
// comments. An unterminated block comment runs to EOF.
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.advance()
		case l.ch == '-' && l.peek() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.advance()
			}
		case l.ch == '/' && l.peek() == '*':
			l.advance()
			l.advance()
			for l.ch != 0 && !(l.ch == '*' && l.peek() == '/') {
				l.advance()
			}
			if l.ch != 0 {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

// scanQuoted reads a quoted run delimited by quote. A doubled delimiter
// escapes itself, the usual SQL rule for embedded quotes.
func (l *Lexer) scanQuoted(quote byte) string {
	l.advance()

	var b strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peek() != quote {
				l.advance()
				break
			}
			b.WriteByte(quote)
			l.advance()
			l.advance()
			continue
		}
		b.WriteByte(l.ch)
		l.advance()
	}
	return b.String()
}

func (l *Lexer) scanIdent() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.advance()
	}
	return l.src[start:l.pos]
}

// scanNumber reads an integer, decimal, or scientific literal.
func (l *Lexer) scanNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.advance()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		l.advance()
		for isDigit(l.ch) {
			l.advance()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			l.advance()
		}
		for isDigit(l.ch) {
			l.advance()
		}
	}
	return l.src[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
