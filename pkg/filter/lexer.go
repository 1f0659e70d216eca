package filter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokBool
	tokOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokInt, tokFloat:
		return "number"
	case tokString:
		return "string"
	case tokBool:
		return "boolean"
	case tokOp:
		return "operator"
	case tokAnd:
		return "'and'"
	case tokOr:
		return "'or'"
	case tokNot:
		return "'not'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "token"
}

type token struct {
	kind  tokenKind
	pos   int
	text  string
	value any
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.input[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, pos: start, text: "("}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, pos: start, text: ")"}, nil
	case c == '=':
		if l.peekByte(1) == '=' {
			l.pos += 2
			return token{kind: tokOp, pos: start, text: "=="}, nil
		}
		return token{}, newSyntaxError(l.input, start, "unexpected '=' (did you mean '==')")
	case c == '!':
		if l.peekByte(1) == '=' {
			l.pos += 2
			return token{kind: tokOp, pos: start, text: "!="}, nil
		}
		l.pos++
		return token{kind: tokNot, pos: start, text: "!"}, nil
	case c == '>' || c == '<':
		if l.peekByte(1) == '=' {
			l.pos += 2
			return token{kind: tokOp, pos: start, text: string(c) + "="}, nil
		}
		l.pos++
		return token{kind: tokOp, pos: start, text: string(c)}, nil
	case c == '&' || c == '|':
		if l.peekByte(1) != c {
			return token{}, newSyntaxError(l.input, start, "unexpected %q", string(c))
		}
		l.pos += 2
		if c == '&' {
			return token{kind: tokAnd, pos: start, text: "&&"}, nil
		}
		return token{kind: tokOr, pos: start, text: "||"}, nil
	case c == '\'' || c == '"':
		return l.lexString(c)
	case isDigit(c) || (c == '-' && (isDigit(l.peekByte(1)) || l.peekByte(1) == '.')) || (c == '.' && isDigit(l.peekByte(1))):
		return l.lexNumber()
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	if unicode.IsLetter(r) {
		return l.lexWord(), nil
	}
	return token{}, newSyntaxError(l.input, start, "unexpected character %q", r)
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\\':
			if l.pos+1 >= len(l.input) {
				return token{}, newSyntaxError(l.input, start, "unterminated string")
			}
			sb.WriteByte(l.input[l.pos+1])
			l.pos += 2
		case c == quote:
			l.pos++
			s := sb.String()
			return token{kind: tokString, pos: start, text: l.input[start:l.pos], value: s}, nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, newSyntaxError(l.input, start, "unterminated string")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	isFloat := false
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		isFloat = true
		l.pos++
		digits := 0
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
			digits++
		}
		if digits == 0 {
			return token{}, newSyntaxError(l.input, start, "malformed number %q", l.input[start:l.pos])
		}
	}
	text := l.input[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, newSyntaxError(l.input, start, "malformed number %q", text)
		}
		return token{kind: tokFloat, pos: start, text: text, value: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, newSyntaxError(l.input, start, "integer out of range %q", text)
	}
	return token{kind: tokInt, pos: start, text: text, value: n}, nil
}

func (l *lexer) lexWord() token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			break
		}
		l.pos += size
	}
	text := l.input[start:l.pos]
	switch strings.ToLower(text) {
	case "and":
		return token{kind: tokAnd, pos: start, text: text}
	case "or":
		return token{kind: tokOr, pos: start, text: text}
	case "not":
		return token{kind: tokNot, pos: start, text: text}
	case "true":
		return token{kind: tokBool, pos: start, text: text, value: true}
	case "false":
		return token{kind: tokBool, pos: start, text: text, value: false}
	}
	return token{kind: tokIdent, pos: start, text: text}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
