package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokRegex
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokAndAnd
	tokOrOr
	tokBang
	tokEq
	tokNeq
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokRegex:
		return "regex"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokComma:
		return "','"
	case tokAndAnd:
		return "'&&'"
	case tokOrOr:
		return "'||'"
	case tokBang:
		return "'!'"
	case tokEq:
		return "'=='"
	case tokNeq:
		return "'!='"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	// text is the identifier, the unescaped string value or the regex source.
	text string
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent:
		return "'" + t.text + "'"
	case tokString:
		return "string \"" + t.text + "\""
	case tokRegex:
		return "regex /" + t.text + "/"
	default:
		return t.kind.String()
	}
}

// lex splits the input into tokens. Byte offsets are kept on every token so
// parse errors can point at the offending position.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case r == '[':
			toks = append(toks, token{kind: tokLBracket, pos: i})
			i++
		case r == ']':
			toks = append(toks, token{kind: tokRBracket, pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, pos: i})
			i++
		case r == '&':
			if !strings.HasPrefix(input[i:], "&&") {
				return nil, errorf(i, "expected '&&'")
			}
			toks = append(toks, token{kind: tokAndAnd, pos: i})
			i += 2
		case r == '|':
			if !strings.HasPrefix(input[i:], "||") {
				return nil, errorf(i, "expected '||'")
			}
			toks = append(toks, token{kind: tokOrOr, pos: i})
			i += 2
		case r == '=':
			if !strings.HasPrefix(input[i:], "==") {
				return nil, errorf(i, "expected '=='")
			}
			toks = append(toks, token{kind: tokEq, pos: i})
			i += 2
		case r == '!':
			if strings.HasPrefix(input[i:], "!=") {
				toks = append(toks, token{kind: tokNeq, pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokBang, pos: i})
				i++
			}
		case r == '"':
			tok, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case r == '/':
			tok, next, err := lexRegex(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isIdentRune(r):
			start := i
			for i < len(input) {
				r, size = utf8.DecodeRuneInString(input[i:])
				if !isIdentRune(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
		default:
			return nil, errorf(i, "unexpected character %q", r)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// lexString reads a double-quoted value. Only \" and \\ are escapes.
func lexString(input string, start int) (token, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch c {
		case '"':
			return token{kind: tokString, text: b.String(), pos: start}, i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return token{}, 0, errorf(i, "unterminated escape in string")
			}
			next := input[i+1]
			if next != '"' && next != '\\' {
				return token{}, 0, errorf(i, "unknown escape \\%c in string", next)
			}
			b.WriteByte(next)
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, errorf(start, "unterminated string")
}

// lexRegex reads a /.../ literal. \/ yields a literal slash; any other
// backslash pair is passed through to the regex engine untouched.
func lexRegex(input string, start int) (token, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch c {
		case '/':
			return token{kind: tokRegex, text: b.String(), pos: start}, i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return token{}, 0, errorf(i, "unterminated regex")
			}
			if input[i+1] == '/' {
				b.WriteByte('/')
			} else {
				b.WriteByte('\\')
				b.WriteByte(input[i+1])
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, errorf(start, "unterminated regex")
}
