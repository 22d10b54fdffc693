package filter

import (
	"regexp"
	"strings"
)

// Parse turns a filter string into an expression tree.
// An empty or whitespace-only input selects everything and yields a nil Expr.
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, errorf(tok.pos, "unexpected %s after expression", tok.describe())
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(kw string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == kw
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, errorf(tok.pos, "expected %s, found %s", kind, tok.describe())
	}
	return tok, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") || p.peek().kind == tokOrOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") || p.peek().kind == tokAndAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isKeyword("not") || p.peek().kind == tokBang {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokIdent:
		return p.parseFieldTest()
	case tokEOF:
		return nil, errorf(tok.pos, "unexpected end of input, expected field or '('")
	default:
		return nil, errorf(tok.pos, "unexpected %s, expected field or '('", tok.describe())
	}
}

func (p *parser) parseFieldTest() (Expr, error) {
	tok := p.next()
	field := Field(tok.text)
	if !field.Valid() {
		return nil, errorf(tok.pos, "unknown field %s, expected name, group or type", quote(tok.text))
	}

	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	return FieldTest{Field: field, Pred: pred}, nil
}

func (p *parser) parsePredicate() (Predicate, error) {
	tok := p.next()
	switch {
	case tok.kind == tokEq:
		v, err := p.parseValue()
		return Is{Value: v}, err
	case tok.kind == tokNeq:
		v, err := p.parseValue()
		return IsNot{Value: v}, err
	case tok.kind == tokIdent && tok.text == "is":
		if p.isKeyword("not") {
			p.next()
			v, err := p.parseValue()
			return IsNot{Value: v}, err
		}
		v, err := p.parseValue()
		return Is{Value: v}, err
	case tok.kind == tokIdent && tok.text == "in":
		vs, err := p.parseList()
		return In{Values: vs}, err
	case tok.kind == tokIdent && tok.text == "not":
		if !p.isKeyword("in") {
			next := p.peek()
			return nil, errorf(next.pos, "expected 'in' after 'not', found %s", next.describe())
		}
		p.next()
		vs, err := p.parseList()
		return NotIn{Values: vs}, err
	case tok.kind == tokIdent && tok.text == "matches":
		return p.parseRegex()
	default:
		return nil, errorf(tok.pos, "expected operator (is, is not, ==, !=, in, not in, matches), found %s", tok.describe())
	}
}

func (p *parser) parseValue() (string, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return tok.text, nil
	case tokIdent:
		if isKeyword(tok.text) {
			return "", errorf(tok.pos, "keyword %s cannot be used as a bare value, quote it", quote(tok.text))
		}
		return tok.text, nil
	default:
		return "", errorf(tok.pos, "expected value, found %s", tok.describe())
	}
}

func (p *parser) parseList() ([]string, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	var values []string
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRBracket:
			return values, nil
		default:
			return nil, errorf(tok.pos, "expected ',' or ']', found %s", tok.describe())
		}
	}
}

func (p *parser) parseRegex() (Predicate, error) {
	tok, err := p.expect(tokRegex)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(tok.text)
	if err != nil {
		return nil, errorf(tok.pos, "invalid regex: %v", err)
	}
	return Matches{Pattern: re}, nil
}
