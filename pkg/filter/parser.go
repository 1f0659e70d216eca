package filter

// Parse parses a filter expression. Malformed input fails with a *SyntaxError.
func Parse(input string) (Expr, error) {
	p := &parser{lex: &lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, newSyntaxError(input, 0, "empty expression")
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected()
	}
	return expr, nil
}

// MustParse is like Parse but panics on error. Intended for constant expressions.
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected() error {
	if p.tok.kind == tokEOF {
		return newSyntaxError(p.lex.input, p.tok.pos, "unexpected end of input")
	}
	return newSyntaxError(p.lex.input, p.tok.pos, "unexpected %s %q", p.tok.kind, p.tok.text)
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.tok.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.tok.kind != tokLParen {
		return p.parseComparison()
	}
	open := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokRParen {
		if p.tok.kind == tokEOF {
			return nil, newSyntaxError(p.lex.input, open, "unclosed parenthesis")
		}
		return nil, p.unexpected()
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return expr, nil
}

type operand struct {
	tok   token
	ident bool
}

func (p *parser) parseOperand() (operand, error) {
	switch p.tok.kind {
	case tokIdent:
		op := operand{tok: p.tok, ident: true}
		return op, p.advance()
	case tokInt, tokFloat, tokString, tokBool:
		op := operand{tok: p.tok}
		return op, p.advance()
	}
	return operand{}, p.unexpected()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokOp {
		if p.tok.kind == tokEOF {
			return nil, newSyntaxError(p.lex.input, p.tok.pos, "expected comparison operator")
		}
		return nil, newSyntaxError(p.lex.input, p.tok.pos, "expected comparison operator, got %s %q", p.tok.kind, p.tok.text)
	}
	op := Op(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	c := &Comparison{Op: op, Value: right.tok.value}
	if right.ident {
		// A bare word on the right is a string literal: Genre == Fiction.
		c.Value = right.tok.text
	}
	switch {
	case left.ident:
		c.Key = left.tok.text
	case left.tok.kind == tokString:
		// A quoted key: 'Publication Year' > 1900.
		c.Key = left.tok.value.(string)
	default:
		c.Key = left.tok.text
		c.LiteralKey = true
	}
	return c, nil
}
