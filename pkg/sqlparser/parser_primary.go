package sqlparser

// Primary expression parsing: literals, column references, function calls,
// parenthesized expressions and subqueries.

// parsePrimary parses a primary expression.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit
	case TOKEN_STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit
	case TOKEN_TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}
	case TOKEN_FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}
	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}
	case TOKEN_CASE:
		return p.parseCaseExpr()
	case TOKEN_CAST:
		return p.parseCastExpr()
	case TOKEN_EXISTS:
		return p.parseExistsExpr()
	case TOKEN_LPAREN:
		return p.parseParenOrSubquery()
	case TOKEN_IDENT:
		return p.parseIdentExpr()
	case TOKEN_STAR:
		p.nextToken()
		return &StarExpr{}
	default:
		p.addError("unexpected token %s in expression", p.token.Type)
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}
	}
}

// parseIdentExpr parses an identifier-led expression: a function call,
// a qualified column reference, or a bare column.
func (p *Parser) parseIdentExpr() Expr {
	name := p.token.Literal

	// Function call
	if p.checkPeek(TOKEN_LPAREN) {
		p.nextToken()
		return p.parseFuncCall(name)
	}

	p.nextToken()

	// Qualified reference: table.column or table.*
	if p.match(TOKEN_DOT) {
		if p.check(TOKEN_STAR) {
			p.nextToken()
			return &StarExpr{Table: name}
		}
		if !p.check(TOKEN_IDENT) {
			p.addError("expected column name after '.'")
			return &ColumnRef{Table: name}
		}
		column := p.token.Literal
		p.nextToken()

		// A third dot means schema.table.column; keep the last two parts.
		if p.match(TOKEN_DOT) {
			if p.check(TOKEN_IDENT) {
				name = column
				column = p.token.Literal
				p.nextToken()
			}
		}

		return &ColumnRef{Table: name, Column: column}
	}

	return &ColumnRef{Column: name}
}

// parseFuncCall parses a function call. The name has been consumed and the
// current token is LPAREN.
func (p *Parser) parseFuncCall(name string) Expr {
	fn := &FuncCall{Name: name}
	p.expect(TOKEN_LPAREN)

	if p.match(TOKEN_DISTINCT) {
		fn.Distinct = true
	}

	if p.check(TOKEN_STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(TOKEN_RPAREN) {
		for {
			arg := p.parseExpression()
			fn.Args = append(fn.Args, arg)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	p.expect(TOKEN_RPAREN)

	// FILTER (WHERE expr)
	if p.match(TOKEN_FILTER) {
		p.expect(TOKEN_LPAREN)
		p.expect(TOKEN_WHERE)
		fn.Filter = p.parseExpression()
		p.expect(TOKEN_RPAREN)
	}

	// OVER (window_spec)
	if p.match(TOKEN_OVER) {
		fn.Window = p.parseWindowSpec()
	}

	return fn
}

// parseParenOrSubquery parses a parenthesized expression or scalar subquery.
func (p *Parser) parseParenOrSubquery() Expr {
	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
		stmt := p.parseStatement()
		p.expect(TOKEN_RPAREN)
		return &SubqueryExpr{Select: stmt}
	}

	expr := p.parseExpression()
	p.expect(TOKEN_RPAREN)
	return &ParenExpr{Expr: expr}
}
