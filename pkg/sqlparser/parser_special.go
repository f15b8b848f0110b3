package sqlparser

import "strings"

// Special form parsing: CASE, CAST, EXISTS, type names, and window specs.

// parseCaseExpr parses a CASE expression, with or without an operand.
func (p *Parser) parseCaseExpr() Expr {
	p.expect(TOKEN_CASE)
	ce := &CaseExpr{}

	if !p.check(TOKEN_WHEN) {
		ce.Operand = p.parseExpression()
	}

	for p.match(TOKEN_WHEN) {
		var when WhenClause
		when.Condition = p.parseExpression()
		p.expect(TOKEN_THEN)
		when.Result = p.parseExpression()
		ce.Whens = append(ce.Whens, when)
	}

	if p.match(TOKEN_ELSE) {
		ce.Else = p.parseExpression()
	}

	p.expect(TOKEN_END)
	return ce
}

// parseCastExpr parses CAST(expr AS type).
func (p *Parser) parseCastExpr() Expr {
	p.expect(TOKEN_CAST)
	p.expect(TOKEN_LPAREN)

	expr := p.parseExpression()
	p.expect(TOKEN_AS)
	typeName := p.parseTypeName()

	p.expect(TOKEN_RPAREN)
	return &CastExpr{Expr: expr, TypeName: typeName}
}

// parseTypeName parses a type name such as INTEGER, VARCHAR(255), or
// DECIMAL(10, 2). Known two-word names like DOUBLE PRECISION are joined;
// a lone following identifier is left alone so aliases survive.
func (p *Parser) parseTypeName() string {
	if !p.check(TOKEN_IDENT) {
		p.addError("expected type name")
		return ""
	}

	name := p.token.Literal
	p.nextToken()

	if p.check(TOKEN_IDENT) && isTypeNameSuffix(p.token.Literal) {
		name += " " + p.token.Literal
		p.nextToken()
	}

	// Optional precision/scale arguments
	if p.check(TOKEN_LPAREN) {
		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteString("(")
		p.nextToken()
		for !p.check(TOKEN_RPAREN) && !p.check(TOKEN_EOF) {
			sb.WriteString(p.token.Literal)
			p.nextToken()
			if p.match(TOKEN_COMMA) {
				sb.WriteString(", ")
			}
		}
		p.expect(TOKEN_RPAREN)
		sb.WriteString(")")
		name = sb.String()
	}

	return name
}

// isTypeNameSuffix reports whether word continues a two-word type name.
func isTypeNameSuffix(word string) bool {
	switch strings.ToLower(word) {
	case "precision", "varying":
		return true
	}
	return false
}

// parseExistsExpr parses [NOT] EXISTS (subquery). NOT EXISTS arrives here
// through the prefix NOT path, so only EXISTS is handled directly.
func (p *Parser) parseExistsExpr() Expr {
	p.expect(TOKEN_EXISTS)
	p.expect(TOKEN_LPAREN)
	stmt := p.parseStatement()
	p.expect(TOKEN_RPAREN)
	return &ExistsExpr{Select: stmt}
}

// parseWindowSpec parses an OVER clause. PARTITION BY and ORDER BY are
// modeled; any frame specification is consumed up to the closing paren.
func (p *Parser) parseWindowSpec() *WindowSpec {
	p.expect(TOKEN_LPAREN)
	ws := &WindowSpec{}

	if p.check(TOKEN_PARTITION) && p.checkPeek(TOKEN_BY) {
		p.nextToken()
		p.nextToken()
		ws.PartitionBy = p.parseExpressionList()
	}

	if p.check(TOKEN_ORDER) && p.checkPeek(TOKEN_BY) {
		p.nextToken()
		p.nextToken()
		ws.OrderBy = p.parseOrderByList()
	}

	// Frame clauses (ROWS BETWEEN ... etc) carry no lineage information.
	depth := 0
	for !p.check(TOKEN_EOF) {
		if p.check(TOKEN_LPAREN) {
			depth++
		}
		if p.check(TOKEN_RPAREN) {
			if depth == 0 {
				break
			}
			depth--
		}
		p.nextToken()
	}

	p.expect(TOKEN_RPAREN)
	return ws
}
