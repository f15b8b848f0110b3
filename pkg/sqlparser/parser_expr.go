package sqlparser

// Expression parsing with a precedence-climbing scheme.

const (
	precLowest     = 0
	precOr         = 1
	precAnd        = 2
	precNot        = 3
	precComparison = 4
	precAddition   = 5
	precMultiply   = 6
	precUnary      = 7
	precPostfix    = 8
)

// tokenPrecedence returns the binding power of an infix or postfix token.
func (p *Parser) tokenPrecedence(tok Token) int {
	switch tok.Type {
	case TOKEN_OR:
		return precOr
	case TOKEN_AND:
		return precAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE,
		TOKEN_IS, TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_ILIKE, TOKEN_NOT:
		return precComparison
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_DPIPE:
		return precAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT:
		return precMultiply
	case TOKEN_DCOLON:
		return precPostfix
	default:
		return precLowest
	}
}

// parseExpression parses an expression at the lowest precedence.
func (p *Parser) parseExpression() Expr {
	return p.parseExprPrec(precLowest)
}

// parseExprPrec parses an expression with a minimum binding power.
func (p *Parser) parseExprPrec(minPrec int) Expr {
	left := p.parsePrefixExpr()

	for {
		prec := p.tokenPrecedence(p.token)
		if prec <= minPrec {
			break
		}
		left = p.parseInfixExpr(left, prec)
	}

	return left
}

// parsePrefixExpr parses a prefix expression or a primary.
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		p.nextToken()
		operand := p.parseExprPrec(precNot)
		return &UnaryExpr{Op: TOKEN_NOT, Expr: operand}
	case TOKEN_MINUS:
		p.nextToken()
		operand := p.parseExprPrec(precUnary)
		return &UnaryExpr{Op: TOKEN_MINUS, Expr: operand}
	case TOKEN_PLUS:
		p.nextToken()
		operand := p.parseExprPrec(precUnary)
		return &UnaryExpr{Op: TOKEN_PLUS, Expr: operand}
	default:
		return p.parsePrimary()
	}
}

// parseInfixExpr parses the tail of an infix expression given its left side.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case TOKEN_IS:
		return p.parseIsExpr(left)
	case TOKEN_IN:
		return p.parseInExpr(left, false)
	case TOKEN_BETWEEN:
		return p.parseBetweenExpr(left, false)
	case TOKEN_LIKE, TOKEN_ILIKE:
		return p.parseLikeExpr(left, false)
	case TOKEN_NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE
		switch p.peek.Type {
		case TOKEN_IN:
			p.nextToken()
			return p.parseInExpr(left, true)
		case TOKEN_BETWEEN:
			p.nextToken()
			return p.parseBetweenExpr(left, true)
		case TOKEN_LIKE, TOKEN_ILIKE:
			p.nextToken()
			return p.parseLikeExpr(left, true)
		default:
			p.addError("unexpected NOT in expression")
			p.nextToken()
			return left
		}
	case TOKEN_DCOLON:
		p.nextToken()
		typeName := p.parseTypeName()
		return &CastExpr{Expr: left, TypeName: typeName}
	default:
		op := p.token.Type
		p.nextToken()
		right := p.parseExprPrec(prec)
		return &BinaryExpr{Left: left, Op: op, Right: right}
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE|FALSE.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.expect(TOKEN_IS)

	not := p.match(TOKEN_NOT)

	switch p.token.Type {
	case TOKEN_NULL:
		p.nextToken()
		return &IsNullExpr{Expr: left, Not: not}
	case TOKEN_TRUE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: not, Value: true}
	case TOKEN_FALSE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: not, Value: false}
	default:
		p.addError("expected NULL, TRUE, or FALSE after IS")
		return left
	}
}

// parseInExpr parses IN (values) or IN (subquery).
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	p.expect(TOKEN_IN)
	in := &InExpr{Expr: left, Not: not}

	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
		in.Query = p.parseStatement()
	} else {
		for {
			expr := p.parseExpression()
			in.Values = append(in.Values, expr)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	p.expect(TOKEN_RPAREN)
	return in
}

// parseBetweenExpr parses BETWEEN low AND high.
// The bounds parse above AND precedence so the separator is not consumed.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	p.expect(TOKEN_BETWEEN)

	low := p.parseExprPrec(precComparison)
	p.expect(TOKEN_AND)
	high := p.parseExprPrec(precComparison)

	return &BetweenExpr{Expr: left, Not: not, Low: low, High: high}
}

// parseLikeExpr parses LIKE or ILIKE.
func (p *Parser) parseLikeExpr(left Expr, not bool) Expr {
	op := p.token.Type
	p.nextToken()

	pattern := p.parseExprPrec(precComparison)

	return &LikeExpr{Expr: left, Not: not, Op: op, Pattern: pattern}
}
