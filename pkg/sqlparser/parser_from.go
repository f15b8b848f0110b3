package sqlparser

// FROM clause parsing: table names, derived tables, lateral subqueries,
// and joins (including implicit comma joins).

// parseFromClause parses a FROM clause and its trailing joins.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{}
	from.Source = p.parseTableSource()

	for p.isJoinKeyword(p.token) || p.check(TOKEN_COMMA) {
		join := p.parseJoin()
		from.Joins = append(from.Joins, join)
	}

	return from
}

// parseJoin parses a single join clause.
func (p *Parser) parseJoin() *Join {
	join := &Join{}

	switch p.token.Type {
	case TOKEN_COMMA:
		p.nextToken()
		join.Type = JoinComma
	case TOKEN_CROSS:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		join.Type = JoinCross
	case TOKEN_INNER:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		join.Type = JoinInner
	case TOKEN_LEFT:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinLeft
	case TOKEN_RIGHT:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinRight
	case TOKEN_FULL:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinFull
	case TOKEN_JOIN:
		p.nextToken()
		join.Type = JoinInner
	default:
		p.addError("expected join keyword, got %s", p.token.Type)
		p.nextToken()
		return join
	}

	join.Right = p.parseTableSource()

	if p.match(TOKEN_ON) {
		join.Condition = p.parseExpression()
	} else if p.match(TOKEN_USING) {
		p.expect(TOKEN_LPAREN)
		for {
			if !p.check(TOKEN_IDENT) {
				p.addError("expected column name in USING clause")
				break
			}
			join.Using = append(join.Using, p.token.Literal)
			p.nextToken()
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
	}

	return join
}

// parseTableSource parses a table name, derived table, or lateral subquery.
func (p *Parser) parseTableSource() TableRef {
	if p.check(TOKEN_LATERAL) {
		p.nextToken()
		p.expect(TOKEN_LPAREN)
		stmt := p.parseStatement()
		p.expect(TOKEN_RPAREN)
		lt := &LateralTable{Select: stmt}
		lt.Alias = p.parseTableAlias()
		return lt
	}

	if p.check(TOKEN_LPAREN) {
		p.nextToken()
		stmt := p.parseStatement()
		p.expect(TOKEN_RPAREN)
		dt := &DerivedTable{Select: stmt}
		dt.Alias = p.parseTableAlias()
		return dt
	}

	return p.parseTableName()
}

// parseTableName parses a possibly qualified table name with optional alias.
func (p *Parser) parseTableName() *TableName {
	tn := &TableName{}

	if !p.check(TOKEN_IDENT) {
		p.addError("expected table name, got %s", p.token.Type)
		p.nextToken()
		return tn
	}

	parts := []string{p.token.Literal}
	p.nextToken()

	for p.check(TOKEN_DOT) && p.checkPeek(TOKEN_IDENT) {
		p.nextToken()
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	switch len(parts) {
	case 1:
		tn.Name = parts[0]
	case 2:
		tn.Schema = parts[0]
		tn.Name = parts[1]
	default:
		tn.Catalog = parts[0]
		tn.Schema = parts[1]
		tn.Name = parts[2]
	}

	tn.Alias = p.parseTableAlias()
	return tn
}

// parseTableAlias parses an optional table alias, with or without AS.
func (p *Parser) parseTableAlias() string {
	if p.match(TOKEN_AS) {
		if p.check(TOKEN_IDENT) {
			alias := p.token.Literal
			p.nextToken()
			return alias
		}
		p.addError("expected alias after AS")
		return ""
	}

	if p.check(TOKEN_IDENT) && !p.isKeyword(p.token) && !p.isJoinKeyword(p.token) && !p.isClauseKeyword(p.token) {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}

	return ""
}
