// Package sqlparser provides a recursive descent parser for the SELECT
// subset of SQL found in data transformation models.
//
// # Parser Architecture
//
// The parser is split across multiple files:
//
//   - parser.go (this file): Public API, Parser struct, token helpers
//   - parser_stmt.go: Statement parsing (WITH, SELECT body, SELECT list)
//   - parser_from.go: FROM clause parsing (table refs, JOINs)
//   - parser_expr.go: Expression precedence parsing
//   - parser_primary.go: Primary expressions (literals, column refs, function calls)
//   - parser_special.go: CASE, CAST, EXISTS, subqueries, window specs
//
// # Usage
//
//	stmt, err := sqlparser.Parse("SELECT a, b FROM t")
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
//	statement     → [WITH cte_list] select_body
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL] select_body]
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [QUALIFY expr] [ORDER BY order_list] [LIMIT expr] [OFFSET expr]
package sqlparser

import "fmt"

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	peek2  Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the SQL and returns the AST.
func Parse(sql string) (*SelectStmt, error) {
	p := NewParser(sql)
	if !p.check(TOKEN_SELECT) && !p.check(TOKEN_WITH) {
		return nil, &ParseError{Pos: p.token.Pos, Message: "statement is not a SELECT"}
	}
	stmt := p.parseStatement()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) checkPeek2(t TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError("unexpected token %s, expected %s", p.token.Type, t)
	return false
}

func (p *Parser) addError(format string, args ...any) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// ---------- Keyword Helpers ----------

// isKeyword returns true if the token is a reserved keyword that can't be used as an alias.
func (p *Parser) isKeyword(tok Token) bool {
	switch tok.Type {
	case TOKEN_FROM, TOKEN_WHERE, TOKEN_GROUP, TOKEN_HAVING, TOKEN_ORDER,
		TOKEN_LIMIT, TOKEN_OFFSET, TOKEN_UNION, TOKEN_INTERSECT, TOKEN_EXCEPT,
		TOKEN_LEFT, TOKEN_RIGHT, TOKEN_INNER, TOKEN_OUTER, TOKEN_FULL,
		TOKEN_CROSS, TOKEN_JOIN, TOKEN_ON, TOKEN_USING, TOKEN_QUALIFY:
		return true
	}
	return false
}

// isJoinKeyword returns true if the token is a JOIN-related keyword.
func (p *Parser) isJoinKeyword(tok Token) bool {
	switch tok.Type {
	case TOKEN_JOIN, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_INNER, TOKEN_OUTER,
		TOKEN_FULL, TOKEN_CROSS, TOKEN_ON, TOKEN_USING, TOKEN_LATERAL:
		return true
	}
	return false
}

// isClauseKeyword returns true if the token starts a new clause.
func (p *Parser) isClauseKeyword(tok Token) bool {
	switch tok.Type {
	case TOKEN_WHERE, TOKEN_GROUP, TOKEN_HAVING, TOKEN_ORDER, TOKEN_LIMIT,
		TOKEN_OFFSET, TOKEN_UNION, TOKEN_INTERSECT, TOKEN_EXCEPT, TOKEN_QUALIFY:
		return true
	}
	return false
}
