package parser

import (
	"strings"

	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/parser/ast"
	"github.com/leengari/flatsql/internal/parser/lexer"
)

type Parser struct {
	input   string
	tokens  []lexer.Token
	curPos  int
	curTok  lexer.Token
	peekTok lexer.Token
}

// Parse tokenizes and parses a single statement
func Parse(input string) (ast.Statement, error) {
	tokens, err := lexer.TokenizeStatement(input)
	if err != nil {
		return nil, dberrors.Syntax("%v", err)
	}
	return New(input, tokens).Parse()
}

// New creates a parser over tokens lexed from input. The input is kept so
// values and WHERE clauses can be taken verbatim from the source text.
func New(input string, tokens []lexer.Token) *Parser {
	p := &Parser{input: input, tokens: tokens, curPos: 0}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = lexer.Token{Type: lexer.EOF, Pos: len(p.input), End: len(p.input)}
	}
}

func (p *Parser) Parse() (ast.Statement, error) {
	switch p.curTok.Type {
	case lexer.BEGIN:
		return p.parseControl(lexer.TRANSACTION, &ast.BeginStatement{})
	case lexer.END:
		return p.parseControl(lexer.TRANSACTION, &ast.EndStatement{})
	case lexer.COMMIT:
		return p.parseControl(lexer.EOF, &ast.CommitStatement{})
	case lexer.ROLLBACK:
		return p.parseControl(lexer.EOF, &ast.RollbackStatement{})
	case lexer.CREATE:
		switch p.peekTok.Type {
		case lexer.TABLE:
			return p.parseCreateTable()
		case lexer.USER:
			return p.parseCreateUser()
		}
	case lexer.DROP:
		switch p.peekTok.Type {
		case lexer.TABLE:
			return p.parseDropTable()
		case lexer.USER:
			return p.parseDropUser()
		}
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.SELECT:
		return p.parseSelect()
	}
	return nil, dberrors.Syntax("cannot parse statement")
}

// parseControl handles BEGIN/END TRANSACTION, COMMIT and ROLLBACK.
// second is the keyword required after the verb, EOF when there is none.
func (p *Parser) parseControl(second lexer.TokenType, stmt ast.Statement) (ast.Statement, error) {
	p.nextToken()
	if second != lexer.EOF {
		if err := p.expect(second); err != nil {
			return nil, err
		}
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// CREATE TABLE name ( col [type...] [, col [type...]]* );
func (p *Parser) parseCreateTable() (*ast.CreateTableStatement, error) {
	stmt := &ast.CreateTableStatement{}

	// CREATE TABLE
	p.nextToken()
	p.nextToken()

	name, err := p.parseName("table name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if err := p.expect(lexer.PAREN_OPEN); err != nil {
		return nil, err
	}

	for {
		if !isWordToken(p.curTok) {
			return nil, p.unexpected("column name")
		}
		stmt.Columns = append(stmt.Columns, p.curTok.Literal)
		p.nextToken()

		// Discard type keywords up to the next top-level comma or the closing paren
		depth := 0
	segment:
		for {
			switch p.curTok.Type {
			case lexer.EOF, lexer.SEMICOLON:
				return nil, p.unexpected(")")
			case lexer.PAREN_OPEN:
				depth++
			case lexer.PAREN_CLOSE:
				if depth == 0 {
					break segment
				}
				depth--
			case lexer.COMMA:
				if depth == 0 {
					break segment
				}
			}
			p.nextToken()
		}

		if p.curTok.Type == lexer.PAREN_CLOSE {
			p.nextToken()
			break
		}
		p.nextToken() // comma
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// CREATE USER name IDENTIFIED BY password;
func (p *Parser) parseCreateUser() (*ast.CreateUserStatement, error) {
	// CREATE USER
	p.nextToken()
	p.nextToken()

	name, err := p.parseName("user name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.IDENTIFIED); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.BY); err != nil {
		return nil, err
	}
	password, err := p.parseName("password")
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return &ast.CreateUserStatement{Name: name, Password: password}, nil
}

// DROP TABLE name;
func (p *Parser) parseDropTable() (*ast.DropTableStatement, error) {
	p.nextToken()
	p.nextToken()

	name, err := p.parseName("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return &ast.DropTableStatement{Name: name}, nil
}

// DROP USER name;
func (p *Parser) parseDropUser() (*ast.DropUserStatement, error) {
	p.nextToken()
	p.nextToken()

	name, err := p.parseName("user name")
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return &ast.DropUserStatement{Name: name}, nil
}

// INSERT INTO table VALUES (v, ...)[, (v, ...)]*;
func (p *Parser) parseInsert() (*ast.InsertStatement, error) {
	stmt := &ast.InsertStatement{}

	// INSERT
	p.nextToken()

	if err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}

	name, err := p.parseName("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = name

	if err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}

	for {
		row, err := p.parseValueGroup()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)

		if p.curTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseValueGroup reads one parenthesized, comma-separated list of values
func (p *Parser) parseValueGroup() ([]string, error) {
	if err := p.expect(lexer.PAREN_OPEN); err != nil {
		return nil, err
	}
	if p.curTok.Type == lexer.PAREN_CLOSE {
		return nil, dberrors.Syntax("empty value list at line %d, col %d", p.curTok.Line, p.curTok.Column)
	}

	var values []string
	for {
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, val)

		if p.curTok.Type == lexer.PAREN_CLOSE {
			p.nextToken()
			return values, nil
		}
		p.nextToken() // comma
	}
}

// parseValue reads the tokens of one value up to the next comma or closing
// paren. A lone quoted literal yields its unquoted content; anything else is
// the trimmed source text with quote characters removed.
func (p *Parser) parseValue() (string, error) {
	var run []lexer.Token
	for {
		switch p.curTok.Type {
		case lexer.COMMA, lexer.PAREN_CLOSE:
			return p.valueText(run), nil
		case lexer.EOF, lexer.SEMICOLON, lexer.PAREN_OPEN:
			return "", p.unexpected(", or )")
		}
		run = append(run, p.curTok)
		p.nextToken()
	}
}

func (p *Parser) valueText(run []lexer.Token) string {
	if len(run) == 0 {
		return ""
	}
	if len(run) == 1 && run[0].Type == lexer.STRING {
		return run[0].Literal
	}
	raw := p.input[run[0].Pos:run[len(run)-1].End]
	raw = strings.NewReplacer(`"`, "", "'", "").Replace(raw)
	return strings.TrimSpace(raw)
}

// SELECT {* | col, ...} FROM table [WHERE predicate];
func (p *Parser) parseSelect() (*ast.SelectStatement, error) {
	stmt := &ast.SelectStatement{}

	// SELECT
	p.nextToken()

	if p.curTok.Type == lexer.ASTERISK {
		p.nextToken()
	} else {
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	if err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}

	name, err := p.parseName("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = name

	if p.curTok.Type == lexer.WHERE {
		// The predicate is not lexed; malformed conditions are the filter's to report
		rest := strings.TrimSpace(p.input[p.curTok.End:])
		if !strings.HasSuffix(rest, ";") {
			return nil, dberrors.Syntax("missing terminator")
		}
		stmt.HasWhere = true
		stmt.Where = strings.TrimSpace(strings.TrimSuffix(rest, ";"))
		return stmt, nil
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseColumnList() ([]string, error) {
	var cols []string
	for {
		if p.curTok.Type.IsComparison() {
			return nil, comparisonOutsideWhere(p.curTok)
		}
		if !isWordToken(p.curTok) || p.curTok.Type == lexer.FROM || p.curTok.Type == lexer.WHERE {
			return nil, p.unexpected("column name")
		}
		cols = append(cols, p.curTok.Literal)
		p.nextToken()

		switch {
		case p.curTok.Type == lexer.COMMA:
			p.nextToken()
		case p.curTok.Type == lexer.FROM:
			return cols, nil
		case p.curTok.Type.IsComparison():
			return nil, comparisonOutsideWhere(p.curTok)
		default:
			return nil, p.unexpected("FROM")
		}
	}
}

func comparisonOutsideWhere(tok lexer.Token) error {
	return dberrors.Predicate("comparison operator %s outside WHERE clause at line %d, col %d",
		tok.Literal, tok.Line, tok.Column)
}

// parseName reads a table, column, user name or password: a single word of
// letters, digits and underscores
func (p *Parser) parseName(what string) (string, error) {
	if !isWordToken(p.curTok) {
		return "", p.unexpected(what)
	}
	name := p.curTok.Literal
	p.nextToken()
	return name, nil
}

func (p *Parser) expect(t lexer.TokenType) error {
	if p.curTok.Type != t {
		return p.unexpected(t.String())
	}
	p.nextToken()
	return nil
}

// expectEnd requires the terminator as the final token
func (p *Parser) expectEnd() error {
	if p.curTok.Type != lexer.SEMICOLON {
		if p.curTok.Type == lexer.EOF {
			return dberrors.Syntax("missing terminator")
		}
		return p.unexpected(";")
	}
	p.nextToken()
	if p.curTok.Type != lexer.EOF {
		return p.unexpected("end of statement")
	}
	return nil
}

func (p *Parser) unexpected(want string) error {
	if p.curTok.Type == lexer.EOF {
		return dberrors.Syntax("expected %s, got end of input", want)
	}
	return dberrors.Syntax("expected %s, got %q at line %d, col %d",
		want, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
}
