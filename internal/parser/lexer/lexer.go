package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

type TokenType int

const (
	// Special
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENTIFIER // table_name, column_name, bare values
	STRING     // 'value' or "value"
	NUMBER     // 123, -4, 1.23

	// Keywords
	CREATE
	DROP
	TABLE
	USER
	IDENTIFIED
	BY
	INSERT
	INTO
	VALUES
	SELECT
	FROM
	WHERE
	BEGIN
	END
	TRANSACTION
	COMMIT
	ROLLBACK

	// Operators & Punctuation
	ASTERISK     // *
	COMMA        // ,
	PAREN_OPEN   // (
	PAREN_CLOSE  // )
	EQUALS       // =
	LESS_THAN    // <
	GREATER_THAN // >
	SEMICOLON    // ;
)

var keywords = map[string]TokenType{
	"CREATE":      CREATE,
	"DROP":        DROP,
	"TABLE":       TABLE,
	"USER":        USER,
	"IDENTIFIED":  IDENTIFIED,
	"BY":          BY,
	"INSERT":      INSERT,
	"INTO":        INTO,
	"VALUES":      VALUES,
	"SELECT":      SELECT,
	"FROM":        FROM,
	"WHERE":       WHERE,
	"BEGIN":       BEGIN,
	"END":         END,
	"TRANSACTION": TRANSACTION,
	"COMMIT":      COMMIT,
	"ROLLBACK":    ROLLBACK,
}

var names = map[TokenType]string{
	ILLEGAL:      "ILLEGAL",
	EOF:          "EOF",
	IDENTIFIER:   "IDENTIFIER",
	STRING:       "STRING",
	NUMBER:       "NUMBER",
	ASTERISK:     "*",
	COMMA:        ",",
	PAREN_OPEN:   "(",
	PAREN_CLOSE:  ")",
	EQUALS:       "=",
	LESS_THAN:    "<",
	GREATER_THAN: ">",
	SEMICOLON:    ";",
}

func init() {
	for kw, t := range keywords {
		names[t] = kw
	}
}

func (t TokenType) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word
func (t TokenType) IsKeyword() bool {
	return t >= CREATE && t <= ROLLBACK
}

// IsComparison reports whether t is a comparison operator
func (t TokenType) IsComparison() bool {
	return t == EQUALS || t == LESS_THAN || t == GREATER_THAN
}

// Token is a lexeme. Pos and End are byte offsets into the input, so callers
// can recover the exact source text a run of tokens came from.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Pos     int
	End     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column, Pos: l.position}

	if l.atEnd() {
		tok.Type = EOF
		tok.End = l.position
		return tok
	}

	switch l.ch {
	case '*':
		tok.Type = ASTERISK
	case ',':
		tok.Type = COMMA
	case '(':
		tok.Type = PAREN_OPEN
	case ')':
		tok.Type = PAREN_CLOSE
	case '=':
		tok.Type = EQUALS
	case '<':
		tok.Type = LESS_THAN
	case '>':
		tok.Type = GREATER_THAN
	case ';':
		tok.Type = SEMICOLON
	case '\'', '"':
		lit, ok := l.readString()
		if !ok {
			tok.Type = ILLEGAL
			tok.Literal = l.input[tok.Pos:l.position]
			tok.End = l.position
			return tok
		}
		tok.Type = STRING
		tok.Literal = lit
		tok.End = l.position
		return tok
	default:
		tok.Literal = l.readWord()
		tok.Type = classify(tok.Literal)
		tok.End = l.position
		return tok
	}

	tok.Literal = string(l.ch)
	l.readChar()
	tok.End = l.position
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
}

// readWord consumes a run of characters up to the next delimiter
func (l *Lexer) readWord() string {
	position := l.position
	for !l.atEnd() && !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString consumes a quoted literal. A doubled quote inside the literal
// stands for one quote character.
func (l *Lexer) readString() (string, bool) {
	quote := l.ch
	var sb strings.Builder
	for {
		l.readChar()
		if l.atEnd() {
			return sb.String(), false
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				continue
			}
			l.readChar()
			return sb.String(), true
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		sb.WriteByte(l.ch)
	}
}

func classify(word string) TokenType {
	if tok, ok := keywords[strings.ToUpper(word)]; ok {
		return tok
	}
	if isNumber(word) {
		return NUMBER
	}
	return IDENTIFIER
}

func isNumber(word string) bool {
	if word == "" || word == "-" {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil && (isDigit(word[0]) || word[0] == '-' && len(word) > 1 && isDigit(word[1]))
}

func isDelimiter(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', ',', '(', ')', ';', '<', '>', '=', '*', '\'', '"':
		return true
	}
	return false
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize lexes the entire input at once. The EOF token is not included.
func Tokenize(input string) ([]Token, error) {
	return tokenize(input, false)
}

// TokenizeStatement lexes a statement but stops after the WHERE keyword of a
// SELECT. The predicate that follows is raw text for the filter engine.
func TokenizeStatement(input string) ([]Token, error) {
	return tokenize(input, true)
}

func tokenize(input string, stopAtWhere bool) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		if stopAtWhere && tok.Type == WHERE && len(tokens) > 0 && tokens[0].Type == SELECT {
			tokens = append(tokens, tok)
			break
		}
		if tok.Type == ILLEGAL {
			return nil, fmt.Errorf("unterminated string at line %d, col %d: %s", tok.Line, tok.Column, tok.Literal)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
