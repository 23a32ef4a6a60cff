package parser

import (
	"strings"

	"github.com/leengari/flatsql/internal/parser/ast"
	"github.com/leengari/flatsql/internal/parser/lexer"
)

// isWordToken reports whether tok can serve as a name. Keywords are allowed
// so that columns such as "user" or "end" stay usable.
func isWordToken(tok lexer.Token) bool {
	if tok.Type != lexer.IDENTIFIER && tok.Type != lexer.NUMBER && !tok.Type.IsKeyword() {
		return false
	}
	return isWord(tok.Literal)
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

var controlVerbs = []struct {
	words []string
	stmt  func() ast.Statement
}{
	{[]string{"begin", "transaction"}, func() ast.Statement { return &ast.BeginStatement{} }},
	{[]string{"end", "transaction"}, func() ast.Statement { return &ast.EndStatement{} }},
	{[]string{"commit"}, func() ast.Statement { return &ast.CommitStatement{} }},
	{[]string{"rollback"}, func() ast.Statement { return &ast.RollbackStatement{} }},
}

// MatchControl recognizes the transaction control verbs by their leading
// words, ignoring case and the terminator. Anything after the verb is
// ignored. The caller is responsible for checking the terminator.
func MatchControl(text string) (ast.Statement, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	fields := strings.Fields(strings.ToLower(text))

	for _, v := range controlVerbs {
		if len(fields) < len(v.words) {
			continue
		}
		matched := true
		for i, w := range v.words {
			if fields[i] != w {
				matched = false
				break
			}
		}
		if matched {
			return v.stmt(), true
		}
	}
	return nil, false
}
