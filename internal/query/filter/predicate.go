package filter

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
)

// Operator is a WHERE comparison operator
type Operator string

const (
	OpLess    Operator = "<"
	OpGreater Operator = ">"
	OpEqual   Operator = "="
)

// Predicate is a single column/operator/literal comparison
type Predicate struct {
	Column   string
	Operator Operator
	Literal  string
}

// ParsePredicate splits a WHERE clause into exactly three whitespace-separated
// tokens: column, operator, literal. A quoted literal counts as one token and
// loses its quotes.
func ParsePredicate(text string) (*Predicate, error) {
	tokens, err := splitPredicate(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 3 {
		return nil, dberrors.Predicate("invalid condition format: %q (expected <column> <operator> <value>)", strings.TrimSpace(text))
	}

	op := Operator(tokens[1])
	switch op {
	case OpLess, OpGreater, OpEqual:
	default:
		return nil, dberrors.Predicate("invalid operator: %s", tokens[1])
	}

	return &Predicate{Column: tokens[0], Operator: op, Literal: tokens[2]}, nil
}

func splitPredicate(text string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		inTok  bool
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					cur.WriteRune(r)
					i++
					continue
				}
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inTok = true
		case unicode.IsSpace(r):
			if inTok {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	if quote != 0 {
		return nil, dberrors.Predicate("unterminated quoted value in condition: %q", strings.TrimSpace(text))
	}
	if inTok {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// Bind resolves the predicate column against a header
func (p *Predicate) Bind(table *data.Table) (*BoundPredicate, error) {
	idx := IndexOf(table.Header, p.Column)
	if idx < 0 {
		return nil, dberrors.Predicate("column not found: %s", p.Column)
	}
	return &BoundPredicate{Predicate: *p, index: idx}, nil
}

// BoundPredicate is a predicate whose column position is known
type BoundPredicate struct {
	Predicate
	index int
}

// Match evaluates the predicate against row
func (b *BoundPredicate) Match(row data.Record) bool {
	cmp := Compare(strings.TrimSpace(row.Field(b.index)), strings.TrimSpace(b.Literal))
	switch b.Operator {
	case OpLess:
		return cmp < 0
	case OpGreater:
		return cmp > 0
	default:
		return cmp == 0
	}
}

// Compare orders two field values: numerically when both parse as integers,
// otherwise by byte-wise string comparison
func Compare(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
