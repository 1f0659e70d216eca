package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGt Op = ">"
	OpLt Op = "<"
	OpGe Op = ">="
	OpLe Op = "<="
)

// Valid reports whether op is one of the supported comparison operators.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe:
		return true
	}
	return false
}

// Expr is a node of a parsed filter expression: *Comparison, *And, *Or or *Not.
type Expr interface {
	fmt.Stringer
	expr()
}

// Comparison tests a metadata value against a literal (int64, float64, string or bool).
type Comparison struct {
	Key   string
	Op    Op
	Value any
	// LiteralKey marks a number or bool on the left of the operator. Metadata keys are
	// strings, so such a key is never present and the comparison is false.
	LiteralKey bool
}

// And is true when both sides are true.
type And struct {
	Left, Right Expr
}

// Or is true when either side is true.
type Or struct {
	Left, Right Expr
}

// Not negates its operand.
type Not struct {
	Expr Expr
}

func (*Comparison) expr() {}
func (*And) expr()        {}
func (*Or) expr()         {}
func (*Not) expr()        {}

func (c *Comparison) String() string {
	key := c.Key
	if !c.LiteralKey && !isIdentifier(key) {
		key = formatLiteral(key)
	}
	return key + " " + string(c.Op) + " " + formatLiteral(c.Value)
}

// isIdentifier reports whether s lexes as a bare metadata key.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	switch strings.ToLower(s) {
	case "and", "or", "not", "true", "false":
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (a *And) String() string { return "(" + a.Left.String() + " and " + a.Right.String() + ")" }

func (o *Or) String() string { return "(" + o.Left.String() + " or " + o.Right.String() + ")" }

func (n *Not) String() string { return "not " + n.Expr.String() }

func formatLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(x) + "'"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
