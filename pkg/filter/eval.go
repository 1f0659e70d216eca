package filter

import (
	"fmt"
	"strings"

	"github.com/hyperjump/naan/pkg/models"
)

// Eval evaluates expr against metadata. A comparison whose key is absent is false.
func Eval(expr Expr, md models.Metadata) (bool, error) {
	switch e := expr.(type) {
	case *Comparison:
		if e.LiteralKey {
			return false, nil
		}
		have, ok := md[e.Key]
		if !ok {
			return false, nil
		}
		return compare(e.Op, have, e.Value)
	case *And:
		l, err := Eval(e.Left, md)
		if err != nil || !l {
			return false, err
		}
		return Eval(e.Right, md)
	case *Or:
		l, err := Eval(e.Left, md)
		if err != nil || l {
			return l, err
		}
		return Eval(e.Right, md)
	case *Not:
		v, err := Eval(e.Expr, md)
		if err != nil {
			return false, err
		}
		return !v, nil
	case nil:
		return false, fmt.Errorf("filter: nil expression")
	}
	return false, fmt.Errorf("filter: unsupported expression node %T", expr)
}

// Matches parses input and evaluates it against md.
func Matches(input string, md models.Metadata) (bool, error) {
	expr, err := Parse(input)
	if err != nil {
		return false, err
	}
	return Eval(expr, md)
}

// compare applies op with the semantics of have's type: numbers compare numerically across
// int and float, strings lexicographically, bools only for equality. Values of different
// types are never equal and never ordered.
func compare(op Op, have, want any) (bool, error) {
	if !op.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op))
	}
	h, err := models.NormalizeValue(have)
	if err != nil {
		return mismatch(op), nil
	}
	w, err := models.NormalizeValue(want)
	if err != nil {
		return mismatch(op), nil
	}

	switch hv := h.(type) {
	case int64:
		switch wv := w.(type) {
		case int64:
			return ordered(op, cmpInt(hv, wv)), nil
		case float64:
			return compareFloat(op, float64(hv), wv), nil
		}
	case float64:
		switch wv := w.(type) {
		case int64:
			return compareFloat(op, hv, float64(wv)), nil
		case float64:
			return compareFloat(op, hv, wv), nil
		}
	case string:
		if wv, ok := w.(string); ok {
			return ordered(op, strings.Compare(hv, wv)), nil
		}
	case bool:
		if wv, ok := w.(bool); ok {
			switch op {
			case OpEq:
				return hv == wv, nil
			case OpNe:
				return hv != wv, nil
			}
			return false, nil
		}
	}
	return mismatch(op), nil
}

func mismatch(op Op) bool { return op == OpNe }

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareFloat uses the native operators so NaN compares unequal to everything.
func compareFloat(op Op, a, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpGt:
		return a > b
	case OpLt:
		return a < b
	case OpGe:
		return a >= b
	case OpLe:
		return a <= b
	}
	return false
}

func ordered(op Op, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpGt:
		return c > 0
	case OpLt:
		return c < 0
	case OpGe:
		return c >= 0
	case OpLe:
		return c <= 0
	}
	return false
}
