package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is matched by every *SyntaxError.
	ErrSyntax = errors.New("filter syntax error")
	// ErrUnknownOperator is returned when evaluation meets an operator outside the grammar.
	ErrUnknownOperator = errors.New("unknown filter operator")
)

// SyntaxError describes malformed filter input. Offset is the byte offset into the input,
// Column the 1-based character column.
type SyntaxError struct {
	Input  string
	Offset int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter: %s at column %d", e.Msg, e.Column)
}

// Is makes errors.Is(err, ErrSyntax) true.
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

func newSyntaxError(input string, offset int, format string, args ...any) *SyntaxError {
	if offset > len(input) {
		offset = len(input)
	}
	return &SyntaxError{
		Input:  input,
		Offset: offset,
		Column: len([]rune(input[:offset])) + 1,
		Msg:    fmt.Sprintf(format, args...),
	}
}
