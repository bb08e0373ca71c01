// Package calc performs the single arithmetic operation behind the calculator
// endpoint.
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op is an operation code.
type Op string

const (
	Add Op = "add"
	Sub Op = "sub"
	Mul Op = "mul"
	Div Op = "div"
)

var symbols = map[Op]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
}

// Ops lists the supported operation codes.
func Ops() []Op { return []Op{Add, Sub, Mul, Div} }

// Symbol returns the infix symbol of op.
func (op Op) Symbol() (string, bool) {
	s, ok := symbols[op]
	return s, ok
}

// Result is a computed value with its printable expression.
type Result struct {
	Value      float64 `json:"result"`
	Expression string  `json:"expression"`
}

// ParseOperand parses a decimal operand. Surrounding whitespace is ignored.
func ParseOperand(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("operand %q: %w", raw, ErrNotFinite)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidNumber, raw)
	}
	if !finite(f) {
		return 0, fmt.Errorf("operand %q: %w", raw, ErrNotFinite)
	}
	return f, nil
}

// Compute applies op to a and b.
func Compute(a, b float64, op Op) (Result, error) {
	sym, ok := op.Symbol()
	if !ok {
		return Result{}, ErrUnsupportedOp
	}
	if !finite(a) || !finite(b) {
		return Result{}, fmt.Errorf("operand: %w", ErrNotFinite)
	}
	var v float64
	switch op {
	case Add:
		v = a + b
	case Sub:
		v = a - b
	case Mul:
		v = a * b
	case Div:
		if b == 0 {
			return Result{}, ErrDivisionByZero
		}
		v = a / b
	}
	if !finite(v) {
		return Result{}, fmt.Errorf("result: %w", ErrNotFinite)
	}
	return Result{
		Value:      v,
		Expression: FormatFloat(a) + " " + sym + " " + FormatFloat(b),
	}, nil
}

// FormatFloat prints f the way Python's repr does: the shortest round-trip
// digits, fixed notation with a trailing ".0" for integral values when the
// decimal exponent is in [-4, 16), scientific notation otherwise.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	exp := 0
	if f != 0 {
		sci := strconv.FormatFloat(f, 'e', -1, 64)
		e := sci[strings.IndexByte(sci, 'e')+1:]
		exp, _ = strconv.Atoi(e)
	}
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
