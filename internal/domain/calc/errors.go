package calc

import "errors"

var (
	// ErrUnsupportedOp is returned for an operation code other than add, sub, mul or div.
	ErrUnsupportedOp = errors.New("unsupported operation")
	// ErrDivisionByZero is returned when dividing by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidNumber is returned when an operand is not a number.
	ErrInvalidNumber = errors.New("could not convert string to float")
	// ErrNotFinite is returned when an operand or the result is infinite or NaN.
	ErrNotFinite = errors.New("not a finite number")
)
