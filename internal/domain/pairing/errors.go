package pairing

import "errors"

// ErrInvalidPair reports a malformed pairing sequence.
var ErrInvalidPair = errors.New("invalid pair")
