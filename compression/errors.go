package compression

import (
	"errors"
	"fmt"
)

var (
	// ErrMisalignedPayload reports a bit count that is not a whole number
	// of bytes after padding. Hitting it means the encoder itself is
	// broken, not the input.
	ErrMisalignedPayload = errors.New("compression: payload bits not byte aligned")

	// ErrTruncatedPayload reports a payload that ends in the middle of a
	// code, is missing its padding header, or whose header describes more
	// padding than the payload contains.
	ErrTruncatedPayload = errors.New("compression: truncated or corrupt payload")
)

// UnknownSymbolError reports an input symbol with no entry in the code table.
type UnknownSymbolError struct {
	Symbol rune
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("compression: symbol %q has no code", e.Symbol)
}
