package verify

import "errors"

var (
	ErrEmptySample  = errors.New("observed sample is empty")
	ErrInvalidCheck = errors.New("invalid check selection")
	ErrInvariant    = errors.New("arithmetic invariant violated")
)

func isInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}
