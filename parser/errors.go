package parser

import (
	"errors"
	"fmt"
)

// ErrUnbalancedTokens is returned when a close token has no matching open
// token.
var ErrUnbalancedTokens = errors.New("unbalanced close token")

// UnsupportedTokenError is returned when the token stream contains a token
// type with no handler. No partial document is returned with it.
type UnsupportedTokenError struct {
	Type string
}

func (e *UnsupportedTokenError) Error() string {
	return fmt.Sprintf("token type %q not supported", e.Type)
}

// UnrecognizedSpecError is returned by New when a token spec does not name
// exactly one of a block, a node or a mark.
type UnrecognizedSpecError struct {
	Type string
}

func (e *UnrecognizedSpecError) Error() string {
	return fmt.Sprintf("unrecognized parsing spec for token %q: exactly one of block, node or mark must be set", e.Type)
}
