package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotImplemented is returned by operations this provider recognizes but
// intentionally does not support.
var ErrNotImplemented = errors.New("operation not implemented")

// ErrInvalidFilter is returned when a filter combines a block hash with a
// block range.
var ErrInvalidFilter = errors.New("filter cannot combine blockHash with fromBlock/toBlock")

// InvalidBlockTagError reports a block reference that matched no recognized shape.
type InvalidBlockTagError struct {
	Value any
}

func (e *InvalidBlockTagError) Error() string {
	return fmt.Sprintf("invalid block tag: %v", e.Value)
}

// HashMismatchError reports a backend that acknowledged a raw transaction
// broadcast under a different hash than the one computed locally. This signals
// a non-compliant or tampering backend.
type HashMismatchError struct {
	Local    common.Hash
	Reported common.Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("backend reported transaction hash %s, locally computed %s", e.Reported, e.Local)
}

// NonStringEventError reports an event-subscription operation invoked with a
// non-string event descriptor.
type NonStringEventError struct {
	Event any
}

func (e *NonStringEventError) Error() string {
	return fmt.Sprintf("event name must be a string, got %T", e.Event)
}
