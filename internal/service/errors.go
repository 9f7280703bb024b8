package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain error kinds. Handlers match these with errors.Is to pick the HTTP
// status; LineError carries the offending line so rejections can point at it.
var (
	ErrInvalidHeader     = errors.New("missing required note field")
	ErrEmptyLines        = errors.New("note must contain at least one line item")
	ErrInvalidQuantity   = errors.New("stock out quantity must be a positive number")
	ErrUnknownProduct    = errors.New("invalid product selection")
	ErrInsufficientStock = errors.New("insufficient stock remaining")
	ErrInvalidStatus     = errors.New("unknown note status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("record was modified concurrently")
)

// LineError identifies the first line item that failed validation or, inside
// the transaction, the decrement that would have driven stock negative.
type LineError struct {
	Line      int
	ProductID uuid.UUID
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (product %s): %v", e.Line, e.ProductID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
