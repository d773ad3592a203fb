package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

// Code classifies the outcome of a coordinator operation.
type Code string

const (
	CodeOK                Code = "ok"
	CodeNotFound          Code = "not_found"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeAlreadyProcessed  Code = "already_processed"
	CodeInvalidTransition Code = "invalid_transition"
	CodeCartEmpty         Code = "cart_empty"
	CodeInvalidQuantity   Code = "invalid_quantity"
	CodeFailed            Code = "failed"
)

// Error is an expected business outcome, or CodeFailed wrapping a storage error.
// Two *Error values match under errors.Is when their codes match.
type Error struct {
	Code       Code
	Message    string
	ProductID  int64
	LocationID int64
	Available  int
	Requested  int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock}
	ErrAlreadyProcessed  = &Error{Code: CodeAlreadyProcessed}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrCartEmpty         = &Error{Code: CodeCartEmpty}
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity}
	ErrFailed            = &Error{Code: CodeFailed}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func insufficient(e *inventory.InsufficientError) *Error {
	return &Error{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("product %d at location %d: available %d, requested %d", e.Key.ProductID, e.Key.LocationID, e.Available, e.Requested),
		ProductID:  e.Key.ProductID,
		LocationID: e.Key.LocationID,
		Available:  e.Available,
		Requested:  e.Requested,
	}
}

// classify maps domain sentinels onto coded errors. Anything it does not
// recognise is a persistence failure.
func classify(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	var ie *inventory.InsufficientError
	switch {
	case errors.As(err, &ie):
		return insufficient(ie), true
	case errors.Is(err, orders.ErrOrderNotFound):
		return &Error{Code: CodeNotFound, Message: "order not found", Err: err}, true
	case errors.Is(err, catalog.ErrProductNotFound):
		return &Error{Code: CodeNotFound, Message: "product not found", Err: err}, true
	case errors.Is(err, catalog.ErrLocationNotFound):
		return &Error{Code: CodeNotFound, Message: "location not found", Err: err}, true
	case errors.Is(err, inventory.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidQuantity):
		return &Error{Code: CodeInvalidQuantity, Message: err.Error(), Err: err}, true
	}
	return nil, false
}

// CodeOf returns the outcome code of err; nil is CodeOK.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if ce, ok := classify(err); ok {
		return ce.Code
	}
	return CodeFailed
}

// Result is the tagged outcome handed to delivery collaborators.
type Result struct {
	OK        bool   `json:"ok"`
	Code      Code   `json:"code"`
	Message   string `json:"message,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

func ResultOf(err error) Result {
	if err == nil {
		return Result{OK: true, Code: CodeOK}
	}
	ce, ok := classify(err)
	if !ok || ce.Code == CodeFailed {
		return Result{Code: CodeFailed, Message: "operation failed"}
	}
	r := Result{Code: ce.Code, Message: ce.Message}
	if r.Message == "" {
		r.Message = string(ce.Code)
	}
	if ce.Code == CodeInsufficientStock {
		avail, req := ce.Available, ce.Requested
		r.Available, r.Requested = &avail, &req
	}
	return r
}
