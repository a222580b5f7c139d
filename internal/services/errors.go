package services

import (
	"errors"
	"fmt"

	"amm-market/internal/fixedpoint"
)

// Rejection kinds. Every *MarketError matches exactly one of them with errors.Is.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPrecondition     = errors.New("precondition failed")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrEconomicLimit    = errors.New("economic limit")
	ErrExternalCall     = errors.New("external call failed")
	ErrIntegrity        = errors.New("registry integrity violation")
	ErrNotFound         = errors.New("not found")
)

// MarketError is a synchronous rejection. Nothing is persisted when one is
// returned from a mutating call.
type MarketError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *MarketError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *MarketError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func unauthorized(reason string) error {
	return &MarketError{Kind: ErrUnauthorized, Reason: reason}
}

func precondition(reason string) error {
	return &MarketError{Kind: ErrPrecondition, Reason: reason}
}

func invalidParam(reason string) error {
	return &MarketError{Kind: ErrInvalidParameter, Reason: reason}
}

func economic(reason string) error {
	return &MarketError{Kind: ErrEconomicLimit, Reason: reason}
}

func notFound(reason string) error {
	return &MarketError{Kind: ErrNotFound, Reason: reason}
}

func integrity(reason string) error {
	return &MarketError{Kind: ErrIntegrity, Reason: reason}
}

// externalCall wraps a collaborator failure. Rejections the collaborator
// raised itself keep their kind.
func externalCall(op string, err error) error {
	var me *MarketError
	if errors.As(err, &me) {
		return err
	}
	return &MarketError{Kind: ErrExternalCall, Reason: op, Err: err}
}

// arithmetic converts an overflow or underflow into an economic rejection.
func arithmetic(err error) error {
	var ae *fixedpoint.ArithmeticError
	if errors.As(err, &ae) {
		return &MarketError{Kind: ErrEconomicLimit, Reason: "arithmetic limit exceeded", Err: ae}
	}
	return err
}
