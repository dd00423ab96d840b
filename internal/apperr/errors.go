package apperr

import "fmt"

// ValidationError reports malformed or out-of-range caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientDataError means a computation needed more price history than
// the store holds for the code.
type InsufficientDataError struct {
	Code string
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Code, e.Need, e.Have)
}

// InsufficientHoldingError means a sell was recorded against more shares
// than the account holds.
type InsufficientHoldingError struct {
	Code    string
	Account string
	Want    int64
	Held    int64
}

func (e *InsufficientHoldingError) Error() string {
	return fmt.Sprintf("insufficient holding for %s (%s): want %d, held %d", e.Code, e.Account, e.Want, e.Held)
}

// BrokerageUnavailableError wraps transport failures talking to the
// brokerage gateway, as opposed to an order the gateway rejected.
type BrokerageUnavailableError struct {
	Op  string
	Err error
}

func (e *BrokerageUnavailableError) Error() string {
	return fmt.Sprintf("brokerage unavailable during %s: %v", e.Op, e.Err)
}

func (e *BrokerageUnavailableError) Unwrap() error { return e.Err }
