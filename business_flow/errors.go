package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Identity and bootstrap errors
	ErrMissingIdentity = errors.New("missing user identity")
	ErrBootstrapFailed = errors.New("failed to bootstrap user wallet")

	// Deposit errors
	ErrAmountTooLow   = errors.New("amount is too low")
	ErrInvalidMethod  = errors.New("unsupported deposit method")
	ErrProviderFailed = errors.New("payment provider request failed")

	// Order errors
	ErrOrderFieldsRequired = errors.New("service, link and quantity are required")
	ErrServiceNotFound     = errors.New("service not found")
	ErrInvalidQuantity     = errors.New("quantity is outside the service limits")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPlaced      = errors.New("order has no upstream id")

	// Upstream panel errors
	ErrPanelFailed         = errors.New("panel request failed")
	ErrUnexpectedUpstream  = errors.New("unexpected upstream response")
	ErrCatalogNotAvailable = errors.New("catalog not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsMissingIdentity(err error) bool {
	return errors.Is(err, ErrMissingIdentity)
}

func IsBootstrapFailed(err error) bool {
	return errors.Is(err, ErrBootstrapFailed)
}

func IsAmountTooLow(err error) bool {
	return errors.Is(err, ErrAmountTooLow)
}

func IsInvalidMethod(err error) bool {
	return errors.Is(err, ErrInvalidMethod)
}

func IsProviderFailed(err error) bool {
	return errors.Is(err, ErrProviderFailed)
}

func IsOrderFieldsRequired(err error) bool {
	return errors.Is(err, ErrOrderFieldsRequired)
}

func IsServiceNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

func IsInvalidQuantity(err error) bool {
	return errors.Is(err, ErrInvalidQuantity)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsOrderNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

func IsOrderNotPlaced(err error) bool {
	return errors.Is(err, ErrOrderNotPlaced)
}

func IsPanelFailed(err error) bool {
	return errors.Is(err, ErrPanelFailed)
}

func IsUnexpectedUpstream(err error) bool {
	return errors.Is(err, ErrUnexpectedUpstream)
}

func IsCatalogNotAvailable(err error) bool {
	return errors.Is(err, ErrCatalogNotAvailable)
}
