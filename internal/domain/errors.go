package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected           = errors.New("payer not connected")
	ErrWrongNetwork           = errors.New("wrong network")
	ErrPaymentReverted        = errors.New("payment reverted on chain")
	ErrProviderUnavailable    = errors.New("inference provider unavailable")
	ErrNoContentReturned      = errors.New("no content returned")
	ErrAllOptionsFailed       = errors.New("all caption options failed")
	ErrTreeComputationFailed  = errors.New("merkle tree computation failed")
	ErrUploadFailed           = errors.New("storage upload failed")
	ErrRecordNotFound         = errors.New("record not found")
	ErrRegistrationReverted   = errors.New("registration reverted on chain")
	ErrRegistrationUnverified = errors.New("registration unverified")
	ErrUnknownOperation       = errors.New("unknown service operation")
	ErrServiceUnavailable     = errors.New("ledger service unavailable")
)

// PaymentFailureReason classifies why a payment submission failed.
type PaymentFailureReason string

const (
	PaymentReasonInsufficientFunds PaymentFailureReason = "insufficient_funds"
	PaymentReasonUserRejected      PaymentFailureReason = "user_rejected"
	PaymentReasonReverted          PaymentFailureReason = "reverted"
	PaymentReasonUnavailable       PaymentFailureReason = "provider_unavailable"
)

// PaymentError wraps a failed payment submission with its classified reason.
type PaymentError struct {
	Reason PaymentFailureReason
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment failed: %s", e.Reason)
	}
	return fmt.Sprintf("payment failed (%s): %v", e.Reason, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}
