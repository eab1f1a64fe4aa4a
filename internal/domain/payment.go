package domain

import "time"

// ServiceOperation enumerates the paid actions known to the payment contract.
type ServiceOperation string

const (
	OperationMint         ServiceOperation = "mint"
	OperationRemix        ServiceOperation = "remix"
	OperationAIGeneration ServiceOperation = "ai_generation"
	OperationStorage      ServiceOperation = "storage"
	OperationAIAndStorage ServiceOperation = "ai_and_storage"
)

// KnownOperation reports whether op is one of the enumerated service tags.
func KnownOperation(op ServiceOperation) bool {
	switch op {
	case OperationMint, OperationRemix, OperationAIGeneration, OperationStorage, OperationAIAndStorage:
		return true
	}
	return false
}

// PaymentStatus is the confirmation state of a submitted payment. A receipt
// never changes status again after reaching Confirmed, Accepted or Failed.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	// PaymentConfirmed means the ledger returned a successful receipt.
	PaymentConfirmed PaymentStatus = "confirmed"
	// PaymentAccepted means the confirmation poll budget ran out without a
	// receipt. The submission was accepted by the payer's wallet, so the
	// workflow proceeds, but callers can tell it apart from Confirmed.
	PaymentAccepted PaymentStatus = "accepted_unconfirmed"
	PaymentFailed   PaymentStatus = "failed"
)

// PayerContext carries the caller's wallet state explicitly so payment code
// never reads ambient connection state.
type PayerContext struct {
	Address   string
	ChainID   int64
	Connected bool
}

// PaymentReceipt records one fee payment. The TxRef is set as soon as the
// submission is accepted, before confirmation is known.
type PaymentReceipt struct {
	Operation   ServiceOperation
	Payer       string
	Amount      string
	TxRef       string
	PaymentID   string
	Status      PaymentStatus
	SubmittedAt time.Time
}
