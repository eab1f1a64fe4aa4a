package payment

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	"server/internal/domain"
)

// PaymentID derives the idempotent identifier for a successful payment. It
// is a pure function of payer, operation, submission time and transaction
// reference: recomputing it later for the same payment yields the same id.
func PaymentID(payer string, op domain.ServiceOperation, submittedAt time.Time, txRef string) string {
	inner := sha3.NewLegacyKeccak256()
	inner.Write([]byte(txRef))
	txDigest := inner.Sum(nil)

	var millis [8]byte
	binary.BigEndian.PutUint64(millis[:], uint64(submittedAt.UnixMilli()))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(payer))
	h.Write([]byte(op))
	h.Write(millis[:])
	h.Write(txDigest)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
