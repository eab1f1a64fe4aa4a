package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrReceiptNotFound is returned by Receipt while the transaction is not yet
// visible on the queried node. Read replicas can lag the node that accepted
// the submission, so callers poll with a bounded budget.
var ErrReceiptNotFound = errors.New("ledger: receipt not found")

// Call is a read-only contract invocation.
type Call struct {
	To     string `json:"to"`
	Method string `json:"method"`
	Args   []any  `json:"args,omitempty"`
}

// Tx is a state-changing contract invocation. ValueWei is the native amount
// attached to the call, as a decimal string.
type Tx struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Method   string `json:"method"`
	Args     []any  `json:"args,omitempty"`
	ValueWei string `json:"value_wei,omitempty"`
}

// Log is one event entry from a transaction receipt.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt is the ledger's record of an executed transaction.
type Receipt struct {
	TxRef     string `json:"tx_ref"`
	Succeeded bool   `json:"succeeded"`
	Logs      []Log  `json:"logs"`
}

// Client is the narrow contract the rest of the service consumes. The
// concrete chain, signing and ABI encoding live behind the gateway.
type Client interface {
	Call(ctx context.Context, call Call, out any) error
	Submit(ctx context.Context, tx Tx) (string, error)
	Receipt(ctx context.Context, txRef string) (*Receipt, error)
}

// EventTopic returns the 0x-prefixed keccak-256 hash of an event signature,
// the form it appears in as Topics[0] of a matching log.
func EventTopic(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// FindEvent returns the first log whose leading topic matches the given
// event signature, or nil when the receipt carries no such event.
func FindEvent(receipt *Receipt, signature string) *Log {
	if receipt == nil {
		return nil
	}
	topic := EventTopic(signature)
	for i := range receipt.Logs {
		if len(receipt.Logs[i].Topics) > 0 && strings.EqualFold(receipt.Logs[i].Topics[0], topic) {
			return &receipt.Logs[i]
		}
	}
	return nil
}

// TopicUint64 decodes an indexed uint256 topic into a uint64.
func TopicUint64(topic string) (uint64, error) {
	t := strings.TrimPrefix(strings.TrimSpace(topic), "0x")
	if t == "" {
		return 0, fmt.Errorf("ledger: empty topic")
	}
	// Indexed words are 32 bytes; the value sits in the low-order bytes.
	t = strings.TrimLeft(t, "0")
	if t == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger: decode topic %q: %w", topic, err)
	}
	return v, nil
}
