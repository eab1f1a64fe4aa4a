package storagenet

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"server/internal/domain"
)

// chunkSize is the fixed leaf size for root computation.
const chunkSize = 256 * 1024

// MerkleRoot derives the content root for a blob: keccak-256 over fixed-size
// chunks, combined pairwise up to a single root. An odd node at any level is
// carried up unchanged. The same bytes always produce the same root.
func MerkleRoot(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty blob", domain.ErrTreeComputationFailed)
	}

	var level [][]byte
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		level = append(level, keccak(data[off:end]))
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, keccak(append(append([]byte{}, level[i]...), level[i+1]...)))
		}
		level = next
	}
	return "0x" + hex.EncodeToString(level[0]), nil
}

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
