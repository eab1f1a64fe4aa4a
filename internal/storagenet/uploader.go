package storagenet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// UploaderOptions configures an Uploader.
type UploaderOptions struct {
	Indexer IndexerClient
	// PublicBaseURL prefixes the retrieval locator handed back to callers.
	PublicBaseURL string
	Scratch       *ScratchStore
	Logger        zerolog.Logger
}

// Uploader persists blobs to the content-addressed storage network.
type Uploader struct {
	indexer    IndexerClient
	publicBase string
	scratch    *ScratchStore
	logger     zerolog.Logger
}

// NewUploader builds an uploader.
func NewUploader(opts UploaderOptions) (*Uploader, error) {
	if opts.Indexer == nil {
		return nil, errors.New("storagenet: indexer client is required")
	}
	publicBase := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if publicBase == "" {
		return nil, errors.New("storagenet: public base url is required")
	}
	return &Uploader{
		indexer:    opts.Indexer,
		publicBase: publicBase,
		scratch:    opts.Scratch,
		logger:     opts.Logger,
	}, nil
}

// Upload derives the content root for blob, submits it to the network and
// returns the receipt. The blob bytes stay with the caller; the uploader
// only borrows them for the duration of the call.
func (u *Uploader) Upload(ctx context.Context, blob domain.ArtifactBlob) (*domain.StorageReceipt, error) {
	root, err := MerkleRoot(blob.Data)
	if err != nil {
		return nil, err
	}
	txRef, err := u.indexer.Submit(ctx, root, blob.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUploadFailed, blob.Name, err)
	}
	u.logger.Info().
		Str("name", blob.Name).
		Str("root_hash", root).
		Str("tx_ref", txRef).
		Int("bytes", len(blob.Data)).
		Msg("storagenet: blob submitted")
	return &domain.StorageReceipt{
		RootHash: root,
		TxRef:    txRef,
		URL:      fmt.Sprintf("%s/%s", u.publicBase, root),
	}, nil
}

// Fetch retrieves the full blob for rootHash.
func (u *Uploader) Fetch(ctx context.Context, rootHash string) ([]byte, error) {
	rootHash = strings.TrimSpace(rootHash)
	if rootHash == "" {
		return nil, fmt.Errorf("%w: empty root hash", domain.ErrRecordNotFound)
	}
	var buf bytes.Buffer
	if err := u.indexer.Download(ctx, rootHash, &buf, false); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRecordNotFound, rootHash, err)
	}
	return buf.Bytes(), nil
}

// Verify reports whether the network can serve rootHash, by attempting a
// partial retrieval into scratch space. This call is advisory: any error is
// treated as non-existence, never propagated.
func (u *Uploader) Verify(ctx context.Context, rootHash string) bool {
	rootHash = strings.TrimSpace(rootHash)
	if rootHash == "" {
		return false
	}
	key := "verify-" + rootHash
	f, err := u.scratch.Create(key)
	if err != nil {
		u.logger.Warn().Err(err).Str("root_hash", rootHash).Msg("storagenet: verify scratch unavailable")
		return false
	}
	defer func() {
		_ = f.Close()
		_ = u.scratch.Remove(key)
	}()
	if err := u.indexer.Download(ctx, rootHash, f, true); err != nil {
		u.logger.Debug().Err(err).Str("root_hash", rootHash).Msg("storagenet: verify retrieval failed")
		return false
	}
	return true
}
