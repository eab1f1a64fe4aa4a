package domain

import "time"

// GenerationResult is one caption attempt from the inference provider.
// Valid is false when the per-request settlement with the provider failed;
// the caption is still usable in that case and SettlementNote says why.
type GenerationResult struct {
	Caption        string
	Prompt         string
	Provider       string
	Valid          bool
	CorrelationID  string
	SettlementNote string
}

// ArtifactBlob is a transient named byte payload bound for storage. It is
// owned by a single pipeline invocation and discarded after upload.
type ArtifactBlob struct {
	Name string
	Data []byte
}

// StorageReceipt is returned per uploaded blob.
type StorageReceipt struct {
	RootHash string
	TxRef    string
	URL      string
}

// MemeStatus tracks whether the on-chain id of a registered meme has been
// confirmed through its creation event.
type MemeStatus string

const (
	MemeStatusVerified   MemeStatus = "verified"
	MemeStatusUnverified MemeStatus = "unverified"
)

// Meme is the durable registration record. The ledger owns the source of
// truth; rows kept locally only feed the public listing.
type Meme struct {
	ID          int64
	Creator     string
	RootHash    string
	MetadataURL string
	Caption     string
	Prompt      string
	AIGenerated bool
	TxRef       string
	Status      MemeStatus
	Likes       int64
	TipsWei     string
	CreatedAt   time.Time
}
