package domain

import "context"

// MemeRepository persists registered memes for the feed and for
// reconciliation of unverified registrations.
type MemeRepository interface {
	Create(ctx context.Context, meme *Meme) error
	List(ctx context.Context, limit, offset int) ([]Meme, error)
	ListByCreator(ctx context.Context, creator string, limit, offset int) ([]Meme, error)
	Get(ctx context.Context, id int64) (*Meme, error)
	AddLike(ctx context.Context, id int64) error
	AddTip(ctx context.Context, id int64, amountWei string) error
	ListUnverified(ctx context.Context, limit int) ([]Meme, error)
	MarkVerified(ctx context.Context, txRef string, id int64) error
}
