package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// MemeRepositoryPG implements domain.MemeRepository using PostgreSQL. Rows
// mirror the on-chain registry for the public feed; the ledger remains the
// source of truth.
type MemeRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMemeRepository creates a new meme repo.
func NewMemeRepository(pool *pgxpool.Pool) *MemeRepositoryPG {
	return &MemeRepositoryPG{pool: pool}
}

// Create inserts a registered meme row keyed by its registration tx.
func (r *MemeRepositoryPG) Create(ctx context.Context, meme *domain.Meme) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO memes (tx_ref, meme_id, creator, root_hash, metadata_url, caption, prompt, ai_generated, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (tx_ref) DO NOTHING;
`, meme.TxRef, meme.ID, meme.Creator, meme.RootHash, meme.MetadataURL, meme.Caption, meme.Prompt, meme.AIGenerated, string(meme.Status), meme.CreatedAt)
	return err
}

// List returns the feed page, newest first.
func (r *MemeRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Meme, error) {
	rows, err := r.pool.Query(ctx, `
SELECT tx_ref, meme_id, creator, root_hash, metadata_url, caption, prompt, ai_generated, status, likes, tips_wei, created_at
FROM memes
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemes(rows)
}

// ListByCreator returns one wallet's memes, newest first.
func (r *MemeRepositoryPG) ListByCreator(ctx context.Context, creator string, limit, offset int) ([]domain.Meme, error) {
	rows, err := r.pool.Query(ctx, `
SELECT tx_ref, meme_id, creator, root_hash, metadata_url, caption, prompt, ai_generated, status, likes, tips_wei, created_at
FROM memes
WHERE creator = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`, creator, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemes(rows)
}

// Get returns a single meme by its on-chain id.
func (r *MemeRepositoryPG) Get(ctx context.Context, id int64) (*domain.Meme, error) {
	row := r.pool.QueryRow(ctx, `
SELECT tx_ref, meme_id, creator, root_hash, metadata_url, caption, prompt, ai_generated, status, likes, tips_wei, created_at
FROM memes
WHERE meme_id = $1;
`, id)
	meme, err := scanMeme(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return meme, nil
}

// AddLike bumps the like counter for a meme.
func (r *MemeRepositoryPG) AddLike(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE memes SET likes = likes + 1 WHERE meme_id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// AddTip accumulates a tip amount on a meme. Amounts are decimal wei
// strings and summed as numerics in the database.
func (r *MemeRepositoryPG) AddTip(ctx context.Context, id int64, amountWei string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE memes SET tips_wei = (tips_wei::numeric + $2::numeric)::text WHERE meme_id = $1;
`, id, amountWei)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// ListUnverified returns registrations still waiting for their creation
// event, oldest first, for the reconciliation worker.
func (r *MemeRepositoryPG) ListUnverified(ctx context.Context, limit int) ([]domain.Meme, error) {
	rows, err := r.pool.Query(ctx, `
SELECT tx_ref, meme_id, creator, root_hash, metadata_url, caption, prompt, ai_generated, status, likes, tips_wei, created_at
FROM memes
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2;
`, string(domain.MemeStatusUnverified), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemes(rows)
}

// MarkVerified records the reconciled on-chain id for a registration tx.
func (r *MemeRepositoryPG) MarkVerified(ctx context.Context, txRef string, id int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE memes SET meme_id = $2, status = $3 WHERE tx_ref = $1;
`, txRef, id, string(domain.MemeStatusVerified))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func scanMemes(rows pgx.Rows) ([]domain.Meme, error) {
	var items []domain.Meme
	for rows.Next() {
		meme, err := scanMeme(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *meme)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMeme(row pgx.Row) (*domain.Meme, error) {
	var meme domain.Meme
	var status string
	if err := row.Scan(
		&meme.TxRef,
		&meme.ID,
		&meme.Creator,
		&meme.RootHash,
		&meme.MetadataURL,
		&meme.Caption,
		&meme.Prompt,
		&meme.AIGenerated,
		&status,
		&meme.Likes,
		&meme.TipsWei,
		&meme.CreatedAt,
	); err != nil {
		return nil, err
	}
	meme.Status = domain.MemeStatus(status)
	return &meme, nil
}
