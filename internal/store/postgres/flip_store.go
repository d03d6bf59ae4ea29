package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// FlipStore implements domain.FlipStore using PostgreSQL.
type FlipStore struct {
	pool *pgxpool.Pool
}

// NewFlipStore creates a FlipStore backed by the given pool.
func NewFlipStore(pool *pgxpool.Pool) *FlipStore {
	return &FlipStore{pool: pool}
}

const flipSelectCols = `listing_id, display_name, identifier, cheapest_price,
	second_cheapest_price, profit, average_daily_volume, detected_at`

func scanFlipRows(rows pgx.Rows) ([]domain.Flip, error) {
	var flips []domain.Flip
	for rows.Next() {
		var f domain.Flip
		if err := rows.Scan(
			&f.ListingID, &f.DisplayName, &f.Identifier, &f.CheapestPrice,
			&f.SecondCheapestPrice, &f.Profit, &f.AverageDailyVolume, &f.DetectedAt,
		); err != nil {
			return nil, err
		}
		flips = append(flips, f)
	}
	return flips, rows.Err()
}

// Insert records a reported flip. A listing reported twice (for example by
// two instances racing on a warm start) keeps its first record.
func (s *FlipStore) Insert(ctx context.Context, f domain.Flip) error {
	const query = `
		INSERT INTO flips (
			listing_id, display_name, identifier, cheapest_price,
			second_cheapest_price, profit, average_daily_volume, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (listing_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query,
		f.ListingID, f.DisplayName, f.Identifier, f.CheapestPrice,
		f.SecondCheapestPrice, f.Profit, f.AverageDailyVolume, f.DetectedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert flip %s: %w", f.ListingID, err)
	}
	return nil
}

// ListRecent returns up to limit flips, newest first.
func (s *FlipStore) ListRecent(ctx context.Context, limit int) ([]domain.Flip, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+flipSelectCols+` FROM flips ORDER BY detected_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent flips: %w", err)
	}
	defer rows.Close()

	flips, err := scanFlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan flips: %w", err)
	}
	return flips, nil
}

// ListBetween returns flips detected in [from, to), oldest first.
func (s *FlipStore) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Flip, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+flipSelectCols+` FROM flips
		 WHERE detected_at >= $1 AND detected_at < $2
		 ORDER BY detected_at ASC, id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: list flips between: %w", err)
	}
	defer rows.Close()

	flips, err := scanFlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan flips: %w", err)
	}
	return flips, nil
}

// RecentListingIDs returns the listing ids of the newest limit flips,
// oldest first, ready to seed the dedup ledger.
func (s *FlipStore) RecentListingIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT listing_id FROM (
			SELECT listing_id, detected_at, id FROM flips
			ORDER BY detected_at DESC, id DESC LIMIT $1
		) recent ORDER BY detected_at ASC, id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent listing ids: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan listing ids: %w", err)
	}
	return ids, nil
}

var _ domain.FlipStore = (*FlipStore)(nil)
