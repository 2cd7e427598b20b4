package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qlab/tickscan/internal/contracts"
)

// Rankings persists completed ranking passes. Persisting is optional; the
// scan command skips this repository entirely when no database is configured.
type Rankings struct {
	pool *pgxpool.Pool
}

// NewRankings creates a ranking repository over a pgx pool.
func NewRankings(pool *pgxpool.Pool) *Rankings {
	return &Rankings{pool: pool}
}

// ErrNotFound marks a date with no stored snapshot.
var ErrNotFound = errors.New("ranking snapshot not found")

// SaveSnapshot replaces the day's stored ranking with the given snapshot.
// Replacement runs in one transaction so readers never see a half-written
// pass.
func (r *Rankings) SaveSnapshot(ctx context.Context, snapshot *contracts.RankingSnapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	day := snapshot.Date.Format("2006-01-02")

	_, err = tx.Exec(ctx, "DELETE FROM rankings WHERE rank_date = $1", day)
	if err != nil {
		return fmt.Errorf("delete old ranking: %w", err)
	}

	query := `
		INSERT INTO rankings (
			rank_date, model_version, rank, code, name, score,
			current_price, intraday_change, total_volume, tick_count,
			features, universe_size, failed_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, s := range snapshot.Stocks {
		features, err := json.Marshal(s.Features)
		if err != nil {
			return fmt.Errorf("marshal features for %s: %w", s.Code, err)
		}

		_, err = tx.Exec(ctx, query,
			day, snapshot.ModelVersion, s.Rank, s.Code, s.Name, s.Score,
			s.CurrentPrice, s.IntradayChange, s.TotalVolume, s.TickCount,
			features, snapshot.Universe, snapshot.Failed, snapshot.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ranking row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored ranking for one calendar day.
func (r *Rankings) LoadSnapshot(ctx context.Context, day time.Time) (*contracts.RankingSnapshot, error) {
	query := `
		SELECT model_version, rank, code, name, score,
		       current_price, intraday_change, total_volume, tick_count,
		       features, universe_size, failed_count, created_at
		FROM rankings
		WHERE rank_date = $1
		ORDER BY rank
	`

	rows, err := r.pool.Query(ctx, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	snapshot := &contracts.RankingSnapshot{Date: day}
	for rows.Next() {
		var s contracts.RankedStock
		var features []byte
		err := rows.Scan(
			&s.ModelVersion, &s.Rank, &s.Code, &s.Name, &s.Score,
			&s.CurrentPrice, &s.IntradayChange, &s.TotalVolume, &s.TickCount,
			&features, &snapshot.Universe, &snapshot.Failed, &snapshot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		if err := json.Unmarshal(features, &s.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features for %s: %w", s.Code, err)
		}
		snapshot.ModelVersion = s.ModelVersion
		snapshot.Stocks = append(snapshot.Stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}

	if len(snapshot.Stocks) == 0 {
		return nil, ErrNotFound
	}
	return snapshot, nil
}

// LatestDay reports the most recent day with a stored ranking.
func (r *Rankings) LatestDay(ctx context.Context) (time.Time, error) {
	var day *time.Time
	err := r.pool.QueryRow(ctx, "SELECT MAX(rank_date::date) FROM rankings").Scan(&day)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("query latest day: %w", err)
	}
	if day == nil {
		return time.Time{}, ErrNotFound
	}
	return *day, nil
}
