package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voicecast/internal/model"
)

// UsageRepository is the quota ledger: per-user, per-calendar-month counters
// of characters consumed, API calls made and artifacts generated.
type UsageRepository interface {
	// GetUsage returns the row for the current month, creating a zeroed one
	// if absent. Safe under concurrent first-access: create-if-absent is a
	// single atomic statement, not check-then-create.
	GetUsage(ctx context.Context, userID string) (*model.UsagePeriod, error)
	// Commit atomically adds a successful generation to the ledger. Must be
	// called only after generation and persistence both succeeded.
	Commit(ctx context.Context, userID string, charactersConsumed int) error
	// ResetForNewSubscription zeroes the current month inside the caller's
	// transaction, as part of subscription activation.
	ResetForNewSubscription(ctx context.Context, tx pgx.Tx, userID string) error
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) GetUsage(ctx context.Context, userID string) (*model.UsagePeriod, error) {
	month := model.CurrentMonth(time.Now())
	const insertQ = `
		INSERT INTO usage_periods (user_id, month_year)
		VALUES ($1, $2)
		ON CONFLICT (user_id, month_year) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insertQ, userID, month); err != nil {
		return nil, fmt.Errorf("creating usage period for user %s: %w", userID, err)
	}

	const selectQ = `
		SELECT user_id, month_year, characters_used, api_calls, artifacts_generated, created_at, updated_at
		FROM usage_periods
		WHERE user_id = $1 AND month_year = $2
	`
	var u model.UsagePeriod
	err := r.pool.QueryRow(ctx, selectQ, userID, month).Scan(
		&u.UserID,
		&u.MonthYear,
		&u.CharactersUsed,
		&u.APICalls,
		&u.ArtifactsGenerated,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching usage for user %s: %w", userID, err)
	}
	return &u, nil
}

// Commit is a single atomic increment. Never read-modify-write: two
// concurrent commits must both land, with no lost updates.
func (r *usageRepo) Commit(ctx context.Context, userID string, charactersConsumed int) error {
	month := model.CurrentMonth(time.Now())
	const q = `
		INSERT INTO usage_periods (user_id, month_year, characters_used, api_calls, artifacts_generated)
		VALUES ($1, $2, $3, 1, 1)
		ON CONFLICT (user_id, month_year) DO UPDATE
		SET characters_used     = usage_periods.characters_used + EXCLUDED.characters_used,
		    api_calls           = usage_periods.api_calls + 1,
		    artifacts_generated = usage_periods.artifacts_generated + 1,
		    updated_at          = NOW()
	`
	if _, err := r.pool.Exec(ctx, q, userID, month, charactersConsumed); err != nil {
		return fmt.Errorf("committing usage for user %s: %w", userID, err)
	}
	return nil
}

func (r *usageRepo) ResetForNewSubscription(ctx context.Context, tx pgx.Tx, userID string) error {
	month := model.CurrentMonth(time.Now())
	const q = `
		INSERT INTO usage_periods (user_id, month_year)
		VALUES ($1, $2)
		ON CONFLICT (user_id, month_year) DO UPDATE
		SET characters_used     = 0,
		    api_calls           = 0,
		    artifacts_generated = 0,
		    updated_at          = NOW()
	`
	if _, err := tx.Exec(ctx, q, userID, month); err != nil {
		return fmt.Errorf("resetting usage for user %s: %w", userID, err)
	}
	return nil
}
