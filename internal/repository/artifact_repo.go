package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voicecast/internal/model"
)

// ArtifactRepository stores metadata records for generated audio files.
type ArtifactRepository interface {
	Insert(ctx context.Context, a *model.Artifact) error
	GetByFilename(ctx context.Context, filename string) (*model.Artifact, error)
	// ListExpired returns all records whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time) ([]model.Artifact, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Artifact, error)
}

type artifactRepo struct {
	pool *pgxpool.Pool
}

// NewArtifactRepo creates a new ArtifactRepository.
func NewArtifactRepo(pool *pgxpool.Pool) ArtifactRepository {
	return &artifactRepo{pool: pool}
}

const artifactColumns = `id, user_id, filename, text, text_length, voice, language, provider, format, duration, file_size, settings, created_at, expires_at`

func (r *artifactRepo) Insert(ctx context.Context, a *model.Artifact) error {
	settings, err := json.Marshal(a.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings for artifact %s: %w", a.ID, err)
	}
	const q = `
		INSERT INTO artifacts (id, user_id, filename, text, text_length, voice, language, provider, format, duration, file_size, settings, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, q,
		a.ID, a.UserID, a.Filename, a.Text, a.TextLength, a.Voice, a.Language,
		a.Provider, a.Format, a.Duration, a.FileSize, settings, a.CreatedAt, a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting artifact %s: %w", a.ID, err)
	}
	return nil
}

func (r *artifactRepo) GetByFilename(ctx context.Context, filename string) (*model.Artifact, error) {
	const q = `SELECT ` + artifactColumns + ` FROM artifacts WHERE filename = $1`
	a, err := scanArtifact(r.pool.QueryRow(ctx, q, filename))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching artifact by filename %s: %w", filename, err)
	}
	return a, nil
}

func (r *artifactRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Artifact, error) {
	const q = `SELECT ` + artifactColumns + ` FROM artifacts WHERE expires_at < $1`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("listing expired artifacts: %w", err)
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expired artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *artifactRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting artifact %s: %w", id, err)
	}
	return nil
}

func (r *artifactRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Artifact, error) {
	const q = `SELECT ` + artifactColumns + ` FROM artifacts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArtifact(row pgx.Row) (*model.Artifact, error) {
	var a model.Artifact
	var settings []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.Filename, &a.Text, &a.TextLength, &a.Voice,
		&a.Language, &a.Provider, &a.Format, &a.Duration, &a.FileSize,
		&settings, &a.CreatedAt, &a.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings for artifact %s: %w", a.ID, err)
		}
	}
	return &a, nil
}
