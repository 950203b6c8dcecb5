package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/model"
)

var _ model.ArchiveStore = (*ArchiveRepository)(nil)

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{
		db: db,
	}
}

func (r *ArchiveRepository) Put(ctx context.Context, s model.ArchivedSnapshot) error {
	query := `
		INSERT INTO snapshots (id, container_id, path, data, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, s.ID, s.ContainerID, s.Path, s.Data, s.Checksum, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) Latest(ctx context.Context, containerID uuid.UUID) (model.ArchivedSnapshot, error) {
	query := `
		SELECT id, container_id, path, data, checksum, created_at
		FROM snapshots
		WHERE container_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var s model.ArchivedSnapshot
	err := r.db.QueryRowContext(ctx, query, containerID).Scan(
		&s.ID, &s.ContainerID, &s.Path, &s.Data, &s.Checksum, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ArchivedSnapshot{}, model.ErrNotFound
		}
		return model.ArchivedSnapshot{}, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// List returns snapshot metadata for containerID, newest first. Data is not loaded.
func (r *ArchiveRepository) List(ctx context.Context, containerID uuid.UUID) ([]model.ArchivedSnapshot, error) {
	query := `
		SELECT id, container_id, path, checksum, created_at
		FROM snapshots
		WHERE container_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.ArchivedSnapshot
	for rows.Next() {
		var s model.ArchivedSnapshot
		if err := rows.Scan(&s.ID, &s.ContainerID, &s.Path, &s.Checksum, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}
