package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

var ErrEntryReference = errors.New("referenced habit or user does not exist")

const entryColumns = `id, habit_id, user_id, completion_date, value, notes, version, created_at, updated_at, deleted_at`

type PostgresEntryRepository struct {
	db *sqlx.DB
}

func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

func (r *PostgresEntryRepository) Create(ctx context.Context, entry *domain.HabitEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO habit_entries (` + entryColumns + `)
		VALUES (
			:id, :habit_id, :user_id,
			:completion_date, :value, :notes,
			:version, :created_at, :updated_at, :deleted_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		switch pgErrorCode(err) {
		case pgForeignKeyViolation:
			return ErrEntryReference
		case pgUniqueViolation:
			return domain.ErrEntryConflict
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *PostgresEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	var entry domain.HabitEntry
	query := `SELECT ` + entryColumns + ` FROM habit_entries WHERE id = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return &entry, nil
}

func (r *PostgresEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	entries := []*domain.HabitEntry{}

	query := `
		SELECT ` + entryColumns + ` FROM habit_entries
		WHERE habit_id = $1
		  AND completion_date >= $2
		  AND completion_date <= $3
		  AND deleted_at IS NULL
		ORDER BY completion_date DESC`

	if err := r.db.SelectContext(ctx, &entries, query, habitID, from, to); err != nil {
		return nil, fmt.Errorf("list entries for habit %s: %w", habitID, err)
	}
	return entries, nil
}

// ListByUserIDAndDateRange feeds the dashboard snapshot. Entries of
// soft-deleted habits are excluded in the same query.
func (r *PostgresEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	entries := []*domain.HabitEntry{}

	query := `
		SELECT e.id, e.habit_id, e.user_id, e.completion_date, e.value, e.notes,
		       e.version, e.created_at, e.updated_at, e.deleted_at
		FROM habit_entries e
		JOIN habits h ON h.id = e.habit_id AND h.deleted_at IS NULL
		WHERE e.user_id = $1
		  AND e.completion_date >= $2
		  AND e.completion_date <= $3
		  AND e.deleted_at IS NULL
		ORDER BY e.completion_date ASC`

	if err := r.db.SelectContext(ctx, &entries, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list entries for user %s: %w", userID, err)
	}
	return entries, nil
}

// Update bumps the version only when the caller holds the current one.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry *domain.HabitEntry) error {
	q, args, err := sqlx.Named(`
		UPDATE habit_entries
		SET value = :value,
		    notes = :notes,
		    completion_date = :completion_date,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = :id
		  AND version = :version
		  AND deleted_at IS NULL
		RETURNING version, updated_at`, entry)
	if err != nil {
		return fmt.Errorf("bind entry update: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, r.db.Rebind(q), args...).Scan(&entry.Version, &entry.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update entry %s: %w", entry.ID, err)
	}

	exists, err := r.exists(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrEntryNotFound
	}
	return domain.ErrEntryConflict
}

func (r *PostgresEntryRepository) Delete(ctx context.Context, id string, userID string) error {
	now := time.Now().UTC()

	query := `
		UPDATE habit_entries
		SET deleted_at = $1,
		    updated_at = $1,
		    version = version + 1
		WHERE id = $2
		  AND user_id = $3
		  AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, now, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return requireAffected(result, domain.ErrEntryNotFound)
}

func (r *PostgresEntryRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	entries := []*domain.HabitEntry{}

	query := `
		SELECT ` + entryColumns + ` FROM habit_entries
		WHERE user_id = $1
		  AND updated_at > $2
		ORDER BY updated_at ASC`

	if err := r.db.SelectContext(ctx, &entries, query, userID, since); err != nil {
		return nil, fmt.Errorf("entry changes for %s: %w", userID, err)
	}
	return entries, nil
}

func (r *PostgresEntryRepository) exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.db.GetContext(ctx, &found, "SELECT EXISTS (SELECT 1 FROM habit_entries WHERE id = $1 AND deleted_at IS NULL)", id)
	return found, err
}
