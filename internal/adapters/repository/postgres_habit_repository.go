package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

const habitColumns = `
	id, user_id, title, description, color, icon, sort_order,
	type, frequency_type, weekdays, reminder_time,
	interval, target_value, unit, current_streak, longest_streak,
	start_date, end_date, archived_at,
	version, deleted_at, created_at, updated_at`

// weekdaySet is the JSONB weekdays column. Scanning normalizes the stored
// schedule, so every habit read from Postgres is sorted and deduplicated.
type weekdaySet []int

func (w *weekdaySet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("weekdays: unsupported column type %T", src)
	}

	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("weekdays: %w", err)
	}
	*w = domain.NormalizeWeekdays(days)
	return nil
}

func (w weekdaySet) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]int(w))
	if err != nil {
		return nil, fmt.Errorf("weekdays: %w", err)
	}
	return string(b), nil
}

type habitRow struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	Title         string     `db:"title"`
	Description   string     `db:"description"`
	Color         string     `db:"color"`
	Icon          string     `db:"icon"`
	SortOrder     int        `db:"sort_order"`
	Type          string     `db:"type"`
	FrequencyType string     `db:"frequency_type"`
	Weekdays      weekdaySet `db:"weekdays"`
	ReminderTime  *string    `db:"reminder_time"`
	Interval      int        `db:"interval"`
	TargetValue   int        `db:"target_value"`
	Unit          string     `db:"unit"`
	CurrentStreak int        `db:"current_streak"`
	LongestStreak int        `db:"longest_streak"`
	StartDate     time.Time  `db:"start_date"`
	EndDate       *time.Time `db:"end_date"`
	ArchivedAt    *time.Time `db:"archived_at"`
	Version       int        `db:"version"`
	DeletedAt     *time.Time `db:"deleted_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func toHabitRow(h *domain.Habit) habitRow {
	return habitRow{
		ID: h.ID, UserID: h.UserID, Title: h.Title, Description: h.Description,
		Color: h.Color, Icon: h.Icon, SortOrder: h.SortOrder,
		Type: h.Type, FrequencyType: h.FrequencyType, Weekdays: weekdaySet(h.Weekdays),
		ReminderTime: h.ReminderTime, Interval: h.Interval, TargetValue: h.TargetValue, Unit: h.Unit,
		CurrentStreak: h.CurrentStreak, LongestStreak: h.LongestStreak,
		StartDate: h.StartDate, EndDate: h.EndDate, ArchivedAt: h.ArchivedAt,
		Version: h.Version, DeletedAt: h.DeletedAt, CreatedAt: h.CreatedAt, UpdatedAt: h.UpdatedAt,
	}
}

func (r habitRow) habit() *domain.Habit {
	return &domain.Habit{
		ID: r.ID, UserID: r.UserID, Title: r.Title, Description: r.Description,
		Color: r.Color, Icon: r.Icon, SortOrder: r.SortOrder,
		Type: r.Type, FrequencyType: r.FrequencyType, Weekdays: []int(r.Weekdays),
		ReminderTime: r.ReminderTime, Interval: r.Interval, TargetValue: r.TargetValue, Unit: r.Unit,
		CurrentStreak: r.CurrentStreak, LongestStreak: r.LongestStreak,
		StartDate: r.StartDate, EndDate: r.EndDate, ArchivedAt: r.ArchivedAt,
		Version: r.Version, DeletedAt: r.DeletedAt, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func habitsFromRows(rows []habitRow) []*domain.Habit {
	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		habits = append(habits, row.habit())
	}
	return habits
}

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

// queryRowNamed binds a named statement against row and scans the
// RETURNING columns into dest.
func (r *PostgresHabitRepository) queryRowNamed(ctx context.Context, query string, row habitRow, dest ...any) error {
	q, args, err := sqlx.Named(query, row)
	if err != nil {
		return fmt.Errorf("binding habit query: %w", err)
	}
	return r.db.QueryRowxContext(ctx, r.db.Rebind(q), args...).Scan(dest...)
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	query := `
        INSERT INTO habits (` + habitColumns + `)
        VALUES (
            :id, :user_id, :title, :description, :color, :icon, :sort_order,
            :type, :frequency_type, :weekdays, :reminder_time,
            :interval, :target_value, :unit, :current_streak, :longest_streak,
            :start_date, :end_date, :archived_at,
            1, NULL, :created_at, :updated_at
        )`

	if _, err := r.db.NamedExecContext(ctx, query, toHabitRow(h)); err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.ErrHabitAlreadyExists
		case pgForeignKeyViolation:
			return domain.ErrHabitInvalidUserID
		}
		return fmt.Errorf("inserting habit %s: %w", h.ID, err)
	}

	h.Version = 1
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	var row habitRow
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("loading habit %s: %w", id, err)
	}
	return row.habit(), nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	var rows []habitRow
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at ASC`

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habitsFromRows(rows), nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	query := `
        UPDATE habits SET
            title = :title, description = :description, color = :color, icon = :icon,
            sort_order = :sort_order, type = :type, frequency_type = :frequency_type,
            weekdays = :weekdays, reminder_time = :reminder_time, interval = :interval,
            target_value = :target_value, unit = :unit,
            end_date = :end_date, archived_at = :archived_at,
            updated_at = NOW(), version = version + 1
        WHERE id = :id AND version = :version AND deleted_at IS NULL
        RETURNING version, updated_at`

	err := r.queryRowNamed(ctx, query, toHabitRow(h), &h.Version, &h.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating habit %s: %w", h.ID, err)
	}

	// No row matched: either the habit is gone or the version is stale.
	var live bool
	if err := r.db.GetContext(ctx, &live, `SELECT EXISTS (SELECT 1 FROM habits WHERE id = $1 AND deleted_at IS NULL)`, h.ID); err != nil {
		return fmt.Errorf("checking habit %s: %w", h.ID, err)
	}
	if !live {
		return domain.ErrHabitNotFound
	}
	return domain.ErrHabitConflict
}

// Restore only matches rows that are soft-deleted and owned by the same user,
// so a client id can never take over someone else's habit.
func (r *PostgresHabitRepository) Restore(ctx context.Context, h *domain.Habit) error {
	query := `
        UPDATE habits SET
            title = :title, description = :description, color = :color, icon = :icon,
            sort_order = :sort_order, type = :type, frequency_type = :frequency_type,
            weekdays = :weekdays, reminder_time = :reminder_time, interval = :interval,
            target_value = :target_value, unit = :unit,
            current_streak = 0, longest_streak = 0, start_date = :start_date,
            end_date = NULL, archived_at = NULL, deleted_at = NULL,
            updated_at = NOW(), version = version + 1
        WHERE id = :id AND user_id = :user_id AND deleted_at IS NOT NULL
        RETURNING version, created_at, updated_at`

	err := r.queryRowNamed(ctx, query, toHabitRow(h), &h.Version, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrHabitNotFound
	}
	if err != nil {
		return fmt.Errorf("restoring habit %s: %w", h.ID, err)
	}

	h.DeletedAt = nil
	h.EndDate, h.ArchivedAt = nil, nil
	h.CurrentStreak, h.LongestStreak = 0, 0
	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting habit %s: %w", id, err)
	}
	return requireAffected(res, domain.ErrHabitNotFound)
}

// GetChanges includes tombstones so clients can drop deleted habits.
func (r *PostgresHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	var rows []habitRow
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, fmt.Errorf("habit delta since %s: %w", since.Format(time.RFC3339), err)
	}
	return habitsFromRows(rows), nil
}

// UpdateStreaks touches updated_at so delta sync picks up the new counters
// but leaves version alone, since the counters are server-owned.
func (r *PostgresHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE habits
        SET current_streak = $1, longest_streak = $2, updated_at = NOW()
        WHERE id = $3 AND deleted_at IS NULL`, current, longest, id)
	if err != nil {
		return fmt.Errorf("storing streaks for %s: %w", id, err)
	}
	return requireAffected(res, domain.ErrHabitNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
