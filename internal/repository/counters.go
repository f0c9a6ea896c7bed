package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// CounterRepository stores counters. Deletion is soft: rows keep
// is_active = false until the cleaner purges them.
type CounterRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB  *sql.DB
	now func() time.Time
}

// NewCounterRepository creates a new CounterRepository using the provided *sql.DB.
func NewCounterRepository(db *sql.DB) *CounterRepository {
	return &CounterRepository{DB: db, now: time.Now}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func encodeLabels(ids []string) (string, error) {
	ids = models.NormalizeLabels(ids)
	if ids == nil {
		return "[]", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeLabels(text string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return nil
	}
	return models.NormalizeLabels(ids)
}

// ListActive returns the active counters of userID, most recently updated first.
func (r *CounterRepository) ListActive(ctx context.Context, userID string) ([]models.Counter, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, description, count, labels, created_at, updated_at
		  FROM counters
		 WHERE user_id = $1 AND is_active = true
		 ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	counters := []models.Counter{}
	for rows.Next() {
		c := models.Counter{UserID: userID, IsActive: true}
		var labels string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Count, &labels, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c.Labels = decodeLabels(labels)
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	return counters, nil
}

func (r *CounterRepository) insert(ctx context.Context, ex execer, userID string, c models.Counter, now time.Time) (string, error) {
	labels, err := encodeLabels(c.Labels)
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	id := uuid.NewString()
	_, err = ex.ExecContext(ctx, `
		INSERT INTO counters (id, user_id, name, description, count, labels, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7, $7)
	`, id, userID, c.Name, c.Description, c.Count, labels, now)
	if err != nil {
		return "", fmt.Errorf("insert counter: %w", err)
	}
	return id, nil
}

// Create stores c for userID under a fresh id and returns it.
func (r *CounterRepository) Create(ctx context.Context, userID string, c models.Counter) (string, error) {
	return r.insert(ctx, r.DB, userID, c, r.now().UTC())
}

// update applies patch to one active counter. An empty patch only stamps updated_at.
func (r *CounterRepository) update(ctx context.Context, ex execer, userID, id string, patch models.CounterPatch, now time.Time) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Count != nil {
		add("count", *patch.Count)
	}
	if patch.Labels != nil {
		labels, err := encodeLabels(*patch.Labels)
		if err != nil {
			return fmt.Errorf("encode labels: %w", err)
		}
		add("labels", labels)
	}
	add("updated_at", now)

	args = append(args, id, userID)
	query := "UPDATE counters SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)-1) +
		" AND user_id = $" + strconv.Itoa(len(args)) +
		" AND is_active = true"

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	return requireRow(res, domainerrors.NotFound("counter not found: "+id))
}

// Update applies a partial update to counter id.
func (r *CounterRepository) Update(ctx context.Context, userID, id string, patch models.CounterPatch) error {
	return r.update(ctx, r.DB, userID, id, patch, r.now().UTC())
}

// Increment adds amount, which may be negative, to the count of counter id.
func (r *CounterRepository) Increment(ctx context.Context, userID, id string, amount int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE counters SET count = count + $1, updated_at = $2
		 WHERE id = $3 AND user_id = $4 AND is_active = true
	`, amount, r.now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("Increment: %w", err)
	}
	return requireRow(res, domainerrors.NotFound("counter not found: "+id))
}

// SoftDelete marks counter id inactive.
func (r *CounterRepository) SoftDelete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE counters SET is_active = false, updated_at = $1
		 WHERE id = $2 AND user_id = $3 AND is_active = true
	`, r.now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	return requireRow(res, domainerrors.NotFound("counter not found: "+id))
}

// BatchUpdate applies every update in one transaction. A missing counter
// aborts the whole batch.
func (r *CounterRepository) BatchUpdate(ctx context.Context, userID string, updates []models.CounterUpdate) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UTC()
	for _, u := range updates {
		if err := r.update(ctx, tx, userID, u.ID, u.Patch, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReplaceAll soft-deletes every active counter of userID and stores counters
// in their place under fresh ids, in one transaction.
func (r *CounterRepository) ReplaceAll(ctx context.Context, userID string, counters []models.Counter) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE counters SET is_active = false, updated_at = $1
		 WHERE user_id = $2 AND is_active = true
	`, now, userID); err != nil {
		return fmt.Errorf("deactivate counters: %w", err)
	}
	for _, c := range counters {
		if _, err := r.insert(ctx, tx, userID, c, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
