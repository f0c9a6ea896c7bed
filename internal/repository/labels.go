package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// LabelRepository stores labels. Deleting a label does not touch the
// counters that reference it.
type LabelRepository struct {
	DB  *sql.DB
	now func() time.Time
}

// NewLabelRepository creates a new LabelRepository using the provided *sql.DB.
func NewLabelRepository(db *sql.DB) *LabelRepository {
	return &LabelRepository{DB: db, now: time.Now}
}

// List returns the labels of userID, newest first.
func (r *LabelRepository) List(ctx context.Context, userID string) ([]models.Label, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, color, created_at
		  FROM labels
		 WHERE user_id = $1
		 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("List labels: %w", err)
	}
	defer rows.Close()

	labels := []models.Label{}
	for rows.Next() {
		l := models.Label{UserID: userID}
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List labels: %w", err)
	}
	return labels, nil
}

// Create stores l for userID under a fresh id and returns it.
func (r *LabelRepository) Create(ctx context.Context, userID string, l models.Label) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO labels (id, user_id, name, color, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, l.Name, l.Color, r.now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert label: %w", err)
	}
	return id, nil
}

// Update applies a partial update to label id.
func (r *LabelRepository) Update(ctx context.Context, userID, id string, patch models.LabelPatch) error {
	var sets []string
	var args []any
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, "name = $"+strconv.Itoa(len(args)))
	}
	if patch.Color != nil {
		args = append(args, *patch.Color)
		sets = append(sets, "color = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return domainerrors.InvalidArgument("empty label update")
	}
	args = append(args, id, userID)
	query := "UPDATE labels SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)-1) +
		" AND user_id = $" + strconv.Itoa(len(args))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	return requireRow(res, domainerrors.NotFound("label not found: "+id))
}

// Delete removes label id.
func (r *LabelRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM labels WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	return requireRow(res, domainerrors.NotFound("label not found: "+id))
}
