package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// LabelRepository defines the persistence operations needed by the LabelService.
type LabelRepository interface {
	List(ctx context.Context, userID string) ([]models.Label, error)
	Create(ctx context.Context, userID string, l models.Label) (string, error)
	Update(ctx context.Context, userID, id string, patch models.LabelPatch) error
	Delete(ctx context.Context, userID, id string) error
}

// LabelService implements label operations.
type LabelService struct {
	repo LabelRepository
	pub  Publisher
	log  *zap.Logger
}

// NewLabelService constructs a LabelService. A nil publisher disables live snapshots.
func NewLabelService(repo LabelRepository, pub Publisher, log *zap.Logger) *LabelService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &LabelService{repo: repo, pub: pub, log: log}
}

// Snapshot returns the current labels message for userID.
func (s *LabelService) Snapshot(ctx context.Context, userID string) models.LiveMessage {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		s.log.Error("failed to list labels", zap.String("user_id", userID), zap.Error(err))
	}
	return snapshotMessage(models.CollectionLabels, items, err)
}

func (s *LabelService) publish(ctx context.Context, userID string) {
	s.pub.Publish(userID, s.Snapshot(context.WithoutCancel(ctx), userID))
}

// List returns the labels, newest first.
func (s *LabelService) List(ctx context.Context, userID string) ([]models.Label, error) {
	return s.repo.List(ctx, userID)
}

// Create stores a label and returns its id.
func (s *LabelService) Create(ctx context.Context, userID string, l models.Label) (string, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return "", domainerrors.InvalidArgument("name is required")
	}
	id, err := s.repo.Create(ctx, userID, l)
	if err != nil {
		return "", err
	}
	s.publish(ctx, userID)
	return id, nil
}

// Update applies a partial update.
func (s *LabelService) Update(ctx context.Context, userID, id string, patch models.LabelPatch) error {
	if err := s.repo.Update(ctx, userID, id, patch); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// Delete removes a label. Counters keep their references.
func (s *LabelService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}
