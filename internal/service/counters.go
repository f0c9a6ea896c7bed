package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// Publisher fans a collection snapshot out to the user's live subscribers.
type Publisher interface {
	Publish(userID string, msg models.LiveMessage)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, models.LiveMessage) {}

// CounterRepository defines the persistence operations needed by the CounterService.
type CounterRepository interface {
	ListActive(ctx context.Context, userID string) ([]models.Counter, error)
	Create(ctx context.Context, userID string, c models.Counter) (string, error)
	Update(ctx context.Context, userID, id string, patch models.CounterPatch) error
	Increment(ctx context.Context, userID, id string, amount int64) error
	SoftDelete(ctx context.Context, userID, id string) error
	BatchUpdate(ctx context.Context, userID string, updates []models.CounterUpdate) error
	ReplaceAll(ctx context.Context, userID string, counters []models.Counter) error
}

// CounterService implements counter operations. Every successful write is
// followed by a fresh snapshot to the user's subscribers.
type CounterService struct {
	repo CounterRepository
	pub  Publisher
	log  *zap.Logger
}

// NewCounterService constructs a CounterService. A nil publisher disables live snapshots.
func NewCounterService(repo CounterRepository, pub Publisher, log *zap.Logger) *CounterService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &CounterService{repo: repo, pub: pub, log: log}
}

// snapshotMessage lists a collection into a live message; a failed read is
// carried as the message error.
func snapshotMessage[T any](collection string, items []T, err error) models.LiveMessage {
	msg := models.LiveMessage{Collection: collection}
	if items == nil {
		items = []T{}
	}
	if err == nil {
		msg.Data, err = json.Marshal(items)
	}
	if err != nil {
		msg.Data = nil
		msg.Error = domainerrors.Newf(domainerrors.CodeOf(err), "snapshot failed")
	}
	return msg
}

// Snapshot returns the current counters message for userID.
func (s *CounterService) Snapshot(ctx context.Context, userID string) models.LiveMessage {
	items, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		s.log.Error("failed to list counters", zap.String("user_id", userID), zap.Error(err))
	}
	return snapshotMessage(models.CollectionCounters, items, err)
}

func (s *CounterService) publish(ctx context.Context, userID string) {
	s.pub.Publish(userID, s.Snapshot(context.WithoutCancel(ctx), userID))
}

// List returns the active counters, most recently updated first.
func (s *CounterService) List(ctx context.Context, userID string) ([]models.Counter, error) {
	return s.repo.ListActive(ctx, userID)
}

// Create stores a counter and returns its id.
func (s *CounterService) Create(ctx context.Context, userID string, c models.Counter) (string, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return "", domainerrors.InvalidArgument("name is required")
	}
	id, err := s.repo.Create(ctx, userID, c)
	if err != nil {
		return "", err
	}
	s.publish(ctx, userID)
	return id, nil
}

// Update applies a partial update.
func (s *CounterService) Update(ctx context.Context, userID, id string, patch models.CounterPatch) error {
	if patch.IsEmpty() {
		return domainerrors.InvalidArgument("empty counter update")
	}
	if err := s.repo.Update(ctx, userID, id, patch); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// Increment adds amount to the count.
func (s *CounterService) Increment(ctx context.Context, userID, id string, amount int64) error {
	if err := s.repo.Increment(ctx, userID, id, amount); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// Delete soft-deletes a counter.
func (s *CounterService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// BatchUpdate applies several updates atomically.
func (s *CounterService) BatchUpdate(ctx context.Context, userID string, updates []models.CounterUpdate) error {
	for _, u := range updates {
		if u.ID == "" {
			return domainerrors.InvalidArgument("update without id")
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.BatchUpdate(ctx, userID, updates); err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// Replace swaps the whole active list for counters.
func (s *CounterService) Replace(ctx context.Context, userID string, counters []models.Counter) error {
	if err := s.repo.ReplaceAll(ctx, userID, counters); err != nil {
		return err
	}
	s.log.Info("counters replaced", zap.String("user_id", userID), zap.Int("count", len(counters)))
	s.publish(ctx, userID)
	return nil
}
