package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// Subscription is a live stream of snapshots of one collection. The
// connection is opened on the first call to Events. When it drops, an error
// snapshot is delivered and the stream redials after the retry delay, until
// Close is called.
type Subscription struct {
	collection string
	url        string
	token      string
	c          *Client

	ctx    context.Context
	cancel context.CancelFunc
	start  sync.Once
	events chan models.Snapshot
	done   chan struct{}
}

// Subscribe returns a stream of snapshots of collection for the signed-in user.
func (c *Client) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if collection != models.CollectionCounters && collection != models.CollectionLabels {
		return nil, domainerrors.Newf(domainerrors.CodeInvalidArgument, "unknown collection %q", collection)
	}
	token := c.token()
	if token == "" {
		return nil, domainerrors.ErrUnauthenticated
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Subscription{
		collection: collection,
		url:        "ws" + strings.TrimPrefix(c.base, "http") + "/api/subscribe/" + url.PathEscape(collection),
		token:      token,
		c:          c,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan models.Snapshot),
		done:       make(chan struct{}),
	}, nil
}

// Collection returns the subscribed collection name.
func (s *Subscription) Collection() string {
	return s.collection
}

// Events starts the stream if needed and returns its channel. The channel is
// closed after Close.
func (s *Subscription) Events() <-chan models.Snapshot {
	s.start.Do(func() { go s.run() })
	return s.events
}

// Close stops the stream and waits for it to wind down. It is safe to call
// more than once.
func (s *Subscription) Close() {
	s.cancel()
	s.start.Do(func() {
		close(s.events)
		close(s.done)
	})
	<-s.done
}

func (s *Subscription) run() {
	defer close(s.done)
	defer close(s.events)

	for {
		err := s.stream()
		if s.ctx.Err() != nil {
			return
		}
		s.c.log.Debug("subscription interrupted",
			zap.String("collection", s.collection),
			zap.Error(err),
		)
		if !s.emit(models.Snapshot{Collection: s.collection, Err: err}) {
			return
		}
		if sleepContext(s.ctx, s.c.retry.Delay()) != nil {
			return
		}
	}
}

// stream holds one connection open and forwards its snapshots. It returns the
// reason the connection ended.
func (s *Subscription) stream() error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	conn, resp, err := s.c.dialer.DialContext(s.ctx, s.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusMultipleChoices {
			return decodeError(resp)
		}
		return transportError(err)
	}
	defer conn.Close()
	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return domainerrors.Unavailable("subscription connection lost", err)
		}
		var msg models.LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.c.log.Debug("dropping malformed live message", zap.Error(err))
			continue
		}
		if !s.emit(decodeSnapshot(s.collection, msg)) {
			return s.ctx.Err()
		}
	}
}

func (s *Subscription) emit(snap models.Snapshot) bool {
	select {
	case s.events <- snap:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func decodeSnapshot(collection string, msg models.LiveMessage) models.Snapshot {
	snap := models.Snapshot{Collection: collection}
	if msg.Error != nil {
		snap.Err = msg.Error
		return snap
	}
	var err error
	switch collection {
	case models.CollectionCounters:
		snap.Counters = []models.Counter{}
		if len(msg.Data) > 0 {
			err = json.Unmarshal(msg.Data, &snap.Counters)
		}
	case models.CollectionLabels:
		snap.Labels = []models.Label{}
		if len(msg.Data) > 0 {
			err = json.Unmarshal(msg.Data, &snap.Labels)
		}
	}
	if err != nil {
		return models.Snapshot{Collection: collection, Err: domainerrors.Internal("decode snapshot", err)}
	}
	return snap
}

// Listen subscribes to collection and starts the stream right away. The
// returned func closes it.
func (c *Client) Listen(ctx context.Context, collection string) (<-chan models.Snapshot, func(), error) {
	sub, err := c.Subscribe(ctx, collection)
	if err != nil {
		return nil, nil, err
	}
	return sub.Events(), sub.Close, nil
}
