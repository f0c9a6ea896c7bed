// Package live pushes collection snapshots to websocket subscribers.
//
// Subscribers are keyed by user and collection. A new subscriber receives the
// current snapshot right away, then every snapshot published for its key.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// SnapshotFunc produces the current snapshot of one collection for userID.
type SnapshotFunc func(ctx context.Context, userID string) models.LiveMessage

type key struct {
	userID     string
	collection string
}

// Hub tracks subscribers and fans snapshots out to them.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	subs    map[key]map[*client]struct{}
	sources map[string]SnapshotFunc
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		subs:    make(map[key]map[*client]struct{}),
		sources: make(map[string]SnapshotFunc),
	}
}

// Register sets the snapshot source of collection. Only registered
// collections can be subscribed to.
func (h *Hub) Register(collection string, fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[collection] = fn
}

// Has reports whether collection has a snapshot source.
func (h *Hub) Has(collection string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sources[collection]
	return ok
}

// Subscribers returns the number of live connections for userID on collection.
func (h *Hub) Subscribers(userID, collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key{userID, collection}])
}

// Publish sends msg to every subscriber of userID on msg.Collection.
func (h *Hub) Publish(userID string, msg models.LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode live message", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[key{userID, msg.Collection}]))
	for c := range h.subs[key{userID, msg.Collection}] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// Serve streams snapshots of collection to conn until the peer goes away or
// ctx is done. It takes ownership of conn.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID, collection string) {
	h.mu.RLock()
	source, ok := h.sources[collection]
	h.mu.RUnlock()
	if !ok {
		h.log.Warn("subscribe to unknown collection", zap.String("collection", collection))
		_ = conn.Close()
		return
	}

	c := newClient(conn, h.log)
	k := key{userID, collection}
	h.add(k, c)
	defer h.remove(k, c)

	stop := context.AfterFunc(ctx, c.close)
	defer stop()

	go c.writePump()

	if data, err := json.Marshal(source(ctx, userID)); err == nil {
		c.enqueue(data)
	}

	c.readPump()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, set := range h.subs {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.close()
	}
}

func (h *Hub) add(k key, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[k] == nil {
		h.subs[k] = make(map[*client]struct{})
	}
	h.subs[k][c] = struct{}{}
	h.log.Debug("live subscriber connected",
		zap.String("user_id", k.userID),
		zap.String("collection", k.collection),
	)
}

func (h *Hub) remove(k key, c *client) {
	c.close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[k]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, k)
		}
	}
	h.log.Debug("live subscriber disconnected",
		zap.String("user_id", k.userID),
		zap.String("collection", k.collection),
	)
}
