// Package remote is the client of the GophTally document store: sign-in,
// counter and label CRUD, preferences and live snapshot subscriptions.
//
// Every data call goes through a Retrier; reads are memoized in a Cache that
// is only cleared on sign-out.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

const maxErrorBody = 64 << 10

// Client talks to the remote store over HTTP and websockets.
type Client struct {
	base   string
	hc     *http.Client
	dialer *websocket.Dialer
	retry  *Retrier
	cache  *Cache
	log    *zap.Logger

	mu        sync.RWMutex
	identity  *models.Identity
	listeners map[int]func(*models.Identity)
	nextID    int
}

// New returns a client for the store at baseURL. A nil hc uses NewHTTPClient("")
// and a nil logger disables logging.
func New(baseURL string, hc *http.Client, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, domainerrors.InvalidArgument("invalid server url").WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, domainerrors.Newf(domainerrors.CodeInvalidArgument, "unsupported server url scheme %q", u.Scheme)
	}
	if hc == nil {
		hc, _ = NewHTTPClient("")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:      strings.TrimRight(u.String(), "/"),
		hc:        hc,
		dialer:    newDialer(hc),
		retry:     NewRetrier(log),
		cache:     NewCache(DefaultCacheTTL),
		log:       log,
		listeners: make(map[int]func(*models.Identity)),
	}, nil
}

// ClearCache drops every memoized read.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.Token
}

func (c *Client) userID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.UserID
}

// call runs an authenticated request under the retry policy.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if c.token() == "" {
		return domainerrors.ErrUnauthenticated
	}
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, path, in, out)
	})
}

// cachedGet serves a read from the cache or fetches and stores it.
func cachedGet[T any](ctx context.Context, c *Client, signature, path string, clone func(T) T) (T, error) {
	var zero T
	key := c.userID() + "|" + signature
	if v, ok := c.cache.Get(key); ok {
		return clone(v.(T)), nil
	}
	var out T
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return zero, err
	}
	c.cache.Set(key, clone(out))
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return domainerrors.Internal("encode request", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return domainerrors.Internal("build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domainerrors.Internal("decode response", err)
	}
	return nil
}

func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domainerrors.ErrDeadlineExceeded.WithCause(err)
	}
	return domainerrors.ErrUnavailable.WithCause(err)
}

// decodeError turns a {code, message} body into a domain error. Bodies that
// are not JSON fall back to a code derived from the status.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e domainerrors.Error
	if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
		e.Code = domainerrors.CodeFromStatus(resp.StatusCode)
		e.Message = strings.TrimSpace(string(data))
		e.Details = nil
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return &e
}
