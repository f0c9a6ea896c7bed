package service

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

const (
	tokenIssuer   = "gophtally-server"
	tokenAudience = "gophtally-client"

	keyBytesSize = 32
	keyHexSize   = 64

	// DefaultTokenDuration is the lifetime of a session token.
	DefaultTokenDuration = 24 * time.Hour
)

// Claims are the verified contents of a session token.
type Claims struct {
	TokenID   string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// TokenService issues and verifies PASETO v4.local session tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenService creates a token service from a 64 character hex key. An
// empty key generates a random one, so tokens do not survive a restart.
func NewTokenService(keyHex string, duration time.Duration) (*TokenService, error) {
	var key paseto.V4SymmetricKey
	if keyHex == "" {
		key = paseto.NewV4SymmetricKey()
	} else {
		if len(keyHex) != keyHexSize {
			return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
		}
		keyBytes, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
		}
		key, err = paseto.V4SymmetricKeyFromBytes(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
		}
	}
	if duration <= 0 {
		duration = DefaultTokenDuration
	}
	return &TokenService{
		key:      key,
		duration: duration,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}, nil
}

// Issue creates a token for the user and returns it with its expiry.
func (s *TokenService) Issue(userID, email string) (string, time.Time) {
	now := s.now()
	exp := now.Add(s.duration)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(exp)
	token.SetJti(uuid.NewString())
	_ = token.Set("email", email)

	return token.V4Encrypt(s.key, nil), exp
}

// Verify decrypts tok and checks its claims. Any failure is ErrUnauthenticated.
func (s *TokenService) Verify(tok string) (*Claims, error) {
	now := s.now()
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(now))

	token, err := parser.ParseV4Local(s.key, tok, nil)
	if err != nil {
		return nil, domainerrors.ErrUnauthenticated.WithCause(err)
	}

	var c Claims
	if c.UserID, err = token.GetSubject(); err != nil {
		return nil, domainerrors.ErrUnauthenticated.WithCause(err)
	}
	if c.TokenID, err = token.GetJti(); err != nil {
		return nil, domainerrors.ErrUnauthenticated.WithCause(err)
	}
	if c.ExpiresAt, err = token.GetExpiration(); err != nil {
		return nil, domainerrors.ErrUnauthenticated.WithCause(err)
	}
	c.Email, _ = token.GetString("email")

	s.mu.Lock()
	_, revoked := s.revoked[c.TokenID]
	s.mu.Unlock()
	if revoked {
		return nil, domainerrors.Newf(domainerrors.CodeUnauthenticated, "session has ended")
	}
	return &c, nil
}

// Revoke invalidates the token described by c until it would have expired anyway.
func (s *TokenService) Revoke(c *Claims) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[c.TokenID] = c.ExpiresAt
}
