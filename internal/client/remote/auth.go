package remote

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// Providers accepted by SignInWithProvider.
var supportedProviders = map[string]bool{
	"google":  true,
	"github":  true,
	"twitter": true,
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	return c.authenticate(ctx, "/api/auth/signup", credentials{Email: email, Password: password, DisplayName: displayName})
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	return c.authenticate(ctx, "/api/auth/signin", credentials{Email: email, Password: password})
}

// SignInWithProvider signs in through a federated provider.
func (c *Client) SignInWithProvider(ctx context.Context, provider string) (*models.Identity, error) {
	if !supportedProviders[provider] {
		return nil, domainerrors.Newf(domainerrors.CodeOperationNotAllowed, "unsupported provider: %s", provider)
	}
	return c.authenticate(ctx, "/api/auth/provider/"+url.PathEscape(provider), struct{}{})
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (*models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, http.MethodPost, path, in, &id); err != nil {
		return nil, authError(err)
	}
	c.setIdentity(&id)
	out := id
	return &out, nil
}

// SignOut ends the session. The local identity and the cache are cleared even
// when the server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token() != "" {
		if err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
			c.log.Warn("server sign-out failed", zap.Error(err))
		}
	}
	c.cache.Clear()
	c.setIdentity(nil)
	return nil
}

// ResetPassword asks the server to send a reset mail to email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	in := struct {
		Email string `json:"email"`
	}{email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", in, nil); err != nil {
		return authError(err)
	}
	return nil
}

// Me returns the identity the server associates with the current token.
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	var id models.Identity
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// CurrentIdentity returns a copy of the signed-in identity, or nil.
func (c *Client) CurrentIdentity() *models.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

// OnAuthStateChanged calls fn with the current identity right away and again
// on every sign-in or sign-out. The returned func unregisters fn.
func (c *Client) OnAuthStateChanged(fn func(*models.Identity)) func() {
	c.mu.Lock()
	key := c.nextID
	c.nextID++
	c.listeners[key] = fn
	c.mu.Unlock()

	fn(c.CurrentIdentity())

	return func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.mu.Unlock()
	}
}

func (c *Client) setIdentity(id *models.Identity) {
	c.mu.Lock()
	if id == nil {
		c.identity = nil
	} else {
		cp := *id
		c.identity = &cp
	}
	fns := make([]func(*models.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(c.CurrentIdentity())
	}
}

// authError reports transport failures of auth calls with the auth code.
func authError(err error) error {
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeUnavailable, domainerrors.CodeDeadlineExceeded:
		return domainerrors.ErrNetworkFailed.WithCause(err)
	}
	return err
}
