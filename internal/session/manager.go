// Package session owns the authenticated identity of one client and tells
// subscribers whenever it changes.
package session

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/store"
)

const minPasswordLen = 6

// Listener receives the new identity, nil after sign-out or expiry.
type Listener func(ctx context.Context, id *core.Identity)

type subscription struct {
	id int
	fn Listener
}

type Manager struct {
	auth   store.Auth
	logger *log.Logger

	mu      sync.RWMutex
	current *store.Session

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

func NewManager(auth store.Auth, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{auth: auth, logger: logger.WithComponent(log.ComponentSession)}
}

// Subscribe registers fn. Listeners run synchronously, in registration
// order, on the goroutine that changed the identity.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) notify(ctx context.Context, id *core.Identity) {
	m.subMu.Lock()
	subs := append([]subscription(nil), m.subs...)
	m.subMu.Unlock()
	for _, s := range subs {
		s.fn(ctx, id)
	}
}

func (m *Manager) set(ctx context.Context, sess *store.Session) {
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	if sess == nil {
		m.notify(ctx, nil)
		return
	}
	id := sess.Identity
	m.notify(ctx, &id)
}

// Current returns the signed-in identity.
func (m *Manager) Current() (core.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return core.Identity{}, false
	}
	return m.current.Identity, true
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return core.Invalid("email", "required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return core.Invalid("email", "malformed address")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return core.Invalid("password", "must be at least 6 characters")
	}
	return nil
}

// SignUp registers an account. It neither signs in nor provisions settings.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (core.Identity, error) {
	if err := validateEmail(email); err != nil {
		return core.Identity{}, wrap(log.OpSignUp, err)
	}
	if err := validatePassword(password); err != nil {
		return core.Identity{}, wrap(log.OpSignUp, err)
	}
	id, err := m.auth.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		m.logger.WarnContext(ctx, "Sign up failed", log.FieldError, err)
		return core.Identity{}, wrap(log.OpSignUp, err)
	}
	m.logger.InfoContext(ctx, "Account registered", log.FieldUserID, id.ID)
	return id, nil
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (core.Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return core.Identity{}, wrap(log.OpSignIn, store.ErrInvalidCredentials)
	}
	sess, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		return core.Identity{}, wrap(log.OpSignIn, err)
	}
	m.logger.InfoContext(ctx, "Signed in", log.FieldUserID, sess.Identity.ID)
	m.set(ctx, &sess)
	return sess.Identity, nil
}

// Restore adopts an existing remote session token.
func (m *Manager) Restore(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, wrap(log.OpSignIn, ErrNotAuthenticated)
	}
	id, err := m.auth.SessionIdentity(ctx, token)
	if err != nil {
		return core.Identity{}, wrap(log.OpSignIn, err)
	}
	m.set(ctx, &store.Session{Token: token, Identity: id})
	return id, nil
}

// Verify checks the current token against the remote. A session the remote
// no longer knows is invalidated, so subscribers drop its state.
func (m *Manager) Verify(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return wrap(log.OpVerify, ErrNotAuthenticated)
	}
	id, err := m.auth.SessionIdentity(ctx, token)
	if err != nil {
		wrapped := wrap(log.OpVerify, err)
		if KindOf(wrapped) == KindNotAuthenticated {
			m.Invalidate(ctx)
		}
		return wrapped
	}
	if cur, ok := m.Current(); !ok || cur != id {
		m.set(ctx, &store.Session{Token: token, Identity: id})
	}
	return nil
}

// SignOut always clears the local identity, even when the remote call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return nil
	}
	err := m.auth.EndSession(ctx, token)
	if err != nil {
		m.logger.WarnContext(ctx, "Remote sign out failed", log.FieldError, err)
	}
	m.set(ctx, nil)
	return wrap(log.OpSignOut, err)
}

// Invalidate drops a session the remote reported as expired.
func (m *Manager) Invalidate(ctx context.Context) {
	if m.Token() == "" {
		return
	}
	m.logger.InfoContext(ctx, "Session expired")
	m.set(ctx, nil)
}

// RequestPasswordReset asks the remote to send a reset link. Unknown
// addresses are not reported.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return wrap(log.OpReset, err)
	}
	if _, err := m.auth.SendPasswordReset(ctx, email); err != nil {
		return wrap(log.OpReset, err)
	}
	return nil
}

func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return wrap(log.OpReset, core.Invalid("token", "required"))
	}
	if err := validatePassword(newPassword); err != nil {
		return wrap(log.OpReset, err)
	}
	return wrap(log.OpReset, m.auth.ResetPassword(ctx, token, newPassword))
}

func (m *Manager) UpdateEmail(ctx context.Context, newEmail string) error {
	if err := validateEmail(newEmail); err != nil {
		return wrap(log.OpUpdate, err)
	}
	token := m.Token()
	if token == "" {
		return wrap(log.OpUpdate, ErrNotAuthenticated)
	}
	id, err := m.auth.ChangeEmail(ctx, token, newEmail)
	if err != nil {
		return m.remoteFailure(ctx, err)
	}
	m.set(ctx, &store.Session{Token: token, Identity: id})
	return nil
}

func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return wrap(log.OpUpdate, err)
	}
	token := m.Token()
	if token == "" {
		return wrap(log.OpUpdate, ErrNotAuthenticated)
	}
	if err := m.auth.ChangePassword(ctx, token, newPassword); err != nil {
		return m.remoteFailure(ctx, err)
	}
	return nil
}

func (m *Manager) remoteFailure(ctx context.Context, err error) error {
	wrapped := wrap(log.OpUpdate, err)
	if KindOf(wrapped) == KindNotAuthenticated {
		m.Invalidate(ctx)
	}
	return wrapped
}
