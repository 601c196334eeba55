// Package memory is a map-backed Remote Data Store used by tests and by the
// memory data backend.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tazzio/internal/core"
	"tazzio/internal/store"
)

type user struct {
	identity core.Identity
	hash     []byte
}

type expiring struct {
	userID    string
	expiresAt time.Time
}

// Store implements store.Remote in process memory.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user // by id
	byEmail  map[string]string
	sessions map[string]expiring
	resets   map[string]expiring
	settings map[string]core.Settings
	expenses map[string]map[string]core.Expense // user id -> expense id

	sessionTTL time.Duration
	now        func() time.Time
	cost       int
}

type Option func(*Store)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) { s.sessionTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithBcryptCost lowers hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[string]*user),
		byEmail:    make(map[string]string),
		sessions:   make(map[string]expiring),
		resets:     make(map[string]expiring),
		settings:   make(map[string]core.Settings),
		expenses:   make(map[string]map[string]core.Expense),
		sessionTTL: 24 * time.Hour,
		now:        time.Now,
		cost:       bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ store.Remote = (*Store)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateAccount(ctx context.Context, email, password, displayName string) (core.Identity, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.Identity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return core.Identity{}, store.ErrEmailTaken
	}
	id := core.Identity{ID: uuid.NewString(), Email: email, DisplayName: strings.TrimSpace(displayName)}
	s.users[id.ID] = &user{identity: id, hash: hash}
	s.byEmail[email] = id.ID
	return id, nil
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return store.Session{}, store.ErrInvalidCredentials
	}
	u := s.users[uid]
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return store.Session{}, store.ErrInvalidCredentials
	}
	sess := store.Session{
		Token:     uuid.NewString(),
		Identity:  u.identity,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	s.sessions[sess.Token] = expiring{userID: uid, expiresAt: sess.ExpiresAt}
	return sess, nil
}

func (s *Store) EndSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) SessionIdentity(ctx context.Context, token string) (core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.sessionUserLocked(token)
	if err != nil {
		return core.Identity{}, err
	}
	return u.identity, nil
}

func (s *Store) sessionUserLocked(token string) (*user, error) {
	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.expiresAt) {
		return nil, store.ErrSessionExpired
	}
	u, ok := s.users[sess.userID]
	if !ok {
		return nil, store.ErrSessionExpired
	}
	return u, nil
}

func (s *Store) SendPasswordReset(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return "", nil
	}
	token := uuid.NewString()
	s.resets[token] = expiring{userID: uid, expiresAt: s.now().Add(store.ResetTokenTTL)}
	return token, nil
}

// IssueResetToken is SendPasswordReset for tooling.
func (s *Store) IssueResetToken(ctx context.Context, email string) (string, error) {
	return s.SendPasswordReset(ctx, email)
}

func (s *Store) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[resetToken]
	delete(s.resets, resetToken)
	if !ok || !s.now().Before(r.expiresAt) {
		return store.ErrInvalidToken
	}
	u, ok := s.users[r.userID]
	if !ok {
		return store.ErrInvalidToken
	}
	u.hash = hash
	return nil
}

func (s *Store) ChangeEmail(ctx context.Context, token, newEmail string) (core.Identity, error) {
	newEmail = normalizeEmail(newEmail)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.sessionUserLocked(token)
	if err != nil {
		return core.Identity{}, err
	}
	if owner, taken := s.byEmail[newEmail]; taken && owner != u.identity.ID {
		return core.Identity{}, store.ErrEmailTaken
	}
	delete(s.byEmail, u.identity.Email)
	u.identity.Email = newEmail
	s.byEmail[newEmail] = u.identity.ID
	return u.identity, nil
}

func (s *Store) ChangePassword(ctx context.Context, token, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.sessionUserLocked(token)
	if err != nil {
		return err
	}
	u.hash = hash
	return nil
}

func (s *Store) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[userID]
	if !ok {
		return core.Settings{}, store.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *Store) UpsertSettings(ctx context.Context, st core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = s.now().UTC()
	s.settings[st.UserID] = st.Clone()
	return nil
}

func (s *Store) PatchSettings(ctx context.Context, userID string, p store.SettingsPatch) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.settings[userID]
	if !ok {
		return core.Settings{}, store.ErrNotFound
	}
	next := p.Apply(cur, s.now())
	s.settings[userID] = next
	return next.Clone(), nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	bucket, ok := s.expenses[e.UserID]
	if !ok {
		bucket = make(map[string]core.Expense)
		s.expenses[e.UserID] = bucket
	}
	bucket[e.ID] = e
	return e, nil
}

func (s *Store) ReplaceExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.UserID][e.ID]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	s.expenses[e.UserID][e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses[userID], id)
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0, len(s.expenses[userID]))
	for _, e := range s.expenses[userID] {
		out = append(out, e)
	}
	store.SortExpenses(out)
	return out, nil
}
