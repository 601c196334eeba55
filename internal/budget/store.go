// Package budget holds the per-identity budget state: the settings document
// and expense list loaded from the Remote Data Store, the mutations that
// keep both in sync with it, and the views derived from them.
package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/session"
	"tazzio/internal/store"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Remote is the part of the Remote Data Store the budget state needs.
type Remote interface {
	store.SettingsStore
	store.ExpenseStore
}

// Store is the budget state of one session. Mutations are serialised by
// writeMu; reads take a copy under mu.
type Store struct {
	remote  Remote
	session *session.Manager
	logger  *log.Logger
	now     func() time.Time

	writeMu sync.Mutex
	loads   singleflight.Group

	mu         sync.RWMutex
	state      State
	userID     string
	generation uint64
	settings   core.Settings
	expenses   []core.Expense
}

type Option func(*Store)

// WithClock sets the clock used for "today" and the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(remote Remote, opts ...Option) *Store {
	s := &Store{remote: remote, now: time.Now, logger: log.Discard()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	return s
}

// Attach ties the store to m: every identity change resets the state and a
// new identity is loaded right away. If m already has an identity it is
// adopted immediately.
func (s *Store) Attach(ctx context.Context, m *session.Manager) (detach func()) {
	s.mu.Lock()
	s.session = m
	s.mu.Unlock()
	unsubscribe := m.Subscribe(s.onIdentity)
	if id, ok := m.Current(); ok {
		s.onIdentity(ctx, &id)
	}
	return unsubscribe
}

func (s *Store) onIdentity(ctx context.Context, id *core.Identity) {
	s.mu.Lock()
	if id != nil && id.ID == s.userID {
		// Same account (e.g. email changed); the budget state is still valid.
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	if id != nil {
		s.userID = id.ID
	}
	s.mu.Unlock()

	if id == nil {
		return
	}
	if err := s.Reload(ctx); err != nil {
		s.logger.WarnContext(ctx, "Initial load failed, will retry on next use",
			log.NewFields().WithOperation(log.OpLoad).WithUser(id.ID).WithError(err).ToSlice()...)
	}
}

// Reset drops all state. Calls in flight finish with ErrStaleSession.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.userID = ""
	s.mu.Unlock()
}

func (s *Store) resetLocked() {
	s.generation++
	s.state = StateUninitialized
	s.settings = core.Settings{}
	s.expenses = nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UserID is the identity the state belongs to, "" when signed out.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Reload fetches settings and expenses again. Concurrent calls for the same
// identity share one round trip.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.RLock()
	key := fmt.Sprintf("%s/%d", s.userID, s.generation)
	s.mu.RUnlock()
	_, err, _ := s.loads.Do(key, func() (any, error) {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return nil, s.loadLocked(ctx)
	})
	return err
}

// loadLocked requires writeMu.
func (s *Store) loadLocked(ctx context.Context) error {
	s.mu.Lock()
	userID, gen := s.userID, s.generation
	if userID == "" {
		s.mu.Unlock()
		return session.ErrNotAuthenticated
	}
	s.state = StateLoading
	s.mu.Unlock()

	var (
		settings core.Settings
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.remote.GetSettings(gctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			st = core.DefaultSettings(userID, s.now())
			if err := s.remote.UpsertSettings(gctx, st); err != nil {
				return err
			}
			s.logger.InfoContext(ctx, "Provisioned default settings", log.FieldUserID, userID)
		} else if err != nil {
			return err
		}
		settings = st
		return nil
	})
	g.Go(func() error {
		list, err := s.remote.ListExpenses(gctx, userID)
		if err != nil {
			return err
		}
		expenses = list
		return nil
	})
	if err := g.Wait(); err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.state = StateUninitialized
		}
		s.mu.Unlock()
		return s.remoteErr(ctx, log.OpLoad, err)
	}

	settings.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrStaleSession
	}
	s.settings = settings
	s.expenses = expenses
	s.state = StateReady
	s.logger.DebugContext(ctx, "Budget state loaded",
		log.FieldUserID, userID, "expenses", len(expenses))
	return nil
}

// ready loads the state if needed and returns a private copy of it together
// with the generation it belongs to. Requires writeMu.
func (s *Store) ready(ctx context.Context) (string, uint64, core.Settings, []core.Expense, error) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateReady {
		if err := s.loadLocked(ctx); err != nil {
			return "", 0, core.Settings{}, nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.generation, s.settings.Clone(), append([]core.Expense(nil), s.expenses...), nil
}

// commit applies fn to the live state unless the identity changed since gen.
func (s *Store) commit(gen uint64, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrStaleSession
	}
	fn()
	return nil
}

func (s *Store) remoteErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, store.ErrSessionExpired) {
		s.mu.RLock()
		m := s.session
		s.mu.RUnlock()
		if m != nil {
			m.Invalidate(ctx)
		}
		return &session.AuthError{Kind: session.KindNotAuthenticated, Op: op, Err: err}
	}
	if errors.Is(err, ErrStaleSession) || errors.Is(err, session.ErrNotAuthenticated) {
		return err
	}
	s.logger.ErrorContext(ctx, "Remote call failed",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	return &RemoteError{Op: op, Err: err}
}

// Snapshot returns a deep copy of the current state for the derived views.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:    s.state,
		Settings: s.settings.Clone(),
		Expenses: append([]core.Expense(nil), s.expenses...),
		Now:      s.now,
	}
}

// Translate looks key up in the active language.
func (s *Store) Translate(key string) string {
	return s.Snapshot().Translate(key)
}

// FormatAmount renders m with the active currency symbol.
func (s *Store) FormatAmount(m core.Money) string {
	return s.Snapshot().FormatAmount(m)
}
