package http

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"tazzio/internal/budget"
	"tazzio/internal/cache"
	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/session"
	"tazzio/internal/store"
)

// Workspace is the server-side client of one session token: its session
// manager and the budget state attached to it.
type Workspace struct {
	token   string
	session *session.Manager
	budget  *budget.Store
	detach  func()
}

func (ws *Workspace) close() {
	ws.detach()
	ws.budget.Reset()
}

// Registry keeps one workspace per session token. Idle workspaces expire
// from the cache; the remote session itself stays valid and is restored on
// the next request.
type Registry struct {
	remote store.Remote
	logger *log.Logger
	now    func() time.Time

	cache    *cache.LRUCache[*Workspace]
	restores singleflight.Group
}

// RegistryConfig sizes the workspace cache.
type RegistryConfig struct {
	TTL     time.Duration
	MaxSize int
	// Now is the clock handed to every budget store.
	Now func() time.Time
}

func NewRegistry(remote store.Remote, cfg RegistryConfig, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	r := &Registry{
		remote: remote,
		logger: logger.WithComponent(log.ComponentCache),
		now:    cfg.Now,
	}
	r.cache = cache.NewLRUCache[*Workspace](cfg.MaxSize, cfg.TTL,
		cache.WithEvictHandler(func(token string, ws *Workspace) {
			r.logger.Debug("Workspace released", log.FieldUserID, ws.budget.UserID())
			ws.close()
		}))
	return r
}

// Cache exposes the workspace cache for periodic cleanup.
func (r *Registry) Cache() cache.Cleaner { return r.cache }

func (r *Registry) Size() int { return r.cache.Size() }

func (r *Registry) newWorkspace(ctx context.Context) *Workspace {
	m := session.NewManager(r.remote, r.logger)
	b := budget.New(r.remote, budget.WithClock(r.now), budget.WithLogger(r.logger))
	detach := b.Attach(ctx, m)
	return &Workspace{session: m, budget: b, detach: detach}
}

// register caches ws under its token and drops it again once its session
// ends or expires.
func (r *Registry) register(ws *Workspace) {
	ws.token = ws.session.Token()
	token := ws.token
	ws.session.Subscribe(func(_ context.Context, id *core.Identity) {
		if id == nil {
			r.cache.Delete(token)
		}
	})
	r.cache.Set(token, ws)
}

// SignIn authenticates and returns the token of the new workspace. The
// budget state is loaded before returning.
func (r *Registry) SignIn(ctx context.Context, email, password string) (string, core.Identity, error) {
	ws := r.newWorkspace(ctx)
	id, err := ws.session.SignIn(ctx, email, password)
	if err != nil {
		ws.close()
		return "", core.Identity{}, err
	}
	r.register(ws)
	return ws.token, id, nil
}

// Lookup returns the workspace of token, restoring it from the remote
// session when it is not cached. A cached workspace is checked against the
// remote first; an expired session drops it. Concurrent restores of one
// token share a single round trip.
func (r *Registry) Lookup(ctx context.Context, token string) (*Workspace, error) {
	if ws, ok := r.cache.Get(token); ok {
		if err := ws.session.Verify(ctx); err != nil {
			return nil, err
		}
		return ws, nil
	}
	v, err, _ := r.restores.Do(token, func() (any, error) {
		if ws, ok := r.cache.Get(token); ok {
			return ws, nil
		}
		ws := r.newWorkspace(ctx)
		if _, err := ws.session.Restore(ctx, token); err != nil {
			ws.close()
			return nil, err
		}
		r.register(ws)
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

// SignOut ends the session of ws and releases it.
func (r *Registry) SignOut(ctx context.Context, ws *Workspace) error {
	err := ws.session.SignOut(ctx)
	r.cache.Delete(ws.token)
	return err
}

// Close releases every workspace without ending the remote sessions.
func (r *Registry) Close() {
	r.cache.Purge()
}
