package api

import (
	"context"
	"sync"

	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/cache"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// cachedAuthPort serves profile reads cache-aside and drops the cached
// profile whenever it changes. Token validation always reaches the auth
// module so deactivated users are rejected immediately.
type cachedAuthPort struct {
	auth.AuthPort
	cache   cache.Store
	logger  types.Logger
	sfGroup singleflight.Group

	// generation is bumped on every invalidation; a load only stores its
	// result if no invalidation happened while it ran.
	mu         sync.Mutex
	generation uint64
}

func newCachedAuthPort(next auth.AuthPort, c cache.Store, logger types.Logger) *cachedAuthPort {
	return &cachedAuthPort{
		AuthPort: next,
		cache:    c,
		logger:   logger,
	}
}

func profileKey(userID string) string {
	return "user:" + userID
}

func (p *cachedAuthPort) currentGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *cachedAuthPort) GetUser(ctx context.Context, userID string) (*auth.UserResponse, error) {
	key := profileKey(userID)

	var cached auth.UserResponse
	found, err := p.cache.Load(ctx, key, &cached)
	if err != nil {
		p.logger.Warn("Profile cache read failed", "user_id", userID, "error", err)
	}
	if found {
		return &cached, nil
	}

	val, err, _ := p.sfGroup.Do(key, func() (any, error) {
		gen := p.currentGeneration()
		user, err := p.AuthPort.GetUser(ctx, userID)
		if err != nil || user == nil {
			return user, err
		}
		p.storeIfCurrent(ctx, key, gen, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	user, _ := val.(*auth.UserResponse)
	return user, nil
}

func (p *cachedAuthPort) storeIfCurrent(ctx context.Context, key string, gen uint64, user *auth.UserResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return
	}
	if err := p.cache.Save(ctx, key, user); err != nil {
		p.logger.Warn("Profile cache write failed", "user_id", user.ID, "error", err)
	}
}

func (p *cachedAuthPort) invalidate(ctx context.Context, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	if err := p.cache.Evict(ctx, profileKey(userID)); err != nil {
		p.logger.Warn("Profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

func (p *cachedAuthPort) UpdateUser(ctx context.Context, req *auth.UpdateUserRequest) (*auth.UserResponse, error) {
	user, err := p.AuthPort.UpdateUser(ctx, req)
	p.invalidate(ctx, req.UserID)
	return user, err
}
