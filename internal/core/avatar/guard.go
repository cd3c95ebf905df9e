package avatar

import (
	"sync"

	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

// Registry enforces at most one live owner instance per avatar identity. It
// is an explicit, injected object rather than process-global state; every
// pipeline that must share ownership must share the same Registry.
type Registry struct {
	mu     sync.Mutex
	owners map[string]string // avatarID -> owning instanceID
	logger log.Log
}

// NewRegistry creates an empty ownership registry.
func NewRegistry(logger log.Log) *Registry {
	return &Registry{
		owners: make(map[string]string),
		logger: logger.With(log.String("component", "instance_guard")),
	}
}

// Acquire makes instanceID the owner of avatarID if the slot is free. While
// an owner is active every other acquire for the same avatar returns false
// and the caller must operate as a no-op.
func (r *Registry) Acquire(avatarID, instanceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.owners[avatarID]; taken {
		if owner == instanceID {
			return true
		}
		r.logger.Warn("duplicate instance rejected",
			log.String("avatar_id", avatarID),
			log.String("owner", owner),
			log.String("rejected", instanceID))
		return false
	}

	r.owners[avatarID] = instanceID
	r.logger.Debug("ownership acquired",
		log.String("avatar_id", avatarID),
		log.String("instance_id", instanceID))
	return true
}

// Release frees the slot if instanceID is the current owner. Idempotent: a
// second release, or a release by a rejected instance, changes nothing.
func (r *Registry) Release(avatarID, instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners[avatarID] != instanceID {
		return
	}
	delete(r.owners, avatarID)
	r.logger.Debug("ownership released",
		log.String("avatar_id", avatarID),
		log.String("instance_id", instanceID))
}

// Owner reports the current owning instance for an avatar, if any.
func (r *Registry) Owner(avatarID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owners[avatarID]
	return id, ok
}
