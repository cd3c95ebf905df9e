package server

import (
	"context"
	"sync"
	"time"

	"github.com/avatarsync/avatarsync/internal/core/avatar"
	"github.com/avatarsync/avatarsync/internal/core/config"
	"github.com/avatarsync/avatarsync/internal/core/movement"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

// keyEvent is one keyboard transition destined for an avatar's integrator.
type keyEvent struct {
	avatarID string
	code     movement.Key
	down     bool
}

// Loop drives all avatar instances from a single goroutine. Keyboard events
// and instance registrations arrive on channels and are drained at frame
// boundaries, so instances are only ever touched by the loop goroutine and
// the pressed-key sets need no locking.
type Loop struct {
	cfg    config.Server
	root   *scene.Node
	logger log.Log

	instances map[string]*avatar.Instance

	// roster mirrors the managed avatar ids for lookups from transport
	// goroutines; instances itself stays loop-owned.
	rosterMu sync.Mutex
	roster   map[string]struct{}

	keys chan keyEvent
	adds chan *avatar.Instance
}

// NewLoop creates a tick loop rooted at the given scene node.
func NewLoop(cfg config.Server, root *scene.Node, logger log.Log) *Loop {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 60
	}
	return &Loop{
		cfg:       cfg,
		root:      root,
		logger:    logger.With(log.String("component", "loop")),
		instances: make(map[string]*avatar.Instance),
		roster:    make(map[string]struct{}),
		keys:      make(chan keyEvent, 256),
		adds:      make(chan *avatar.Instance, 16),
	}
}

// Add schedules an instance for management; it is picked up at the next frame
// boundary. Attach is performed (and retried) by the loop itself.
func (l *Loop) Add(in *avatar.Instance) {
	l.rosterMu.Lock()
	l.roster[in.AvatarID()] = struct{}{}
	l.rosterMu.Unlock()
	l.adds <- in
}

// Knows reports whether an avatar id is managed by this loop. Safe to call
// from any goroutine.
func (l *Loop) Knows(avatarID string) bool {
	l.rosterMu.Lock()
	defer l.rosterMu.Unlock()
	_, ok := l.roster[avatarID]
	return ok
}

func (l *Loop) forget(avatarID string) {
	l.rosterMu.Lock()
	delete(l.roster, avatarID)
	l.rosterMu.Unlock()
}

// Push enqueues a keyboard event. Events that do not fit the buffer are
// dropped rather than blocking the transport goroutine.
func (l *Loop) Push(avatarID string, code movement.Key, down bool) {
	select {
	case l.keys <- keyEvent{avatarID: avatarID, code: code, down: down}:
	default:
		l.logger.Warn("keyboard buffer full, dropping event",
			log.String("avatar_id", avatarID),
			log.String("code", string(code)))
	}
}

// Run blocks until ctx is cancelled, ticking at the configured rate with a
// measured delta time. All instances are torn down on the way out.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("tick loop started",
		log.Int("tick_rate_hz", l.cfg.TickRateHz))

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.teardownAll()
			l.logger.Info("tick loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			l.frame(dt)
		}
	}
}

// frame runs one tick: drain registrations and keyboard events, then advance
// every instance.
func (l *Loop) frame(dt float32) {
	l.drainAdds()
	l.drainKeys()

	for id, in := range l.instances {
		switch in.State() {
		case avatar.StateUnattached:
			l.attach(id, in)
		case avatar.StateAttached:
			in.Tick(dt)
		}
	}
}

func (l *Loop) drainAdds() {
	for {
		select {
		case in := <-l.adds:
			if prev, ok := l.instances[in.AvatarID()]; ok {
				prev.Teardown()
			}
			l.instances[in.AvatarID()] = in
		default:
			return
		}
	}
}

func (l *Loop) drainKeys() {
	for {
		select {
		case ev := <-l.keys:
			in, ok := l.instances[ev.avatarID]
			if !ok {
				continue
			}
			if ev.down {
				in.KeyDown(ev.code)
			} else {
				in.KeyUp(ev.code)
			}
		default:
			return
		}
	}
}

// attach mounts an unattached instance. A missing scene node or model is
// retried next frame; a duplicate-instance rejection is terminal and the
// instance is dropped from the loop.
func (l *Loop) attach(id string, in *avatar.Instance) {
	err := in.Attach(l.root)
	switch {
	case err == nil:
	case err == avatar.ErrDuplicateInstance:
		l.logger.Warn("avatar already owned, dropping instance",
			log.String("avatar_id", id),
			log.String("instance_id", in.InstanceID()))
		delete(l.instances, id)
		l.forget(id)
	default:
		l.logger.Debug("attach deferred",
			log.String("avatar_id", id),
			log.Error(err))
	}
}

func (l *Loop) teardownAll() {
	for id, in := range l.instances {
		in.Teardown()
		delete(l.instances, id)
		l.forget(id)
	}
}
