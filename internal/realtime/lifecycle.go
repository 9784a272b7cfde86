package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/metrics"
	"github.com/kevsands/prop-ie/internal/model"
)

// State is the connection state of a Lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrNotAuthenticated is returned by Connect for a signed-out identity.
var ErrNotAuthenticated = errors.New("identity is not authenticated")

// Lifecycle owns the push channel of the current identity. Each
// connection gets a new generation; frames delivered by a superseded
// generation are dropped, so a torn-down channel can never feed the
// next identity's session.
type Lifecycle struct {
	source Source
	router *Router
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	identity   model.Identity
	generation uint64
	sub        Subscription
	cancel     context.CancelFunc
}

// NewLifecycle returns a disconnected Lifecycle routing frames from source
// through router.
func NewLifecycle(source Source, router *Router, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		source: source,
		router: router,
		logger: logger,
	}
}

// State returns the current connection state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Identity returns the identity the channel is open for, or model.Anonymous.
func (l *Lifecycle) Identity() model.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity
}

// Connect opens the channel for identity. Connecting the same user again
// is a no-op; a different user first tears the current channel down.
// Failures are returned as *ChannelError and leave the Lifecycle
// disconnected; they are not retried.
func (l *Lifecycle) Connect(ctx context.Context, identity model.Identity) error {
	if !identity.Authenticated {
		return ErrNotAuthenticated
	}

	l.mu.Lock()
	if l.state != Disconnected && l.identity.SameUser(identity) {
		l.identity = identity
		l.mu.Unlock()
		return nil
	}
	prevSub, prevCancel := l.detachLocked()
	l.generation++
	gen := l.generation
	l.identity = identity
	l.setStateLocked(Connecting)
	l.mu.Unlock()

	release(prevSub, prevCancel)

	connCtx, cancel := context.WithCancel(context.Background())
	sub, err := l.source.Subscribe(ctx, identity, func(env Envelope) {
		l.deliver(connCtx, gen, env)
	})

	l.mu.Lock()
	if err != nil {
		if l.generation == gen {
			l.identity = model.Anonymous
			l.setStateLocked(Disconnected)
		}
		l.mu.Unlock()
		cancel()

		chErr := &ChannelError{UserID: identity.UserID, Err: err}
		l.logger.Warn("Realtime channel unavailable", zap.Error(chErr))
		return chErr
	}
	if l.generation != gen {
		// Superseded while the channel was opening.
		l.mu.Unlock()
		release(sub, cancel)
		return nil
	}
	l.sub = sub
	l.cancel = cancel
	l.setStateLocked(Connected)
	l.mu.Unlock()

	l.logger.Info("Realtime channel connected",
		zap.String("user_id", identity.UserID),
		zap.String("role", identity.Role),
	)
	return nil
}

// Disconnect tears the channel down. When it returns, no frame from the
// closed channel will reach the router. It is safe to call repeatedly.
func (l *Lifecycle) Disconnect() {
	l.mu.Lock()
	sub, cancel := l.detachLocked()
	l.generation++
	l.identity = model.Anonymous
	l.mu.Unlock()

	release(sub, cancel)
}

// detachLocked moves the lifecycle to Disconnected and hands back the open
// subscription for release outside the lock. l.mu must be held.
func (l *Lifecycle) detachLocked() (Subscription, context.CancelFunc) {
	sub, cancel := l.sub, l.cancel
	l.sub, l.cancel = nil, nil
	if l.state != Disconnected {
		l.setStateLocked(Disconnected)
		l.logger.Info("Realtime channel disconnected", zap.String("user_id", l.identity.UserID))
	}
	return sub, cancel
}

func (l *Lifecycle) setStateLocked(s State) {
	l.state = s
	metrics.RecordTransition(s.String())
}

// deliver routes one frame if it belongs to the current generation.
func (l *Lifecycle) deliver(ctx context.Context, gen uint64, env Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation || l.state == Disconnected {
		metrics.RecordEventRejected(string(env.Event), "stale")
		l.logger.Debug("Dropping frame from closed channel", zap.String("event", string(env.Event)))
		return
	}

	if err := l.router.Dispatch(ctx, env); err != nil {
		l.logger.Warn("Dropping realtime event",
			zap.String("event", string(env.Event)),
			zap.Error(err),
		)
	}
}

// release disposes sub, which blocks until its receive loop has stopped,
// then cancels the per-connection context.
func release(sub Subscription, cancel context.CancelFunc) {
	if sub != nil {
		sub.Dispose()
	}
	if cancel != nil {
		cancel()
	}
}
