package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/alert"
	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/metrics"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/realtime"
	"github.com/kevsands/prop-ie/internal/store"
)

// IdentityProvider supplies the signed-in user and reports changes.
type IdentityProvider interface {
	// Current returns the identity at the time of the call.
	Current() model.Identity

	// Watch returns a channel receiving every subsequent identity, and a
	// function that stops the watch.
	Watch() (<-chan model.Identity, func())
}

// Options configures a Service.
type Options struct {
	// SnapshotKey prefixes the per-user snapshot entry name.
	SnapshotKey string

	// Retention caps the number of persisted records.
	Retention int
}

// Service wires the realtime channel to the notification center for the
// current identity: frames are decoded, normalized and inserted, and the
// center is rehydrated from the user's snapshot whenever the identity
// changes.
type Service struct {
	center     *Center
	normalizer *Normalizer
	lifecycle  *realtime.Lifecycle
	snapshots  store.SnapshotStore
	alerts     alert.Surface
	opts       Options
	logger     *zap.Logger

	mu       sync.Mutex // serializes identity switches
	identity model.Identity

	permission atomic.Int32 // alert.Permission
	alertWG    sync.WaitGroup
}

// NewService returns a Service feeding center from source. alerts may be nil.
func NewService(
	center *Center,
	source realtime.Source,
	snapshots store.SnapshotStore,
	alerts alert.Surface,
	opts Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if alerts == nil {
		alerts = alert.Nop{}
	}
	if opts.SnapshotKey == "" {
		opts.SnapshotKey = "notifications"
	}
	if opts.Retention <= 0 {
		opts.Retention = model.DefaultRetention
	}

	s := &Service{
		center:     center,
		normalizer: NewNormalizer(),
		snapshots:  snapshots,
		alerts:     alerts,
		opts:       opts,
		logger:     logger,
	}

	router := realtime.NewRouter(logger)
	for _, name := range event.Names {
		router.Handle(name, s.handleEvent)
	}
	s.lifecycle = realtime.NewLifecycle(source, router, logger)

	return s
}

// Center returns the notification center fed by the service.
func (s *Service) Center() *Center {
	return s.center
}

// ConnectionState returns the state of the realtime channel.
func (s *Service) ConnectionState() realtime.State {
	return s.lifecycle.State()
}

// Identity returns the identity the service is running for.
func (s *Service) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SnapshotName returns the snapshot entry holding a user's history.
func (s *Service) SnapshotName(userID string) string {
	return s.opts.SnapshotKey + ":" + userID
}

// RequestAlertPermission asks the alert surface for permission once and
// remembers the answer. A surface error leaves alerts disabled.
func (s *Service) RequestAlertPermission(ctx context.Context) alert.Permission {
	p, err := s.alerts.RequestPermission(ctx)
	if err != nil {
		s.logger.Warn("Alert permission request failed", zap.Error(err))
		p = alert.PermissionDefault
	}

	s.permission.Store(int32(p))

	s.logger.Debug("Alert permission", zap.String("permission", p.String()))
	return p
}

// SetIdentity switches the pipeline to identity. A different user tears
// the channel down, rehydrates that user's history and reconnects; a
// signed-out identity leaves the center empty and disconnected. A channel
// that cannot be opened is reported as *realtime.ChannelError; the
// rehydrated history stays available.
func (s *Service) SetIdentity(ctx context.Context, identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity.Authenticated && s.identity.SameUser(identity) &&
		s.lifecycle.State() != realtime.Disconnected {
		s.identity = identity
		return nil
	}

	s.lifecycle.Disconnect()

	if !identity.Authenticated {
		s.identity = model.Anonymous
		s.center.Reset(nil, nil)
		return nil
	}

	if !s.identity.SameUser(identity) {
		// Rehydrate before any live frame can arrive.
		mirror := NewMirror(s.snapshots, s.SnapshotName(identity.UserID), s.opts.Retention, s.logger)
		s.center.Reset(mirror.Rehydrate(ctx), mirror)
	}
	s.identity = identity

	return s.lifecycle.Connect(ctx, identity)
}

// Run follows provider until ctx is done, then disconnects.
func (s *Service) Run(ctx context.Context, provider IdentityProvider) error {
	updates, stop := provider.Watch()
	defer stop()
	defer s.Close()

	s.RequestAlertPermission(ctx)
	s.apply(ctx, provider.Current())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case identity, ok := <-updates:
			if !ok {
				return nil
			}
			s.apply(ctx, identity)
		}
	}
}

func (s *Service) apply(ctx context.Context, identity model.Identity) {
	if err := s.SetIdentity(ctx, identity); err != nil {
		s.logger.Warn("Live notifications unavailable",
			zap.String("user_id", identity.UserID),
			zap.Error(err),
		)
	}
}

// Close disconnects the realtime channel and waits for pending alerts.
func (s *Service) Close() {
	s.lifecycle.Disconnect()
	s.alertWG.Wait()
}

// handleEvent decodes, normalizes and inserts one live event.
func (s *Service) handleEvent(ctx context.Context, name event.Name, data json.RawMessage) error {
	ev, err := event.Decode(name, data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, event.ErrUnknownEvent) {
			reason = "unknown"
		}
		metrics.RecordEventRejected(string(name), reason)
		return err
	}

	rec := s.normalizer.Normalize(ev)
	if !s.center.Insert(ctx, rec) {
		s.logger.Debug("Skipping duplicate notification", zap.String("id", rec.ID))
		return nil
	}

	s.logger.Debug("Notification inserted",
		zap.String("id", rec.ID),
		zap.String("category", string(rec.Category)),
	)
	s.alert(rec)
	return nil
}

// alert shows rec as an OS alert without blocking the caller.
func (s *Service) alert(rec model.Notification) {
	if alert.Permission(s.permission.Load()) != alert.PermissionGranted {
		return
	}

	s.alertWG.Add(1)
	go func() {
		defer s.alertWG.Done()
		if err := s.alerts.Notify(rec.Title, rec.Body); err != nil {
			s.logger.Debug("OS alert failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}()
}
