package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/model"
)

type fakeSub struct {
	identity model.Identity
	deliver  func(Envelope)

	mu       sync.Mutex
	disposed int
}

func (s *fakeSub) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed++
}

func (s *fakeSub) disposeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

type fakeSource struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
}

func (f *fakeSource) Subscribe(_ context.Context, identity model.Identity, deliver func(Envelope)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSub{identity: identity, deliver: deliver}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) last() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

// recorder is a router whose every handler appends the payload it saw.
type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) router() *Router {
	router := NewRouter(nil)
	for _, name := range event.Names {
		router.Handle(name, func(_ context.Context, _ event.Name, data json.RawMessage) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.seen = append(r.seen, string(data))
			return nil
		})
	}
	return router
}

func (r *recorder) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

var (
	alice = model.Identity{UserID: "u-alice", Role: "buyer", Authenticated: true}
	bob   = model.Identity{UserID: "u-bob", Role: "buyer", Authenticated: true}
)

func frame(data string) Envelope {
	return Envelope{Event: event.NameMessage, Data: json.RawMessage(data)}
}

func TestLifecycleConnectAndDeliver(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	rec := &recorder{}
	l := NewLifecycle(src, rec.router(), nil)
	require.Equal(t, Disconnected, l.State())

	require.NoError(t, l.Connect(context.Background(), alice))
	require.Equal(t, Connected, l.State())
	require.Equal(t, alice, l.Identity())

	src.last().deliver(frame(`{"n":1}`))
	require.Equal(t, []string{`{"n":1}`}, rec.payloads())
}

func TestLifecycleSameUserIsNoop(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	l := NewLifecycle(src, NewRouter(nil), nil)

	require.NoError(t, l.Connect(context.Background(), alice))
	require.NoError(t, l.Connect(context.Background(), alice))
	require.Len(t, src.subs, 1)
	require.Zero(t, src.last().disposeCount())
}

func TestLifecycleIdentityChangeDropsStaleFrames(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	rec := &recorder{}
	l := NewLifecycle(src, rec.router(), nil)

	require.NoError(t, l.Connect(context.Background(), alice))
	aliceSub := src.last()

	require.NoError(t, l.Connect(context.Background(), bob))
	bobSub := src.last()
	require.NotSame(t, aliceSub, bobSub)
	require.Equal(t, 1, aliceSub.disposeCount())
	require.Equal(t, bob, l.Identity())

	// A frame for the old identity arriving after teardown is ignored.
	aliceSub.deliver(frame(`{"for":"alice"}`))
	bobSub.deliver(frame(`{"for":"bob"}`))

	require.Equal(t, []string{`{"for":"bob"}`}, rec.payloads())
}

func TestLifecycleDisconnect(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	rec := &recorder{}
	l := NewLifecycle(src, rec.router(), nil)

	require.NoError(t, l.Connect(context.Background(), alice))
	sub := src.last()

	l.Disconnect()
	l.Disconnect()
	require.Equal(t, Disconnected, l.State())
	require.Equal(t, model.Anonymous, l.Identity())
	require.Equal(t, 1, sub.disposeCount())

	sub.deliver(frame(`{"late":true}`))
	require.Empty(t, rec.payloads())

	// Reconnecting the same user opens a fresh channel.
	require.NoError(t, l.Connect(context.Background(), alice))
	require.Len(t, src.subs, 2)
}

func TestLifecycleConnectFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	src := &fakeSource{err: boom}
	l := NewLifecycle(src, NewRouter(nil), nil)

	err := l.Connect(context.Background(), alice)
	require.True(t, IsChannelError(err))
	require.ErrorIs(t, err, boom)
	require.Equal(t, Disconnected, l.State())
}

func TestLifecycleRejectsAnonymous(t *testing.T) {
	t.Parallel()

	l := NewLifecycle(&fakeSource{}, NewRouter(nil), nil)
	require.ErrorIs(t, l.Connect(context.Background(), model.Anonymous), ErrNotAuthenticated)
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	router := NewRouter(nil)
	router.Handle(event.NameMessage, func(context.Context, event.Name, json.RawMessage) error {
		panic("boom")
	})

	err := router.Dispatch(context.Background(), frame(`{}`))
	require.ErrorContains(t, err, "panic")

	err = router.Dispatch(context.Background(), Envelope{Event: "typing"})
	require.ErrorIs(t, err, event.ErrUnknownEvent)

	require.Equal(t, []event.Name{event.NameMessage}, router.Names())
}

func TestSubscriptionDisposeOnce(t *testing.T) {
	t.Parallel()

	closed := 0
	sub := newSubscription(func() error { closed++; return nil }, nil)
	close(sub.done)

	sub.Dispose()
	sub.Dispose()
	require.Equal(t, 1, closed)
}

func TestEnvelopeDecoding(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"event":"payment_update","data":{"amount":1}}`))
	require.NoError(t, err)
	require.Equal(t, event.NamePaymentUpdate, env.Event)
	require.JSONEq(t, `{"amount":1}`, string(env.Data))

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	require.Error(t, err)

	env, err = envelopeFromDelivery("message", []byte(`{"senderName":"A"}`))
	require.NoError(t, err)
	require.Equal(t, event.NameMessage, env.Event)

	_, err = envelopeFromDelivery("message", []byte(`not json`))
	require.Error(t, err)

	require.Equal(t, "user.u-1", RoutingKey("u-1"))
}
