// Package realtime connects the signed-in user to the server's push channel
// and routes the events it carries.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/model"
)

// Envelope is the wire frame shared by every transport.
type Envelope struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a wire frame.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("decoding envelope: missing event name")
	}
	return env, nil
}

// Source opens per-user push channels.
type Source interface {
	// Subscribe opens the channel for identity and calls deliver for every
	// frame until the returned Subscription is disposed. deliver is called
	// from a single goroutine.
	Subscribe(ctx context.Context, identity model.Identity, deliver func(Envelope)) (Subscription, error)
}

// Subscription is an open push channel.
type Subscription interface {
	// Dispose stops delivery and closes the channel. When it returns no
	// further frames are delivered. It is safe to call more than once.
	Dispose()
}

// ChannelError reports a push channel that could not be opened.
type ChannelError struct {
	UserID string
	Err    error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("opening channel for user %s: %v", e.UserID, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsChannelError reports whether err (or any error in its chain) is a
// ChannelError.
func IsChannelError(err error) bool {
	var chErr *ChannelError
	return errors.As(err, &chErr)
}

// subscription runs one receive loop. Dispose closes stop, waits for the
// loop to return, then closes the transport.
type subscription struct {
	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
	closeFn func() error
	onClose func(error)
}

func newSubscription(closeFn func() error, onClose func(error)) *subscription {
	return &subscription{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		closeFn: closeFn,
		onClose: onClose,
	}
}

func (s *subscription) Dispose() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done

		var err error
		if s.closeFn != nil {
			err = s.closeFn()
		}
		if s.onClose != nil {
			s.onClose(err)
		}
	})
}
