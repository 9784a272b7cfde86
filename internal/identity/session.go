// Package identity tracks who is signed in to the notification client.
package identity

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/credential"
	"github.com/kevsands/prop-ie/internal/model"
)

// TokenStore persists the access token between runs.
type TokenStore interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
}

// Session holds the current identity and notifies watchers of changes.
type Session struct {
	secret []byte
	tokens TokenStore
	logger *zap.Logger

	mu       sync.Mutex
	identity model.Identity
	watchers map[int]chan model.Identity
	nextID   int
}

// NewSession returns a signed-out Session verifying tokens with secret.
// tokens may be nil, in which case nothing is persisted.
func NewSession(secret []byte, tokens TokenStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		secret:   secret,
		tokens:   tokens,
		logger:   logger,
		watchers: make(map[int]chan model.Identity),
	}
}

// Restore signs in with the stored token, if any. A token that no longer
// verifies is discarded and the session stays signed out.
func (s *Session) Restore() model.Identity {
	if s.tokens == nil {
		return s.Current()
	}

	token, err := s.tokens.Get(credential.TokenKey)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			s.logger.Warn("Reading stored access token", zap.Error(err))
		}
		return s.Current()
	}

	id, err := ParseToken(token, s.secret)
	if err != nil {
		s.logger.Info("Discarding stored access token", zap.Error(err))
		if err := s.tokens.Delete(credential.TokenKey); err != nil {
			s.logger.Warn("Deleting stored access token", zap.Error(err))
		}
		return s.Current()
	}

	s.set(id)
	return id
}

// Login verifies token, stores it and switches to its identity.
func (s *Session) Login(token string) (model.Identity, error) {
	id, err := ParseToken(token, s.secret)
	if err != nil {
		return model.Anonymous, err
	}

	if s.tokens != nil {
		if err := s.tokens.Set(credential.TokenKey, token); err != nil {
			return model.Anonymous, fmt.Errorf("storing access token: %w", err)
		}
	}

	s.set(id)
	s.logger.Info("Signed in", zap.String("user_id", id.UserID), zap.String("role", id.Role))
	return id, nil
}

// Logout forgets the stored token and signs out.
func (s *Session) Logout() error {
	s.set(model.Anonymous)

	if s.tokens != nil {
		if err := s.tokens.Delete(credential.TokenKey); err != nil {
			return fmt.Errorf("removing access token: %w", err)
		}
	}
	s.logger.Info("Signed out")
	return nil
}

// Current returns the current identity.
func (s *Session) Current() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Watch returns a channel receiving the identity after every change. A
// slow reader only sees the latest identity. The returned function stops
// the watch and closes the channel.
func (s *Session) Watch() (<-chan model.Identity, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan model.Identity, 1)
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) set(id model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = id
	for _, ch := range s.watchers {
		select {
		case ch <- id:
		default:
			// Replace the unread identity with the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- id
		}
	}
}
