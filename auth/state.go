package auth

import (
	"fmt"
	"sync"
	"time"

	"agentchat/storage"

	"github.com/rs/zerolog"
)

// State is the process-wide identity. It is read once at startup and then
// changed only by SignIn and SignOut.
type State struct {
	mu     sync.RWMutex
	kv     storage.KeyValueStore
	user   *User
	now    func() time.Time
	logger zerolog.Logger
}

func NewState(kv storage.KeyValueStore, logger zerolog.Logger) *State {
	return &State{
		kv:     kv,
		now:    time.Now,
		logger: logger,
	}
}

// Restore loads the persisted identity. Expired or unreadable records are
// cleared so the login screen is shown.
func (s *State) Restore() error {
	var user User
	ok, err := storage.LoadJSON(s.kv, storage.KeyUser, &user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable identity")
		return s.kv.Delete(storage.KeyUser)
	}
	if !ok {
		return nil
	}

	if user.Expired(s.now()) {
		s.logger.Info().Str("sub", user.Sub).Msg("stored identity expired")
		return s.kv.Delete(storage.KeyUser)
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.logger.Debug().Str("sub", user.Sub).Msg("identity restored")
	return nil
}

// SignIn persists user and makes it current
func (s *State) SignIn(user User) error {
	if err := storage.SaveJSON(s.kv, storage.KeyUser, user); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.logger.Info().Str("sub", user.Sub).Bool("guest", user.IsGuest()).Msg("signed in")
	return nil
}

// SignOut forgets the current identity
func (s *State) SignOut() error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	if err := s.kv.Delete(storage.KeyUser); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}

	s.logger.Info().Msg("signed out")
	return nil
}

// Current returns the signed-in identity, if any
func (s *State) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}
