package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/fjod/go_cart/shopcart/internal/identity"
)

const DefaultSessionKey = "CART-ID"

// SessionBackend keeps cart state in the visitor session under a single key.
type SessionBackend struct {
	session identity.Session
	key     string
}

func NewSessionBackend(session identity.Session, key string) *SessionBackend {
	if key == "" {
		key = DefaultSessionKey
	}
	return &SessionBackend{session: session, key: key}
}

func (s *SessionBackend) Load(context.Context) (domain.State, error) {
	data, ok := s.session.Get(s.key)
	if !ok || len(data) == 0 {
		return domain.State{}, nil
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session cart failed: %w", err)
	}
	if state == nil {
		state = domain.State{}
	}
	return state, nil
}

func (s *SessionBackend) Save(_ context.Context, state domain.State) error {
	if state == nil {
		state = domain.State{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session cart failed: %w", err)
	}
	s.session.Set(s.key, data)
	s.session.MarkModified()
	return nil
}

// Clear resets the key to the empty state rather than deleting it.
func (s *SessionBackend) Clear(ctx context.Context) error {
	return s.Save(ctx, domain.State{})
}
