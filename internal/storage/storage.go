// Package storage persists cart state. Every backend stores the same namespaced
// shape, domain.State: cart prefix -> {items, metadata}.
package storage

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/shopcart/internal/domain"
)

var (
	ErrNoSession     = errors.New("identity has no session")
	ErrMisconfigured = errors.New("storage misconfigured")
)

type Backend interface {
	// Load returns the persisted state, or an empty state when nothing is stored.
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
	// Clear drops every cart slot for the current identity.
	Clear(ctx context.Context) error
}

// Superseding is implemented by backends that replace an earlier one for the
// same visitor, e.g. the account record that replaces the anonymous session.
type Superseding interface {
	Backend
	// Predecessor returns the backend to migrate from, or nil.
	Predecessor() Backend
}
