package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/cache"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/fjod/go_cart/shopcart/internal/repository"
)

type Kind string

const (
	KindSession Kind = "session"
	KindCache   Kind = "cache"
	KindDurable Kind = "durable"
	KindCustom  Kind = "custom"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSession, KindCache, KindDurable, KindCustom:
		return k, nil
	case "":
		return KindSession, nil
	default:
		return "", fmt.Errorf("%w: unknown storage backend %q", ErrMisconfigured, s)
	}
}

// Factory builds a backend for an identity; it backs KindCustom.
type Factory func(ident identity.Context) (Backend, error)

type Options struct {
	Kind Kind
	// SessionKey names the session entry; it is also the default cache key prefix.
	SessionKey     string
	CacheKeyPrefix string
	CacheTTL       time.Duration
	Cache          cache.StateCache
	Repository     repository.CartRepository
	Custom         Factory
}

// Selector picks the backend for each identity from configuration fixed at startup.
type Selector struct {
	opts Options
}

func NewSelector(opts Options) (*Selector, error) {
	if opts.SessionKey == "" {
		opts.SessionKey = DefaultSessionKey
	}
	if opts.CacheKeyPrefix == "" {
		opts.CacheKeyPrefix = opts.SessionKey
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Kind == "" {
		opts.Kind = KindSession
	}

	switch opts.Kind {
	case KindSession:
	case KindCache:
		if opts.Cache == nil {
			return nil, fmt.Errorf("%w: cache backend requires a cache", ErrMisconfigured)
		}
		if opts.CacheTTL < 0 {
			return nil, fmt.Errorf("%w: negative cache ttl %s", ErrMisconfigured, opts.CacheTTL)
		}
	case KindDurable:
		if opts.Repository == nil {
			return nil, fmt.Errorf("%w: durable backend requires a repository", ErrMisconfigured)
		}
	case KindCustom:
		if opts.Custom == nil {
			return nil, fmt.Errorf("%w: custom backend requires a factory", ErrMisconfigured)
		}
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", ErrMisconfigured, opts.Kind)
	}

	return &Selector{opts: opts}, nil
}

func (s *Selector) Kind() Kind { return s.opts.Kind }

// Backend returns the backend for ident. Durable and cache backends for a
// visitor who is authenticated and still carries a session declare the
// session-scoped storage as their predecessor.
func (s *Selector) Backend(ident identity.Context) (Backend, error) {
	switch s.opts.Kind {
	case KindCache:
		return s.cacheBackend(ident)
	case KindDurable:
		if !ident.Authenticated() {
			return s.sessionBackend(ident)
		}
		b := NewDurableBackend(s.opts.Repository, ident.AccountID())
		if ident.Session() != nil {
			b.predecessor = NewSessionBackend(ident.Session(), s.opts.SessionKey)
		}
		return b, nil
	case KindCustom:
		return s.opts.Custom(ident)
	default:
		return s.sessionBackend(ident)
	}
}

func (s *Selector) sessionBackend(ident identity.Context) (Backend, error) {
	if ident.Session() == nil {
		return nil, ErrNoSession
	}
	return NewSessionBackend(ident.Session(), s.opts.SessionKey), nil
}

func (s *Selector) cacheBackend(ident identity.Context) (Backend, error) {
	if !ident.Authenticated() {
		if ident.SessionID() == "" {
			return nil, ErrNoSession
		}
		return NewCacheBackend(s.opts.Cache, s.opts.CacheKeyPrefix, ident.SessionID(), s.opts.CacheTTL), nil
	}

	b := NewCacheBackend(s.opts.Cache, s.opts.CacheKeyPrefix, ident.AccountID(), s.opts.CacheTTL)
	if ident.SessionID() != "" {
		b.predecessor = NewCacheBackend(s.opts.Cache, s.opts.CacheKeyPrefix, ident.SessionID(), s.opts.CacheTTL)
	}
	return b, nil
}
