package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

type TokenBlocklistProvider interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) bool
}

// TokenBlocklist remembers revoked access tokens by jti until they would have expired anyway.
type TokenBlocklist struct {
	ristretto *ristretto.Cache
	cache     *cache.Cache[bool]
}

func NewTokenBlocklist() (*TokenBlocklist, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &TokenBlocklist{
		ristretto: ristrettoCache,
		cache:     cache.New[bool](ristretto_store.NewRistretto(ristrettoCache)),
	}, nil
}

func (b *TokenBlocklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("token has no jti")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.cache.Set(ctx, jti, true, store.WithExpiration(ttl), store.WithCost(1)); err != nil {
		return err
	}
	// ristretto applies writes asynchronously
	b.ristretto.Wait()
	return nil
}

func (b *TokenBlocklist) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	revoked, err := b.cache.Get(ctx, jti)
	return err == nil && revoked
}
