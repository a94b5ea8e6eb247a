package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

const (
	jwksCacheTTL = time.Hour

	revocationPruneInterval = 10 * time.Minute
)

// revocationList remembers signed-out token IDs until the token would have
// expired anyway. Expired entries are pruned on add at most once per
// revocationPruneInterval.
type revocationList struct {
	entries sync.Map
	now     func() time.Time

	mu        sync.Mutex
	lastPrune time.Time
}

func newRevocationList(now func() time.Time) *revocationList {
	return &revocationList{now: now}
}

func (l *revocationList) add(tokenID string, expiresAt time.Time) {
	l.entries.Store(tokenID, expiresAt)
	l.pruneIfDue()
}

func (l *revocationList) contains(tokenID string) bool {
	val, ok := l.entries.Load(tokenID)
	if !ok {
		return false
	}

	if l.now().After(val.(time.Time)) {
		l.entries.Delete(tokenID)
		return false
	}
	return true
}

func (l *revocationList) pruneIfDue() {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) < revocationPruneInterval {
		l.mu.Unlock()
		return
	}
	l.lastPrune = now
	l.mu.Unlock()

	l.prune(now)
}

func (l *revocationList) prune(now time.Time) {
	l.entries.Range(func(key, val any) bool {
		if now.After(val.(time.Time)) {
			l.entries.Delete(key)
		}
		return true
	})
}

func (l *revocationList) len() int {
	n := 0
	l.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// keySetCache fetches the provider's JWKS and keeps it for jwksCacheTTL
type keySetCache struct {
	url string

	mu        sync.Mutex
	set       jwk.Set
	fetchedAt time.Time
}

func newKeySetCache(url string) *keySetCache {
	return &keySetCache{url: url}
}

func (c *keySetCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil && time.Since(c.fetchedAt) < jwksCacheTTL {
		return c.set, nil
	}

	set, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		// Keep serving the stale set rather than locking everyone out
		if c.set != nil {
			return c.set, nil
		}
		return nil, goerr.Wrap(model.ErrUpstreamService, "failed to fetch JWKS",
			goerr.V("jwks_url", c.url), goerr.V("error", err.Error()))
	}

	c.set = set
	c.fetchedAt = time.Now()
	return set, nil
}
