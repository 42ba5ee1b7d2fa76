package expiry

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Clock supplies the current time. Injected so tests can control it.
type Clock func() time.Time

// FlagStore holds the suppression gate's per-principal flags. Implementations
// must be safe for concurrent use.
type FlagStore interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration)
	Clear(key string)
}

// CacheFlagStore backs a FlagStore with an in-memory TTL cache. The TTLs only
// bound memory for principals that stop showing up; gate decisions always
// compare timestamps against the injected clock.
type CacheFlagStore struct {
	c *cache.Cache
}

// NewCacheFlagStore creates a flag store with the given default expiration.
func NewCacheFlagStore(defaultTTL time.Duration) *CacheFlagStore {
	return &CacheFlagStore{c: cache.New(defaultTTL, 2*defaultTTL)}
}

func (s *CacheFlagStore) Get(key string) (string, bool) {
	v, found := s.c.Get(key)
	if !found {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s *CacheFlagStore) Set(key, value string, ttl time.Duration) {
	s.c.Set(key, value, ttl)
}

func (s *CacheFlagStore) Clear(key string) {
	s.c.Delete(key)
}

// Gate decides whether an advisory notification may fire for a principal.
// Policy: at most one notification per cooldown window, and none at all while
// a dismissal is in effect. Dismissals expire on their own after the
// configured duration. All state is per principal; an empty principal id
// (signed out) suppresses firing unconditionally.
type Gate struct {
	flags     FlagStore
	now       Clock
	cooldown  time.Duration
	dismissal time.Duration
}

// NewGate creates a suppression gate.
func NewGate(flags FlagStore, now Clock, cooldown, dismissal time.Duration) *Gate {
	return &Gate{
		flags:     flags,
		now:       now,
		cooldown:  cooldown,
		dismissal: dismissal,
	}
}

func lastAlertKey(principal string) string { return "lastAlert_" + principal }
func dismissedKey(principal string) string { return "dismissedUntil_" + principal }

// ShouldNotify reports whether a notification may fire for the principal
// right now.
func (g *Gate) ShouldNotify(principal string) bool {
	if principal == "" {
		return false
	}
	now := g.now()

	if raw, ok := g.flags.Get(dismissedKey(principal)); ok {
		until, err := time.Parse(time.RFC3339Nano, raw)
		if err == nil && now.Before(until) {
			return false
		}
	}

	if raw, ok := g.flags.Get(lastAlertKey(principal)); ok {
		last, err := time.Parse(time.RFC3339Nano, raw)
		if err == nil && now.Sub(last) < g.cooldown {
			return false
		}
	}
	return true
}

// MarkNotified records that a notification fired, starting the cooldown.
func (g *Gate) MarkNotified(principal string) {
	if principal == "" {
		return
	}
	g.flags.Set(lastAlertKey(principal), g.now().Format(time.RFC3339Nano), g.cooldown)
}

// Dismiss suppresses notifications for the principal until the dismissal
// window elapses. Classification output is unaffected.
func (g *Gate) Dismiss(principal string) {
	if principal == "" {
		return
	}
	until := g.now().Add(g.dismissal)
	g.flags.Set(dismissedKey(principal), until.Format(time.RFC3339Nano), g.dismissal)
}

// Refresh clears both the dismissal and the cooldown so the next evaluation
// with a non-empty expiring set fires immediately.
func (g *Gate) Refresh(principal string) {
	if principal == "" {
		return
	}
	g.flags.Clear(dismissedKey(principal))
	g.flags.Clear(lastAlertKey(principal))
}
