package provider

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// KeySource returns the currently configured credentials in rotation order
type KeySource func() []string

// EnvKeySource reads a comma separated list from listVar, falling back to the single key in singleVar
func EnvKeySource(getenv func(string) string, listVar, singleVar string) KeySource {
	return func() []string {
		var keys []string
		for _, k := range strings.Split(getenv(listVar), ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			if single := strings.TrimSpace(getenv(singleVar)); single != "" {
				keys = []string{single}
			}
		}
		return keys
	}
}

// StaticKeySource always returns the same keys
func StaticKeySource(keys ...string) KeySource {
	return func() []string { return keys }
}

// Rotator hands out a provider's credentials round-robin, skipping the ones in cooldown.
// The key list is re-read from its source on every access.
type Rotator struct {
	source KeySource
	now    func() time.Time

	mu       sync.Mutex
	keys     []string
	cursor   int
	cooldown map[string]time.Time
}

// NewRotator creates a rotator over source
func NewRotator(source KeySource) *Rotator {
	r := &Rotator{
		source:   source,
		now:      time.Now,
		cooldown: make(map[string]time.Time),
	}
	r.Refresh()
	return r
}

// WithClock replaces the time source, used by tests
func (r *Rotator) WithClock(now func() time.Time) *Rotator {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

// Refresh re-reads the key source. A changed key list resets the cursor and all cooldowns.
func (r *Rotator) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
}

func (r *Rotator) refreshLocked() {
	keys := r.source()
	if slices.Equal(keys, r.keys) {
		return
	}
	r.keys = slices.Clone(keys)
	r.cursor = 0
	r.cooldown = make(map[string]time.Time, len(keys))
}

// Next returns the next key whose cooldown has expired. When every key is cooling down the
// next key in rotation order is returned anyway. Returns "" when no keys are configured.
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refreshLocked()
	n := len(r.keys)
	if n == 0 {
		return ""
	}

	start := r.cursor % n
	now := r.now()
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		key := r.keys[idx]
		if until, ok := r.cooldown[key]; !ok || !now.Before(until) {
			r.cursor = idx + 1
			return key
		}
	}

	r.cursor = start + 1
	return r.keys[start]
}

// MarkCooldown benches key for d
func (r *Rotator) MarkCooldown(key string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooldown[key] = r.now().Add(d)
}

// Count returns the number of configured keys after a refresh
func (r *Rotator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
	return len(r.keys)
}

// Available returns how many keys are usable right now
func (r *Rotator) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()

	now := r.now()
	available := 0
	for _, key := range r.keys {
		if until, ok := r.cooldown[key]; !ok || !now.Before(until) {
			available++
		}
	}
	return available
}
