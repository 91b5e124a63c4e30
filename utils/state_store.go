package utils

import (
	"context"
	"sync"
	"time"
)

const defaultStateTTL = 10 * time.Minute

type oauthState struct {
	provider  string
	expiresAt time.Time
}

var (
	states   = map[string]oauthState{}
	statesMu sync.Mutex
)

// SaveState remembers an OAuth state token bound to the provider that issued it.
func SaveState(state, provider string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "oauth:state:"+state, provider, ttl).Err(); err == nil {
			return
		}
	}
	statesMu.Lock()
	states[state] = oauthState{provider: provider, expiresAt: time.Now().Add(ttl)}
	statesMu.Unlock()
}

// ConsumeState validates a state token for provider and removes it. Tokens are single use.
func ConsumeState(state, provider string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "oauth:state:"+state).Result(); err == nil {
			return v == provider
		}
	}
	statesMu.Lock()
	entry, ok := states[state]
	delete(states, state)
	statesMu.Unlock()
	return ok && entry.provider == provider && time.Now().Before(entry.expiresAt)
}
