package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrTokenRevoked reports a session token that was signed out before it expired.
var ErrTokenRevoked = errors.New("token revoked")

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "jwt:blacklist:" + hex.EncodeToString(sum[:])
}

// BlacklistToken revokes a token until its natural expiry.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	key := tokenKey(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rc.Set(ctx, key, "1", ttl).Err()
		if err == nil {
			return
		}
		Sugar.Warnf("blacklist token in redis failed, keeping in memory: %v", err)
	}
	revokedMu.Lock()
	revoked[key] = expiresAt
	revokedMu.Unlock()
}

// CheckToken returns ErrTokenRevoked for a blacklisted token.
// Redis errors fail open so an outage does not sign everyone out.
func CheckToken(token string) error {
	key := tokenKey(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, key).Result()
		if err == nil && n > 0 {
			return ErrTokenRevoked
		}
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	now := time.Now()
	for k, exp := range revoked {
		if now.After(exp) {
			delete(revoked, k)
		}
	}
	if _, ok := revoked[key]; ok {
		return ErrTokenRevoked
	}
	return nil
}
