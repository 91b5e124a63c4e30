package utils

import (
	"context"
	"strings"
	"time"
)

// Failed sign-ins allowed per IP and email within an hour before a temporary lock.
const (
	SignInMaxFailures = 10
	SignInLockout     = 15 * time.Minute
)

func guardKey(parts ...string) string {
	return "signin:" + strings.Join(parts, ":")
}

// SignInLocked reports whether sign-in is temporarily locked for ip and email.
// Without Redis, or on Redis errors, sign-in is never locked.
func SignInLocked(ip, email string) bool {
	cli := GetRedis()
	if cli == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	exists, err := cli.Exists(ctx, guardKey("lock", ip, email)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// SignInFailed records a failed attempt and locks the pair once the hourly budget is spent.
func SignInFailed(ip, email string) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := guardKey("fail", ip, email, time.Now().UTC().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	if n >= SignInMaxFailures {
		_ = cli.Set(ctx, guardKey("lock", ip, email), "1", SignInLockout).Err()
		Sugar.Warnw("sign-in locked", "ip", ip, "email", email)
	}
}
