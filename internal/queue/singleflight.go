package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// ConnectionLocker enforces the single-flight invariant: at most one active
// sync per store connection, across every worker process. Backed by a redis
// SET NX lease with a token-checked release, so only the holder can unlock.
type ConnectionLocker struct {
	client *redis.Client
	script *redis.Script
}

// NewConnectionLocker creates a locker backed by the given redis client.
// Returns nil for a nil client; callers treat a nil locker as "locking
// disabled" (single-process deployments are already serialized by Enqueue).
func NewConnectionLocker(client *redis.Client) *ConnectionLocker {
	if client == nil {
		return nil
	}
	return &ConnectionLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TryLock attempts to take the sync lease for a connection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - connectionID: store connection to lock.
//   - ttl: lease duration; must outlive the longest expected sync.
// Returns:
//   - string: release token when acquired.
//   - bool: true when the lease was acquired.
//   - error: non-nil on redis failure.
func (l *ConnectionLocker) TryLock(ctx context.Context, connectionID string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if connectionID == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(connectionID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the lease if the token still owns it. Releasing an expired
// or foreign lease is a no-op.
func (l *ConnectionLocker) Release(ctx context.Context, connectionID, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if connectionID == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lockKey(connectionID)}, token).Err()
}

func lockKey(connectionID string) string {
	return "marketsync:lock:connection:" + connectionID
}
