// Package runlock provides a Redis-backed mutual exclusion lock so that
// overlapping scheduled pipeline runs do not race on the same jobs.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the lock key is missing or owned by
// another run.
var ErrNotHeld = errors.New("run lock not held")

// releaseScript deletes the lock only when the stored token matches, so a
// run that outlived its TTL cannot release a lock a later run now owns.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Lock is a single-holder lock keyed on the pipeline name.
type Lock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	token  string
}

// New creates a run lock. The TTL bounds how long a crashed run can block
// subsequent runs.
func New(client redis.UniversalClient, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = "runlock:pipeline"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// TryLock attempts to acquire the lock. It returns false without error when
// another run already holds it.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Unlock releases the lock if this instance still owns it.
func (l *Lock) Unlock(ctx context.Context) error {
	if l.token == "" {
		return ErrNotHeld
	}
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	l.token = ""
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
