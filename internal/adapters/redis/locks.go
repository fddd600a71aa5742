package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locks serializes webhook processing per order id. The CMS offers no
// conditional-update primitive, so the read-compare-write in the status
// writer is guarded by a TTL-bounded SetNX mutex instead.
type Locks struct {
	client *redis.Client
}

func NewLocks(client *redis.Client) *Locks {
	return &Locks{client: client}
}

func (l *Locks) Client() *redis.Client {
	return l.client
}

// releaseScript deletes the lock only when the stored token still
// matches, so a holder whose TTL lapsed cannot delete the mutex a later
// acquirer now owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// AcquireOrderLock takes the per-order mutex and returns the owner
// token, or "" when another holder has it. The TTL bounds how long a
// crashed holder can block redeliveries.
func (l *Locks) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	res := l.client.SetNX(ctx, "recon:order:"+orderID, token, ttl)
	if err := res.Err(); err != nil {
		return "", err
	}
	if !res.Val() {
		return "", nil
	}
	return token, nil
}

// ReleaseOrderLock frees the mutex if token still owns it. Releasing
// with a stale token is a no-op, not an error.
func (l *Locks) ReleaseOrderLock(ctx context.Context, orderID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{"recon:order:" + orderID}, token).Err()
}

// EmailAlreadySent reports whether the e-ticket email behind key (order
// plus recipient) was already dispatched by an earlier delivery.
func (l *Locks) EmailAlreadySent(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, "email:sent:"+key).Result()
	return n > 0, err
}

// MarkEmailSent records that the e-ticket email behind key was
// dispatched. Returns false when a concurrent delivery already claimed
// it.
func (l *Locks) MarkEmailSent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	res := l.client.SetNX(ctx, "email:sent:"+key, "1", ttl)
	return res.Val(), res.Err()
}
