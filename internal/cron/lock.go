package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLeaseTTL = time.Hour

// Locker hands out one lease per job name, so two workers never reconcile
// balances or purge the outbox at the same time while unrelated jobs still run.
type Locker interface {
	Acquire(ctx context.Context, job string) (Lease, bool, error)
}

// Lease is a held job lock.
type Lease interface {
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// JobLocks keys leases as cron:<scope>:<job> in Redis.
type JobLocks struct {
	client redisStore
	scope  string
	ttl    time.Duration
}

// NewJobLocks builds Redis-backed job locks. The scope is usually the
// deployment environment; ttl bounds how long a crashed worker blocks a job.
func NewJobLocks(client redisStore, scope string, ttl time.Duration) (*JobLocks, error) {
	if client == nil {
		return nil, errors.New("redis client required for job locks")
	}
	if scope == "" {
		return nil, errors.New("lock scope is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &JobLocks{client: client, scope: scope, ttl: ttl}, nil
}

// Key returns the Redis key guarding the named job.
func (l *JobLocks) Key(job string) string {
	return l.client.LockKey("cron:" + l.scope + ":" + job)
}

// Acquire claims the job's lease. ok is false when another worker holds it.
func (l *JobLocks) Acquire(ctx context.Context, job string) (Lease, bool, error) {
	if job == "" {
		return nil, false, errors.New("job name is required")
	}
	lease := &redisLease{client: l.client, key: l.Key(job), owner: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, lease.key, lease.owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", job, err)
	}
	if !ok {
		return nil, false, nil
	}
	return lease, true, nil
}

type redisLease struct {
	client redisStore
	key    string
	owner  string
}

// Release deletes the key unless it expired and was claimed by someone else.
func (l *redisLease) Release(ctx context.Context) error {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lease owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}
