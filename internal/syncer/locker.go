package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
)

// ErrSyncInProgress is returned when another run holds the entity lock.
var ErrSyncInProgress = pkgerrors.New(pkgerrors.CodeConflict, "sync already running")

// Unlock releases an entity lock.
type Unlock func(ctx context.Context) error

// EntityLocker keeps two runs of the same entity from overlapping.
type EntityLocker interface {
	Lock(ctx context.Context, entity enums.SyncEntity, ttl time.Duration) (Unlock, error)
}

// heldLock is the part of *redislock.Lock a running sync needs.
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// RedisEntityLocker holds entity locks in Redis so separate processes agree.
// A held lock is extended while the run is alive, so ttl only bounds how long
// a crashed worker blocks the entity.
type RedisEntityLocker struct {
	obtain func(ctx context.Context, key string, ttl time.Duration) (heldLock, error)
	key    func(name string) string
}

// NewRedisEntityLocker builds a locker over client. key namespaces lock names.
func NewRedisEntityLocker(client redislock.RedisClient, key func(name string) string) *RedisEntityLocker {
	if key == nil {
		key = func(name string) string { return name }
	}
	locks := redislock.New(client)
	return &RedisEntityLocker{
		obtain: func(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
			lock, err := locks.Obtain(ctx, key, ttl, nil)
			if err != nil {
				return nil, err
			}
			return lock, nil
		},
		key: key,
	}
}

func (l *RedisEntityLocker) Lock(ctx context.Context, entity enums.SyncEntity, ttl time.Duration) (Unlock, error) {
	lock, err := l.obtain(ctx, l.key("sync:"+entity.String()), ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain sync lock")
	}
	return keepAlive(ctx, lock, ttl), nil
}

// keepAlive extends lock every third of ttl until the returned Unlock runs.
// A failed extension ends the loop and the key expires on its own.
func keepAlive(ctx context.Context, lock heldLock, ttl time.Duration) Unlock {
	refreshCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(ttl/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(refreshCtx, ttl, nil); err != nil {
					return
				}
			}
		}
	}()

	var stop sync.Once
	return func(ctx context.Context) error {
		stop.Do(func() {
			cancel()
			<-done
		})
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}
}

// LocalEntityLocker serializes runs inside one process. It is used when Redis
// is not configured.
type LocalEntityLocker struct {
	mu   sync.Mutex
	held map[enums.SyncEntity]bool
}

func NewLocalEntityLocker() *LocalEntityLocker {
	return &LocalEntityLocker{held: map[enums.SyncEntity]bool{}}
}

func (l *LocalEntityLocker) Lock(_ context.Context, entity enums.SyncEntity, _ time.Duration) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[entity] {
		return nil, ErrSyncInProgress
	}
	l.held[entity] = true
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, entity)
		l.mu.Unlock()
		return nil
	}, nil
}
