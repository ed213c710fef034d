package cache

import "context"

// KeyedMutex serializes work per key while letting different keys proceed in
// parallel. Locks are never released from the table; the key space (page ids)
// is small.
type KeyedMutex[K comparable] struct {
	locks *Cache[K, chan struct{}]
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: NewCache[K, chan struct{}]()}
}

func (k *KeyedMutex[K]) slot(key K) chan struct{} {
	return k.locks.GetOrSet(key, func() chan struct{} { return make(chan struct{}, 1) })
}

// LockContext blocks until the lock for key is held and returns its unlock
// func. It gives up when ctx is done.
func (k *KeyedMutex[K]) LockContext(ctx context.Context, key K) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := k.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
