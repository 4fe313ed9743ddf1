package pkg

import "sync"

type HasLocker interface{ GetLocker() *sync.RWMutex }

func LockWrap(i HasLocker, f func()) {
	i.GetLocker().Lock()
	defer i.GetLocker().Unlock()
	f()
}

func RLockWrap(i HasLocker, f func()) {
	i.GetLocker().RLock()
	defer i.GetLocker().RUnlock()
	f()
}

// KeyedLocker hands out one RWMutex per key.
// Lockers are never removed.
type KeyedLocker[K comparable] struct {
	locker  sync.Mutex
	lockers Map[K, *sync.RWMutex]
}

func NewKeyedLocker[K comparable]() *KeyedLocker[K] {
	return &KeyedLocker[K]{lockers: Map[K, *sync.RWMutex]{}}
}

func (k *KeyedLocker[K]) Get(key K) *sync.RWMutex {
	k.locker.Lock()
	defer k.locker.Unlock()
	l, ok := k.lockers[key]
	if !ok {
		l = &sync.RWMutex{}
		k.lockers.Set(key, l)
	}
	return l
}

func (k *KeyedLocker[K]) LockWrap(key K, f func()) {
	l := k.Get(key)
	l.Lock()
	defer l.Unlock()
	f()
}

func (k *KeyedLocker[K]) RLockWrap(key K, f func()) {
	l := k.Get(key)
	l.RLock()
	defer l.RUnlock()
	f()
}
