package lockmgr

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// namedLock is one advisory lock. The buffered channel of size 1 holds the
// lock token (a channel instead of sync.Mutex so that release from a
// different goroutine than acquire is well defined); mu guards the owner ID.
type namedLock struct {
	ch    chan struct{}
	mu    sync.Mutex
	owner string
}

type lockMgrImpl struct {
	locks *xsync.MapOf[string, *namedLock]
}

// NewLocalLockManager creates an in-process lock manager. The service runs as
// a single process, so an in-memory advisory lock suffices to serialize the
// read-then-write cycles the storage contract cannot make atomic.
func NewLocalLockManager() ILockManager {
	return &lockMgrImpl{
		locks: xsync.NewMapOf[string, *namedLock](),
	}
}

func (lp *lockMgrImpl) AcquireLock(key string) (string, error) {
	l, _ := lp.locks.LoadOrStore(key, &namedLock{
		ch: make(chan struct{}, 1),
	})

	// Blocking acquire
	l.ch <- struct{}{}

	ownerID := uuid.NewString()
	l.mu.Lock()
	l.owner = ownerID
	l.mu.Unlock()
	return ownerID, nil
}

func (lp *lockMgrImpl) ReleaseLock(key string, ownerID string) (bool, error) {
	l, found := lp.locks.Load(key)
	if !found {
		// Releasing a lock that never existed is treated as a success.
		return true, nil
	}

	// Check if the lock is owned by us
	l.mu.Lock()
	if l.owner != ownerID {
		l.mu.Unlock()
		return false, nil
	}
	l.owner = ""
	l.mu.Unlock()

	// Release the lock
	<-l.ch
	return true, nil
}
