package lockmgr

import (
	"sync"
	"testing"
	"time"
)

// testFactories contains factory functions for all lock manager
// implementations to be tested
var testFactories = map[string]func() ILockManager{
	"local": NewLocalLockManager,
}

func TestAcquireRelease(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			mgr := factory()

			owner, err := mgr.AcquireLock(LockAllocation)
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			if owner == "" {
				t.Fatal("expected a non-empty owner id")
			}

			ok, err := mgr.ReleaseLock(LockAllocation, owner)
			if err != nil {
				t.Fatalf("release: %v", err)
			}
			if !ok {
				t.Error("expected release to succeed")
			}
		})
	}
}

func TestReleaseWrongOwner(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			mgr := factory()

			owner, err := mgr.AcquireLock(LockAllocation)
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}

			ok, err := mgr.ReleaseLock(LockAllocation, "not-the-owner")
			if err != nil {
				t.Fatalf("release: %v", err)
			}
			if ok {
				t.Error("release with a foreign owner id must not succeed")
			}

			// the true owner can still release
			if ok, _ := mgr.ReleaseLock(LockAllocation, owner); !ok {
				t.Error("true owner could not release")
			}
		})
	}
}

func TestReleaseUnknownLock(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			mgr := factory()
			if ok, err := mgr.ReleaseLock("never-acquired", "whoever"); err != nil || !ok {
				t.Errorf("releasing an unknown lock: got (%v, %v), want (true, nil)", ok, err)
			}
		})
	}
}

func TestLocksAreIndependent(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			mgr := factory()

			a, err := mgr.AcquireLock(LockAllocation)
			if err != nil {
				t.Fatalf("acquire alloc: %v", err)
			}

			// a different lock must not block
			done := make(chan struct{})
			go func() {
				r, err := mgr.AcquireLock(LockRotation)
				if err == nil {
					_, _ = mgr.ReleaseLock(LockRotation, r)
				}
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("acquiring an independent lock blocked")
			}

			_, _ = mgr.ReleaseLock(LockAllocation, a)
		})
	}
}

func TestMutualExclusion(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			mgr := factory()

			const workers = 16
			counter := 0

			var wg sync.WaitGroup
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					owner, err := mgr.AcquireLock(LockAllocation)
					if err != nil {
						t.Errorf("acquire: %v", err)
						return
					}
					// unsynchronized increment, the lock is the only guard
					v := counter
					time.Sleep(time.Millisecond)
					counter = v + 1
					if _, err := mgr.ReleaseLock(LockAllocation, owner); err != nil {
						t.Errorf("release: %v", err)
					}
				}()
			}
			wg.Wait()

			if counter != workers {
				t.Errorf("got counter %d, want %d (lost updates under the lock)", counter, workers)
			}
		})
	}
}
