package util

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("project-1")
			counter++
			km.Unlock("project-1")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("project-1")
	done := make(chan struct{})
	go func() {
		// A different key must not block
		km.Lock("project-2")
		km.Unlock("project-2")
		close(done)
	}()
	<-done
	km.Unlock("project-1")
}

func TestKeyedMutexFreesUnusedLocks(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("project-1")
	km.Unlock("project-1")

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Fatalf("locks map size = %d, want 0", len(km.locks))
	}
}
