package syncutil

import (
	"sync"
	"testing"
)

func TestShardedMutex_SerializesSameKey(t *testing.T) {
	var sm ShardedMutex

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := sm.Lock("deal_0123456789ab")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("Expected 100 increments, got %d", counter)
	}
}

func TestShardedMutex_DifferentKeysDoNotDeadlock(t *testing.T) {
	var sm ShardedMutex

	unlockA := sm.Lock("deal_aaaaaaaaaaaa")
	unlockB := sm.Lock("deal_bbbbbbbbbbbb")
	unlockA()
	unlockB()

	// Relocking a released key must succeed
	unlock := sm.Lock("deal_aaaaaaaaaaaa")
	unlock()
}
