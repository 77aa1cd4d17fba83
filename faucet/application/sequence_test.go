package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSequenceCoordinator_AdvanceAndResync(t *testing.T) {
	c := NewSequenceCoordinator("testnet", 5, newSlotPool(), 0, nil)

	lease, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if lease.Current() != 5 {
		t.Fatalf("expected 5, got %d", lease.Current())
	}
	lease.ResyncTo(9)
	if c.Current() != 9 {
		t.Fatalf("expected 9 after resync, got %d", c.Current())
	}
	if next := lease.Advance(); next != 10 {
		t.Fatalf("expected Advance to return 10, got %d", next)
	}
	lease.Release()
	lease.Release() // idempotente

	if c.Current() != 10 {
		t.Fatalf("expected 10, got %d", c.Current())
	}
}

func TestSequenceCoordinator_LeaseIsExclusive(t *testing.T) {
	c := NewSequenceCoordinator("testnet", 0, newSlotPool(), 20*time.Millisecond, nil)

	lease, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err = c.Acquire(context.Background())
	if !errors.Is(err, ErrSequenceBusy) {
		t.Fatalf("expected ErrSequenceBusy while lease is held, got %v", err)
	}

	lease.Release()
	lease2, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	lease2.Release()
}

func TestSequenceCoordinator_UseAfterReleasePanics(t *testing.T) {
	c := NewSequenceCoordinator("testnet", 0, newSlotPool(), 0, nil)
	lease, _ := c.Acquire(context.Background())
	lease.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	lease.Advance()
}

func TestSequenceCoordinator_ConcurrentLeasesNeverShareAValue(t *testing.T) {
	c := NewSequenceCoordinator("testnet", 0, newSlotPool(), 0, nil)

	const workers = 32
	seen := make(chan uint64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := c.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer lease.Release()
			seen <- lease.Current()
			lease.Advance()
		}()
	}
	wg.Wait()
	close(seen)

	used := map[uint64]bool{}
	for v := range seen {
		if used[v] {
			t.Fatalf("sequence %d handed out twice", v)
		}
		used[v] = true
	}
	if c.Current() != workers {
		t.Fatalf("expected %d, got %d", workers, c.Current())
	}
}

func TestSequenceRegistry_ForAndNetworks(t *testing.T) {
	r := NewSequenceRegistry()
	r.Register(NewSequenceCoordinator("testnet", 1, newSlotPool(), 0, nil))
	r.Register(NewSequenceCoordinator("mocknet", 2, newSlotPool(), 0, nil))

	c, ok := r.For("mocknet")
	if !ok || c.Current() != 2 {
		t.Fatalf("expected mocknet coordinator at 2")
	}
	if _, ok := r.For("mainnet"); ok {
		t.Fatalf("did not expect mainnet coordinator")
	}
	if got := r.Networks(); len(got) != 2 || got[0] != "mocknet" || got[1] != "testnet" {
		t.Fatalf("unexpected networks %v", got)
	}
}
