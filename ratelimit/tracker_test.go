package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestTracker_UnknownCategoryAllows(t *testing.T) {
	tr := NewTracker()

	if ok, wait := tr.Check(CategoryCore); !ok || wait != 0 {
		t.Errorf("Check(unknown) = (%v, %v), want (true, 0)", ok, wait)
	}
}

func TestTracker_ExhaustedReportsWait(t *testing.T) {
	tr := NewTracker()
	reset := time.Now().Add(time.Minute)
	tr.Apply(Update{Category: CategoryCore, Limit: 100, Remaining: 0, ResetAt: reset})

	ok, wait := tr.Check(CategoryCore)
	if ok {
		t.Fatal("exhausted category should not admit")
	}
	if wait <= 50*time.Second || wait > time.Minute {
		t.Errorf("wait = %v, want ~1m", wait)
	}
}

func TestTracker_OptimisticAfterReset(t *testing.T) {
	tr := NewTracker()
	tr.Apply(Update{
		Category:  CategoryCore,
		Limit:     100,
		Remaining: 0,
		ResetAt:   time.Now().Add(-time.Second),
	})

	if ok, _ := tr.Check(CategoryCore); !ok {
		t.Error("a rolled-over window should admit optimistically")
	}
}

func TestTracker_CategoryIsolation(t *testing.T) {
	tr := NewTracker()
	tr.Apply(Update{
		Category:  CategorySearch,
		Limit:     30,
		Remaining: 0,
		ResetAt:   time.Now().Add(time.Minute),
	})
	tr.Apply(Update{
		Category:  CategoryCore,
		Limit:     5000,
		Remaining: 4000,
		ResetAt:   time.Now().Add(time.Hour),
	})

	if ok, _ := tr.Check(CategorySearch); ok {
		t.Error("exhausted search category should block")
	}
	if ok, _ := tr.Check(CategoryCore); !ok {
		t.Error("exhausting search must not affect core")
	}
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker()

	if _, known := tr.Snapshot(CategoryGraphQL); known {
		t.Error("unseen category should not be known")
	}

	tr.Apply(Update{Category: CategoryGraphQL, Limit: 5000, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)})

	state, known := tr.Snapshot(CategoryGraphQL)
	if !known {
		t.Fatal("applied category should be known")
	}
	if state.Limit != 5000 || state.Remaining != 4999 {
		t.Errorf("state = %+v", state)
	}
}

func TestTracker_ConcurrentCheckAndApply(t *testing.T) {
	tr := NewTracker()
	reset := time.Now().Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(remaining int) {
			defer wg.Done()
			tr.Apply(Update{Category: CategoryWrite, Limit: 100, Remaining: remaining, ResetAt: reset})
		}(i)
		go func() {
			defer wg.Done()
			tr.Check(CategoryWrite)
			tr.Check(CategoryRead)
		}()
	}
	wg.Wait()

	if _, known := tr.Snapshot(CategoryWrite); !known {
		t.Error("write category should be known after updates")
	}
}
