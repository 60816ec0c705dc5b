package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBucket_Defaults(t *testing.T) {
	b := NewBucket(BucketConfig{})

	if b.config.Rate != 100 {
		t.Errorf("Rate = %f, want 100", b.config.Rate)
	}
	if b.config.Burst != 10 {
		t.Errorf("Burst = %d, want 10", b.config.Burst)
	}
	if b.config.MaxWait != time.Second {
		t.Errorf("MaxWait = %v, want 1s", b.config.MaxWait)
	}
}

func TestBucket_BurstThenDeny(t *testing.T) {
	b := NewBucket(BucketConfig{Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("Allow() #%d = false, want true within burst", i+1)
		}
	}
	if b.Allow() {
		t.Error("Allow() past burst = true, want false")
	}
}

func TestBucket_Refill(t *testing.T) {
	b := NewBucket(BucketConfig{Rate: 100, Burst: 1})

	if !b.Allow() {
		t.Fatal("first Allow() should pass")
	}
	if b.Allow() {
		t.Fatal("second immediate Allow() should fail")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Error("Allow() after refill window should pass")
	}
}

func TestBucket_Wait(t *testing.T) {
	b := NewBucket(BucketConfig{Rate: 50, Burst: 1, MaxWait: time.Second})

	b.Allow()

	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait() returned after %v, expected to sleep for a token", elapsed)
	}
}

func TestBucket_WaitCancelled(t *testing.T) {
	b := NewBucket(BucketConfig{Rate: 0.1, Burst: 1, MaxWait: time.Minute})
	b.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestBucket_WaitCapExceeded(t *testing.T) {
	b := NewBucket(BucketConfig{Rate: 0.1, Burst: 1, MaxWait: 10 * time.Millisecond})
	b.Allow()

	if err := b.Wait(context.Background()); !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("Wait() error = %v, want ErrQuotaExhausted", err)
	}
}
