package retry_test

import (
	"fmt"
	"time"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/retry"
)

func ExampleNew() {
	p := retry.New(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false, // Disabled for predictable example
	})

	err := apierr.New(apierr.KindTransientServer, "service unavailable")

	for attempt := 1; attempt <= 3; attempt++ {
		d := p.Decide(err, attempt, 0, 0)
		fmt.Printf("Attempt %d: retry=%v wait=%v\n", attempt, d.Retry, d.Wait)
	}
	// Output:
	// Attempt 1: retry=true wait=100ms
	// Attempt 2: retry=true wait=200ms
	// Attempt 3: retry=false wait=0s
}

func ExamplePolicy_Decide_serverHint() {
	p := retry.New(retry.Policy{MaxAttempts: 5, Jitter: false})

	// A Retry-After hint from the peer overrides the computed backoff.
	err := apierr.New(apierr.KindRateLimited, "slow down")
	d := p.Decide(err, 1, 0, 5*time.Second)

	fmt.Println("Wait:", d.Wait)
	// Output:
	// Wait: 5s
}

func ExamplePolicy_Decide_terminal() {
	p := retry.New(retry.Policy{MaxAttempts: 5})

	// Client errors are not retried no matter the budget.
	d := p.Decide(apierr.New(apierr.KindValidation, "bad field"), 1, 0, 0)
	fmt.Println("Retry:", d.Retry)
	// Output:
	// Retry: false
}
