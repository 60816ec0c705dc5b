package circuit_test

import (
	"fmt"
	"time"

	"github.com/jonwraymond/relayops/circuit"
)

func ExampleNewBreaker() {
	b := circuit.NewBreaker("api.example.com", circuit.Config{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	})

	// Initial state is closed
	fmt.Println("Initial state:", b.State())

	// Consecutive failures open the circuit
	b.RecordFailure()
	b.RecordFailure()
	fmt.Println("After failures:", b.State())
	fmt.Println("Admits requests:", b.Allow())

	// Reset closes it again
	b.Reset()
	fmt.Println("After reset:", b.State())
	// Output:
	// Initial state: closed
	// After failures: open
	// Admits requests: false
	// After reset: closed
}

func ExampleNewBreaker_withStateChange() {
	b := circuit.NewBreaker("api.example.com", circuit.Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(target string, from, to circuit.State) {
			fmt.Printf("%s: %s -> %s\n", target, from, to)
		},
	})

	b.RecordFailure()
	// Output:
	// api.example.com: closed -> open
}

func ExampleBreakerSet() {
	set := circuit.NewBreakerSet(circuit.Config{FailureThreshold: 1})

	// Each target fails independently
	set.For("api.github.com").RecordFailure()

	fmt.Println("github:", set.For("api.github.com").State())
	fmt.Println("gitlab:", set.For("gitlab.com").State())
	// Output:
	// github: open
	// gitlab: closed
}
