// Package executor orchestrates one logical API operation through the
// resilience core.
//
// For each operation the executor acquires a pooled session, runs
// rate-limit admission for the operation's category, consults the circuit
// breaker for its target, attaches a credential, sends the request, then
// classifies the response and feeds the outcome back into the rate-limit
// tracker and the breaker. Retryable failures loop through the retry
// policy with cooperative backoff sleeps; every suspension honors caller
// cancellation and the optional overall deadline.
//
// Vendor specifics stay out: an Operation carries the adapter-supplied
// request builder, response classifier, and rate-limit extractor. The wire
// itself is behind the Transport interface, so an HTTP client and a
// record/replay backend are interchangeable at construction time.
package executor
