// Package apierr defines the error taxonomy shared by the transport core.
//
// Every failure surfaced by the executor, the session pool, the credential
// provider, and the transfer manager is classified into exactly one Kind.
// The Kind drives retry behavior: see the package-level Retryable function
// and the retry package for the mapping.
//
// Errors are created with New or Wrap and inspected with KindOf, errors.Is
// and errors.As. The zero Kind is KindUnknown, which is treated as not
// retryable.
package apierr
