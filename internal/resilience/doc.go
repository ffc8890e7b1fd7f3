// Package resilience wraps every outbound vendor call made by the
// adapters.
//
// Three layers apply to each call, outermost first:
//
//  1. Circuit breaker, keyed per adapter name. Consecutive failures past
//     a threshold open the circuit; while open, calls fail immediately
//     with controller.ErrCircuitOpen and no network I/O is attempted.
//     After a cooldown the breaker admits exactly one trial call.
//  2. Retry: transient failures are retried with exponential backoff
//     (baseDelay * multiplier^attempt). Credential, validation, vendor-
//     rejection, and protocol errors are never retried.
//  3. Timeout: each attempt runs under its own deadline; retries get
//     fresh windows.
//
// Transient/permanent classification is decided centrally here (Classify,
// IsTransient); adapters only mark vendor-specific temporary conditions
// with Transient. Circuit-open failures keep a distinct error identity so
// callers can treat them as backpressure rather than outage.
package resilience
