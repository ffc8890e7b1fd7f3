package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/verdantio/grow-core/internal/controller"
)

// transientError marks an error as retryable regardless of its type.
// Adapters use Transient for vendor conditions they know are temporary
// (e.g. HTTP 5xx) that the network-level classifier cannot see.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so the retry loop treats it as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Classify maps raw transport errors onto the controller error taxonomy.
//
// Deadline expiry and net.Error timeouts become ErrNetworkTimeout; dial and
// connection failures become ErrNetworkUnreachable. Anything else passes
// through unchanged: notably authentication, validation, vendor-rejection,
// and protocol-desync errors, which must keep their identity so they are
// never retried.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Already classified by an adapter or a previous pass.
	if errors.Is(err, controller.ErrNetworkTimeout) || errors.Is(err, controller.ErrNetworkUnreachable) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", controller.ErrNetworkTimeout, err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", controller.ErrNetworkTimeout, err)
	}

	var operr *net.OpError
	if errors.As(err, &operr) {
		return fmt.Errorf("%w: %v", controller.ErrNetworkUnreachable, err)
	}

	var dnserr *net.DNSError
	if errors.As(err, &dnserr) {
		return fmt.Errorf("%w: %v", controller.ErrNetworkUnreachable, err)
	}

	return err
}

// IsTransient reports whether an already-classified error should be
// retried. Only network-level failures and explicitly marked vendor
// conditions qualify; credential, validation, and protocol errors never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}

	return errors.Is(err, controller.ErrNetworkTimeout) ||
		errors.Is(err, controller.ErrNetworkUnreachable)
}
