package controller

import "errors"

// Domain errors for the controller adapter layer.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, controller.ErrNotConnected) {
//	    // prompt for reconnect
//	}
var (
	// ErrInvalidCredentialType is returned when a credential object's brand
	// tag does not match the adapter it was handed to.
	ErrInvalidCredentialType = errors.New("controller: invalid credential type")

	// ErrAuthenticationFailed is returned when the vendor rejects the
	// supplied credentials. Never retried.
	ErrAuthenticationFailed = errors.New("controller: authentication failed")

	// ErrNoDevicesFound is returned when authentication succeeds but the
	// vendor account contains no devices.
	ErrNoDevicesFound = errors.New("controller: no devices found")

	// ErrNotConnected is returned when no live session exists for a
	// controller id. An expired session reports this identically.
	ErrNotConnected = errors.New("controller: not connected")

	// ErrNetworkTimeout is returned when an outbound call exceeds its
	// per-attempt deadline. Classified transient.
	ErrNetworkTimeout = errors.New("controller: network timeout")

	// ErrNetworkUnreachable is returned when the vendor endpoint cannot be
	// reached at all. Classified transient.
	ErrNetworkUnreachable = errors.New("controller: network unreachable")

	// ErrProtocolDesync is returned when a binary response carries a bad
	// frame header. Fatal for the current read, never retried.
	ErrProtocolDesync = errors.New("controller: protocol desync")

	// ErrUnsupportedOperation is returned when an operation cannot be
	// performed over the connection method in use (e.g. device control
	// without a gateway IP).
	ErrUnsupportedOperation = errors.New("controller: unsupported operation")

	// ErrCircuitOpen is returned when the adapter's circuit breaker is open
	// and no network I/O was attempted. Reported distinctly from network
	// errors so callers can treat it as backpressure rather than outage.
	ErrCircuitOpen = errors.New("controller: circuit open")

	// ErrVendorRejected is returned when the vendor API answers with a
	// non-zero response code. The vendor's own message is passed through
	// verbatim in the wrapping error. Never retried.
	ErrVendorRejected = errors.New("controller: vendor rejected request")

	// ErrNotImplemented is returned by stub adapters for brands that are
	// registered but not yet integrated. Distinct from ErrUnknownBrand so
	// callers can tell "coming soon" from "never heard of it".
	ErrNotImplemented = errors.New("controller: brand not yet implemented")

	// ErrUnknownBrand is returned by the registry for brand identifiers
	// that have no registered adapter.
	ErrUnknownBrand = errors.New("controller: unknown brand")
)
