// Package trolmaster reserves the Trolmaster brand in the adapter
// registry. Every operation fails with ErrNotImplemented (or a failed
// command result) after the usual credential-tag check, so callers can
// distinguish "brand known, integration pending" from an unknown brand.
package trolmaster
