// Package session provides the ephemeral credential-to-token cache shared
// by the vendor adapters.
//
// Each logical controller gets at most one entry. Entries are invalidated
// lazily on lookup, never by background timers, and live only in process
// memory. The clock is injectable so TTL behaviour is testable.
package session
