// Package controller defines the adapter contract and canonical data model
// for grow-core's vendor integrations.
//
// Physically heterogeneous environmental controllers (cloud-REST devices,
// a raw-TCP binary-protocol gateway, an undocumented local HTTP API, and a
// rate-limited cloud API) are exposed to callers through one normalized
// interface. This package owns the vocabulary that makes that possible:
//
//   - Adapter: the five-operation contract every vendor implements
//     (Connect, ReadSensors, ControlDevice, GetStatus, Disconnect), plus
//     the optional AuthRefresher.
//   - Credentials: a tagged union with one variant per brand; adapters
//     reject foreign tags via CheckKind before any network call.
//   - SensorReading / DeviceCommand / CommandResult: values always in
//     canonical units and the canonical 0-100 command range, never in a
//     vendor-internal scale.
//   - ToVendorScale / FromVendorScale: the symmetric round-half-up
//     quantization used on both ends of every command so repeated
//     identical commands never drift.
//   - Registry: the static brand → adapter map populated at startup.
//
// Error taxonomy lives in errors.go; everything is a sentinel checked with
// errors.Is. ControlDevice and GetStatus never return errors at all; they
// produce result objects so polling and control loops degrade gracefully.
//
// Nothing in this package performs I/O and nothing is persisted; session
// and breaker state are in-memory and owned by the adapter instances.
package controller
