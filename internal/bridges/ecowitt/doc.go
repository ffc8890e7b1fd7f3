// Package ecowitt integrates Ecowitt weather/soil gateways through four
// connection methods: inbound push reports, the gateway's binary TCP
// protocol, its local HTTP API, and the vendor cloud.
//
// The gateway has no account-level device id, so controller ids are
// synthesized as "ecowitt-{method}-{identity}", where identity is the
// gateway IP for local methods and the normalized MAC for push and cloud.
//
// The binary protocol frames every exchange as FF FF, a command byte, a
// big-endian payload size, the payload, and an additive checksum over the
// command through the payload. Live-data payloads are type-tagged values
// with no per-item framing; an unknown tag makes later offsets ambiguous,
// so parsing stops there and salvages what decoded cleanly.
//
// Device control rides the gateway's local quick-command endpoint and is
// therefore only available to tcp and http connections. Channels 1-8 are
// valve-class; higher channels are outlet-class.
package ecowitt
