// Package acinfinity integrates AC Infinity environmental controllers
// through their cloud REST API.
//
// Connect is a two-step flow: POST credentials to the login endpoint for a
// bearer token, then POST to the device-list endpoint with that token. The
// first device the account returns becomes the controller identity;
// multi-device accounts are truncated to the first and a warning is logged.
//
// The settings endpoint mixes ambient sensor probes and controllable ports
// in one payload, discriminated by a vendor port-type code. Sensor values
// arrive as fixed-point integers (°C x100, % x100, kPa x10 for VPD) and
// are rescaled before leaving this package. Commands use the vendor's
// native 0-10 power steps; canonical 0-100 inputs are quantized with
// controller.ToVendorScale and the echoed actual value reports the
// quantized level back on the canonical scale.
package acinfinity
