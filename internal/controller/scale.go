package controller

// Canonical command scale bounds.
const (
	// CanonicalMax is the top of the command range exposed to all callers.
	CanonicalMax = 100
)

// ToVendorScale converts a canonical 0-100 value to a vendor-native 0-max
// scale, rounding half up and clamping to range.
//
// The same rounding rule is applied on both conversion directions so that
// repeated identical commands round-trip without drift: for any v,
// ToVendorScale(FromVendorScale(ToVendorScale(v, m), m), m) equals
// ToVendorScale(v, m).
//
// Parameters:
//   - value: Canonical value (out-of-range input is clamped, not rejected)
//   - vendorMax: Top of the vendor's native scale (e.g. 10)
//
// Returns:
//   - int: Value on the vendor scale, in [0, vendorMax]
func ToVendorScale(value, vendorMax int) int {
	if value < 0 {
		value = 0
	}
	if value > CanonicalMax {
		value = CanonicalMax
	}
	// Round half up in integer arithmetic.
	return (value*vendorMax + CanonicalMax/2) / CanonicalMax
}

// FromVendorScale converts a vendor-native 0-max value back to the
// canonical 0-100 scale, rounding half up and clamping to range.
//
// Parameters:
//   - value: Vendor-scale value (out-of-range input is clamped)
//   - vendorMax: Top of the vendor's native scale
//
// Returns:
//   - int: Canonical value in [0, 100]
func FromVendorScale(value, vendorMax int) int {
	if vendorMax < 1 {
		return 0
	}
	if value < 0 {
		value = 0
	}
	if value > vendorMax {
		value = vendorMax
	}
	return (value*CanonicalMax + vendorMax/2) / vendorMax
}
