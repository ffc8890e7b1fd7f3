package ecowitt

import (
	"time"

	"github.com/verdantio/grow-core/internal/controller"
)

// Live-data item codes. Each item in a CmdLiveData payload is a one-byte
// type code followed by a fixed-width big-endian value.
const (
	itemIndoorTemp      byte = 0x01 // int16, °C x10
	itemOutdoorTemp     byte = 0x02 // int16, °C x10
	itemIndoorHumidity  byte = 0x06 // uint8, %
	itemOutdoorHumidity byte = 0x07 // uint8, %
	itemAbsPressure     byte = 0x08 // uint16, hPa x10
	itemRelPressure     byte = 0x09 // uint16, hPa x10

	// Soil moisture channels 1-8 occupy a contiguous code range.
	itemSoilMoistureCh1 byte = 0x2C // uint8, %
	itemSoilMoistureCh8 byte = 0x33
)

// Synthetic port numbers for gateway-level sensors. Soil channels use
// their channel number (1-8) directly.
const (
	portIndoor  = 0
	portOutdoor = 100
)

// itemWidth returns the value width in bytes for a live-data item code.
// Unknown codes report ok=false.
func itemWidth(code byte) (int, bool) {
	switch {
	case code == itemIndoorTemp, code == itemOutdoorTemp:
		return 2, true
	case code == itemIndoorHumidity, code == itemOutdoorHumidity:
		return 1, true
	case code == itemAbsPressure, code == itemRelPressure:
		return 2, true
	case code >= itemSoilMoistureCh1 && code <= itemSoilMoistureCh8:
		return 1, true
	default:
		return 0, false
	}
}

// ParseLiveData walks a CmdLiveData payload and returns normalized
// readings, all stamped with now.
//
// The payload is a sequence of type-tagged values with no per-item length
// framing, so an unknown type code makes every later offset ambiguous.
// Parsing stops there and the readings decoded so far are salvaged; the
// caller decides whether a partial result is acceptable.
//
// Returns:
//   - []controller.SensorReading: Decoded readings (possibly partial)
//   - byte: The unknown code that stopped the walk, 0 if none
func ParseLiveData(payload []byte, now time.Time) ([]controller.SensorReading, byte) {
	var readings []controller.SensorReading

	for i := 0; i < len(payload); {
		code := payload[i]
		width, ok := itemWidth(code)
		if !ok {
			return readings, code
		}
		i++
		if i+width > len(payload) {
			// Truncated final item; keep what decoded cleanly.
			return readings, code
		}

		var raw int
		switch width {
		case 1:
			raw = int(payload[i])
		case 2:
			raw = int(payload[i])<<8 | int(payload[i+1])
		}
		i += width

		if r, ok := normalizeItem(code, raw, now); ok {
			readings = append(readings, r)
		}
	}
	return readings, 0
}

// normalizeItem converts one decoded item to a canonical reading.
func normalizeItem(code byte, raw int, now time.Time) (controller.SensorReading, bool) {
	switch {
	case code == itemIndoorTemp, code == itemOutdoorTemp:
		port := portIndoor
		if code == itemOutdoorTemp {
			port = portOutdoor
		}
		celsius := float64(int16(raw)) / 10 //nolint:gosec // two-byte item, sign intended
		return controller.SensorReading{
			Port:      port,
			Type:      controller.SensorTemperature,
			Value:     celsiusToFahrenheit(celsius),
			Unit:      controller.UnitFahrenheit,
			Timestamp: now,
		}, true

	case code == itemIndoorHumidity, code == itemOutdoorHumidity:
		port := portIndoor
		if code == itemOutdoorHumidity {
			port = portOutdoor
		}
		return controller.SensorReading{
			Port:      port,
			Type:      controller.SensorHumidity,
			Value:     float64(raw),
			Unit:      controller.UnitPercent,
			Timestamp: now,
		}, true

	case code == itemAbsPressure, code == itemRelPressure:
		port := portIndoor
		if code == itemRelPressure {
			port = portOutdoor
		}
		hpa := float64(raw) / 10
		return controller.SensorReading{
			Port:      port,
			Type:      controller.SensorPressure,
			Value:     hpaToInHg(hpa),
			Unit:      controller.UnitInHg,
			Timestamp: now,
		}, true

	case code >= itemSoilMoistureCh1 && code <= itemSoilMoistureCh8:
		return controller.SensorReading{
			Port:      int(code-itemSoilMoistureCh1) + 1,
			Type:      controller.SensorSoilMoisture,
			Value:     float64(raw),
			Unit:      controller.UnitPercent,
			Timestamp: now,
		}, true
	}
	return controller.SensorReading{}, false
}

func celsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

// hpaToInHg converts hectopascals to inches of mercury.
func hpaToInHg(hpa float64) float64 { return hpa * 0.02953 }
