package acinfinity

import "github.com/verdantio/grow-core/internal/controller"

// Vendor port-type codes in the getDevSetting portData payload.
// The same list mixes ambient sensor probes and controllable ports.
const (
	portTypeDevice = 1 // controllable port (fan, light, outlet, ...)
	portTypeProbe  = 2 // sensor probe port, never controllable
)

// Vendor sensor-type codes and their observed scales.
//
// The cloud API reports fixed-point integers; the divisors below restore
// the declared unit. The VPD scale in particular was confirmed against the
// mobile app: the API reports kPa x10.
const (
	sensorCodeTemperature = 1 // °C x100
	sensorCodeHumidity    = 2 // % x100
	sensorCodeVPD         = 3 // kPa x10
	sensorCodeCO2         = 4 // ppm x1
	sensorCodeLight       = 5 // % x1
)

// vendorMaxLevel is the top of the native command scale (0-10 steps).
const vendorMaxLevel = 10

// normalizeSensor maps a vendor sensor code and raw value to canonical
// type, unit, and scale. Unknown codes report ok=false and are skipped.
func normalizeSensor(code int, raw float64) (controller.SensorType, controller.Unit, float64, bool) {
	switch code {
	case sensorCodeTemperature:
		return controller.SensorTemperature, controller.UnitCelsius, raw / 100, true
	case sensorCodeHumidity:
		return controller.SensorHumidity, controller.UnitPercent, raw / 100, true
	case sensorCodeVPD:
		return controller.SensorVPD, controller.UnitKPa, raw / 10, true
	case sensorCodeCO2:
		return controller.SensorCO2, controller.UnitPPM, raw, true
	case sensorCodeLight:
		return controller.SensorLight, controller.UnitPercent, raw, true
	default:
		return "", "", 0, false
	}
}

// sensorUnit returns the canonical unit a sensor code is reported in.
func sensorUnit(code int) controller.Unit {
	_, unit, _, ok := normalizeSensor(code, 0)
	if !ok {
		return ""
	}
	return unit
}

// sensorType returns the canonical type for a sensor code.
func sensorType(code int) (controller.SensorType, bool) {
	typ, _, _, ok := normalizeSensor(code, 0)
	return typ, ok
}

// deviceType maps the vendor devType code of a controllable port.
// Unrecognised codes fall back to outlet, the least specific class.
func deviceType(code int) controller.DeviceType {
	switch code {
	case 1:
		return controller.DeviceFan
	case 2:
		return controller.DeviceLight
	case 3:
		return controller.DeviceHumidifier
	case 4:
		return controller.DeviceDehumidifier
	case 5:
		return controller.DeviceHeater
	default:
		return controller.DeviceOutlet
	}
}
