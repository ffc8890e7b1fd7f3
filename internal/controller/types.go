package controller

import (
	"context"
	"time"
)

// Brand identifies a controller vendor integration.
type Brand string

// Supported brands.
const (
	BrandACInfinity Brand = "acinfinity"
	BrandEcowitt    Brand = "ecowitt"
	BrandTrolmaster Brand = "trolmaster"
)

// SensorType is the canonical classification of a sensor reading.
// Vendor-specific codes are mapped onto this set by each adapter.
type SensorType string

// Canonical sensor types.
const (
	SensorTemperature  SensorType = "temperature"
	SensorHumidity     SensorType = "humidity"
	SensorVPD          SensorType = "vpd"
	SensorCO2          SensorType = "co2"
	SensorLight        SensorType = "light"
	SensorPH           SensorType = "ph"
	SensorEC           SensorType = "ec"
	SensorPressure     SensorType = "pressure"
	SensorSoilMoisture SensorType = "soil_moisture"
	SensorWindSpeed    SensorType = "wind_speed"
	SensorRainfall     SensorType = "rainfall"
)

// DeviceType is the canonical classification of a controllable port.
type DeviceType string

// Canonical device types.
const (
	DeviceFan          DeviceType = "fan"
	DeviceLight        DeviceType = "light"
	DeviceOutlet       DeviceType = "outlet"
	DeviceValve        DeviceType = "valve"
	DevicePump         DeviceType = "pump"
	DeviceHumidifier   DeviceType = "humidifier"
	DeviceDehumidifier DeviceType = "dehumidifier"
	DeviceHeater       DeviceType = "heater"
)

// Unit is the measurement unit a SensorReading's value is expressed in.
type Unit string

// Canonical units.
const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
	UnitPercent    Unit = "percent"
	UnitKPa        Unit = "kpa"
	UnitHPa        Unit = "hpa"
	UnitInHg       Unit = "inhg"
	UnitPPM        Unit = "ppm"
	UnitLux        Unit = "lux"
	UnitPH         Unit = "ph"
	UnitMSCm       Unit = "ms_cm"
	UnitMPS        Unit = "m_s"
	UnitMM         Unit = "mm"
)

// SensorReading is one normalized measurement from a controller port.
// Value is always expressed in Unit, never in a vendor-internal scale.
type SensorReading struct {
	Port      int        `json:"port"`
	Type      SensorType `json:"type"`
	Value     float64    `json:"value"`
	Unit      Unit       `json:"unit"`
	Timestamp time.Time  `json:"timestamp"`
	Stale     bool       `json:"is_stale"`
}

// CommandType enumerates the supported device commands.
type CommandType string

// Supported command types.
const (
	CommandTurnOn   CommandType = "turn_on"
	CommandTurnOff  CommandType = "turn_off"
	CommandSetLevel CommandType = "set_level"
)

// DeviceCommand is a request to change a controllable port.
// Value is only meaningful for CommandSetLevel and uses the canonical
// 0-100 range regardless of the vendor's native resolution.
type DeviceCommand struct {
	Type  CommandType `json:"type"`
	Value int         `json:"value"`
}

// CommandResult reports the outcome of a device command.
//
// ActualValue is echoed back in the canonical 0-100 scale after round-trip
// quantization, so a coarse vendor resolution (e.g. 0-10 steps) is visible
// to the caller as the value the hardware actually took.
type CommandResult struct {
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ActualValue *int      `json:"actual_value,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SensorCapability describes one sensor port a controller exposes.
type SensorCapability struct {
	Port int        `json:"port"`
	Type SensorType `json:"type"`
	Unit Unit       `json:"unit"`
}

// DeviceCapability describes one controllable port.
type DeviceCapability struct {
	Port        int        `json:"port"`
	Type        DeviceType `json:"type"`
	Name        string     `json:"name,omitempty"`
	SupportsDim bool       `json:"supports_dim"`
}

// ControllerCapabilities is the capability snapshot built once per Connect.
// The slices are never mutated after construction; callers may retain them.
type ControllerCapabilities struct {
	Sensors            []SensorCapability `json:"sensors"`
	Devices            []DeviceCapability `json:"devices"`
	SupportsDimming    bool               `json:"supports_dimming"`
	SupportsScheduling bool               `json:"supports_scheduling"`
	MaxPorts           int                `json:"max_ports"`
}

// ControllerMetadata identifies a connected controller.
type ControllerMetadata struct {
	ControllerID string                 `json:"controller_id"`
	Brand        Brand                  `json:"brand"`
	Model        string                 `json:"model"`
	Firmware     string                 `json:"firmware,omitempty"`
	Capabilities ControllerCapabilities `json:"capabilities"`
}

// ControllerStatus is a best-effort liveness report. Any I/O failure during
// the probe is reported as IsOnline=false, never as an error.
type ControllerStatus struct {
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen,omitempty"`
	Firmware string    `json:"firmware,omitempty"`
}

// Adapter is the contract every vendor integration implements.
//
// Connect and ReadSensors surface failures as errors; ControlDevice and
// GetStatus never do; they always return a result so status polling and
// control loops degrade without exception-driven flow. Disconnect is
// idempotent.
type Adapter interface {
	// Brand returns the vendor this adapter serves.
	Brand() Brand

	// Connect validates the credential tag, authenticates, discovers the
	// first device the vendor returns, stores a session, and reports
	// brand/model/firmware/capabilities.
	Connect(ctx context.Context, creds Credentials) (*ControllerMetadata, error)

	// ReadSensors returns the controller's current normalized readings.
	// Fails with ErrNotConnected when no live session exists.
	ReadSensors(ctx context.Context, controllerID string) ([]SensorReading, error)

	// ControlDevice applies a command to a port. Never returns an error;
	// failures come back as Success=false with a human-readable message.
	ControlDevice(ctx context.Context, controllerID string, port int, cmd DeviceCommand) CommandResult

	// GetStatus probes controller liveness. Never returns an error.
	GetStatus(ctx context.Context, controllerID string) ControllerStatus

	// Disconnect releases session state for the controller, if any.
	Disconnect(ctx context.Context, controllerID string)
}

// AuthRefresher is optionally implemented by adapters whose sessions can be
// re-validated or renewed in place. The boolean reports whether the
// controller remains usable.
type AuthRefresher interface {
	RefreshAuth(ctx context.Context, controllerID string) bool
}
