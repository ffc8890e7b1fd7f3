package acinfinity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/controller/session"
	"github.com/verdantio/grow-core/internal/resilience"
)

// Logger defines the logging interface used by the Adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// adapterName keys the circuit breaker and metrics labels.
const adapterName = "acinfinity"

// Config holds AC Infinity adapter settings.
type Config struct {
	// BaseURL is the cloud API root.
	BaseURL string

	// SessionTTL is how long a bearer token is cached before the caller
	// must reconnect (or RefreshAuth extends it).
	SessionTTL time.Duration
}

// Adapter integrates AC Infinity controllers via their cloud REST API.
//
// The connect flow is two-step: credentials buy a bearer token, the token
// buys the device list. The first device returned becomes the controller
// identity; additional devices on the account are logged and dropped, a
// documented limitation rather than an error.
type Adapter struct {
	cfg      Config
	client   *Client
	sessions *session.Cache
	resil    *resilience.Wrapper
	retry    resilience.RetryConfig
	logger   Logger
}

// New creates the AC Infinity adapter.
//
// Parameters:
//   - cfg: Endpoint and session settings
//   - sessions: Shared session cache
//   - resil: Shared resilience wrapper
//   - retry: Retry policy for this adapter's calls
//   - logger: May be nil
func New(cfg Config, sessions *session.Cache, resil *resilience.Wrapper, retry resilience.RetryConfig, logger Logger) *Adapter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Adapter{
		cfg:      cfg,
		client:   NewClient(cfg.BaseURL),
		sessions: sessions,
		resil:    resil,
		retry:    retry,
		logger:   logger,
	}
}

// Brand returns BrandACInfinity.
func (a *Adapter) Brand() controller.Brand { return controller.BrandACInfinity }

// Connect authenticates, discovers the account's first device, builds the
// capability snapshot, and stores a session keyed by the vendor device id.
func (a *Adapter) Connect(ctx context.Context, creds controller.Credentials) (*controller.ControllerMetadata, error) {
	if err := controller.CheckKind(controller.BrandACInfinity, creds); err != nil {
		return nil, err
	}
	ac := creds.(controller.ACInfinityCredentials)
	if err := ac.Validate(); err != nil {
		return nil, err
	}

	var token string
	err := a.resil.Do(ctx, adapterName, "login", a.retry, func(ctx context.Context) error {
		var err error
		token, err = a.client.Login(ctx, ac.Email, ac.Password)
		return err
	})
	if err != nil {
		return nil, err
	}

	var devices []deviceInfo
	err = a.resil.Do(ctx, adapterName, "device_list", a.retry, func(ctx context.Context) error {
		var err error
		devices, err = a.client.DeviceList(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: account has no controllers", controller.ErrNoDevicesFound)
	}

	dev := devices[0]
	if len(devices) > 1 {
		a.logger.Warn("account has multiple controllers, using the first",
			"selected", dev.DevID, "dropped", len(devices)-1)
	}

	var settings *devSettings
	err = a.resil.Do(ctx, adapterName, "device_settings", a.retry, func(ctx context.Context) error {
		var err error
		settings, err = a.client.DeviceSettings(ctx, token, dev.DevID)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.sessions.Put(session.Session{
		ControllerID: dev.DevID,
		Token:        token,
		ExpiresAt:    time.Now().Add(a.cfg.SessionTTL),
	})

	a.logger.Info("controller connected", "controller_id", dev.DevID, "model", dev.DevName)

	return &controller.ControllerMetadata{
		ControllerID: dev.DevID,
		Brand:        controller.BrandACInfinity,
		Model:        dev.DevName,
		Firmware:     dev.FirmwareVersion,
		Capabilities: buildCapabilities(settings),
	}, nil
}

// buildCapabilities derives the immutable capability snapshot from the
// mixed sensor/port settings payload.
func buildCapabilities(settings *devSettings) controller.ControllerCapabilities {
	caps := controller.ControllerCapabilities{
		// Port schedules exist on the vendor side but are not exposed
		// through this layer.
		SupportsScheduling: false,
	}

	for i, s := range settings.SensorData {
		typ, ok := sensorType(s.SensorType)
		if !ok {
			continue
		}
		caps.Sensors = append(caps.Sensors, controller.SensorCapability{
			// Ambient probes are not addressable ports; index them in
			// reported order.
			Port: i,
			Type: typ,
			Unit: sensorUnit(s.SensorType),
		})
	}

	maxPort := 0
	for _, p := range settings.PortData {
		if p.PortID > maxPort {
			maxPort = p.PortID
		}
		if p.PortType != portTypeDevice {
			continue
		}
		dim := p.SupportDim == 1
		caps.Devices = append(caps.Devices, controller.DeviceCapability{
			Port:        p.PortID,
			Type:        deviceType(p.DevType),
			Name:        p.PortName,
			SupportsDim: dim,
		})
		if dim {
			caps.SupportsDimming = true
		}
	}
	caps.MaxPorts = maxPort

	return caps
}

// ReadSensors returns the controller's ambient readings in canonical units.
func (a *Adapter) ReadSensors(ctx context.Context, controllerID string) ([]controller.SensorReading, error) {
	sess, ok := a.sessions.Get(controllerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", controller.ErrNotConnected, controllerID)
	}

	var settings *devSettings
	err := a.resil.Do(ctx, adapterName, "read_sensors", a.retry, func(ctx context.Context) error {
		var err error
		settings, err = a.client.DeviceSettings(ctx, sess.Token, controllerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	readings := make([]controller.SensorReading, 0, len(settings.SensorData))
	for i, s := range settings.SensorData {
		typ, unit, value, ok := normalizeSensor(s.SensorType, s.Value)
		if !ok {
			a.logger.Debug("skipping unknown sensor code", "code", s.SensorType)
			continue
		}
		readings = append(readings, controller.SensorReading{
			Port:      i,
			Type:      typ,
			Value:     value,
			Unit:      unit,
			Timestamp: now,
		})
	}
	return readings, nil
}

// ControlDevice applies a command to a port. Never returns an error; the
// result carries Success=false and a message on failure.
func (a *Adapter) ControlDevice(ctx context.Context, controllerID string, port int, cmd controller.DeviceCommand) controller.CommandResult {
	now := time.Now()

	sess, ok := a.sessions.Get(controllerID)
	if !ok {
		return controller.CommandResult{
			Success:   false,
			Error:     fmt.Sprintf("controller %s is not connected", controllerID),
			Timestamp: now,
		}
	}

	var power int
	switch cmd.Type {
	case controller.CommandTurnOn:
		power = vendorMaxLevel
	case controller.CommandTurnOff:
		power = 0
	case controller.CommandSetLevel:
		power = controller.ToVendorScale(cmd.Value, vendorMaxLevel)
	default:
		return controller.CommandResult{
			Success:   false,
			Error:     fmt.Sprintf("unsupported command type %q", cmd.Type),
			Timestamp: now,
		}
	}

	err := a.resil.Do(ctx, adapterName, "control_device", a.retry, func(ctx context.Context) error {
		return a.client.UpdatePort(ctx, sess.Token, controllerID, port, power)
	})
	if err != nil {
		return controller.CommandResult{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		}
	}

	actual := controller.FromVendorScale(power, vendorMaxLevel)
	return controller.CommandResult{
		Success:     true,
		ActualValue: &actual,
		Timestamp:   time.Now(),
	}
}

// GetStatus probes liveness via the device list. Any failure (missing
// session, network, vendor) reports IsOnline=false, never an error.
func (a *Adapter) GetStatus(ctx context.Context, controllerID string) controller.ControllerStatus {
	sess, ok := a.sessions.Get(controllerID)
	if !ok {
		return controller.ControllerStatus{IsOnline: false}
	}

	var devices []deviceInfo
	err := a.resil.Do(ctx, adapterName, "get_status", a.retry, func(ctx context.Context) error {
		var err error
		devices, err = a.client.DeviceList(ctx, sess.Token)
		return err
	})
	if err != nil {
		a.logger.Debug("status probe failed", "controller_id", controllerID, "error", err.Error())
		return controller.ControllerStatus{IsOnline: false}
	}

	for _, d := range devices {
		if d.DevID == controllerID {
			return controller.ControllerStatus{
				IsOnline: d.Online == 1,
				LastSeen: time.Now(),
				Firmware: d.FirmwareVersion,
			}
		}
	}
	return controller.ControllerStatus{IsOnline: false}
}

// Disconnect removes the session if present. Idempotent.
func (a *Adapter) Disconnect(_ context.Context, controllerID string) {
	a.sessions.Delete(controllerID)
}

// RefreshAuth re-validates the cached token with a cheap authenticated
// call. Success extends the session TTL; an authentication failure drops
// the session. The boolean reports whether the controller remains usable.
func (a *Adapter) RefreshAuth(ctx context.Context, controllerID string) bool {
	sess, ok := a.sessions.Get(controllerID)
	if !ok {
		return false
	}

	err := a.resil.Do(ctx, adapterName, "refresh_auth", a.retry, func(ctx context.Context) error {
		_, err := a.client.DeviceList(ctx, sess.Token)
		return err
	})
	if err != nil {
		if isAuthError(err) {
			a.sessions.Delete(controllerID)
		}
		return false
	}

	a.sessions.Extend(controllerID, time.Now().Add(a.cfg.SessionTTL))
	return true
}

func isAuthError(err error) bool {
	return errors.Is(err, controller.ErrAuthenticationFailed)
}
