package ecowitt

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
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
const adapterName = "ecowitt"

// Config holds Ecowitt adapter settings.
type Config struct {
	// TCPPort is the gateway's binary protocol port.
	TCPPort int

	// CloudBaseURL is the cloud API root for the cloud method.
	CloudBaseURL string

	// PushStaleWindow is how long cached push readings stay fresh after
	// the last report before they are flagged stale.
	PushStaleWindow time.Duration
}

// connState is the per-controller state kept in the session's Data slot.
// Everything but push is immutable after Connect.
type connState struct {
	method     controller.ConnectionMethod
	gatewayIP  string
	gatewayMAC string
	apiKey     string
	appKey     string
	push       *pushState
}

// Adapter integrates Ecowitt gateways over any of four connection methods:
// inbound push reports, the local binary TCP protocol, the local HTTP API,
// or the vendor cloud.
//
// The controller id is synthetic, "ecowitt-{method}-{identity}", because
// the gateway has no account-level device id; identity is the gateway IP
// for local methods and the MAC for push and cloud.
type Adapter struct {
	cfg      Config
	tcp      *tcpClient
	local    *localClient
	cloud    *cloudClient
	sessions *session.Cache
	resil    *resilience.Wrapper
	retry    resilience.RetryConfig
	logger   Logger
}

// New creates the Ecowitt adapter.
//
// Parameters:
//   - cfg: Port, cloud endpoint, and push staleness settings
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
		tcp:      &tcpClient{},
		local:    newLocalClient(),
		cloud:    newCloudClient(cfg.CloudBaseURL),
		sessions: sessions,
		resil:    resil,
		retry:    retry,
		logger:   logger,
	}
}

// Brand returns BrandEcowitt.
func (a *Adapter) Brand() controller.Brand { return controller.BrandEcowitt }

// Connect validates credentials for the chosen method, probes the gateway
// where the method allows it, and stores a session under the synthetic id.
//
// Push mode does no I/O at all: the gateway initiates every exchange, so
// Connect only registers the identity and an empty capability snapshot
// that fills in as reports arrive.
func (a *Adapter) Connect(ctx context.Context, creds controller.Credentials) (*controller.ControllerMetadata, error) {
	if err := controller.CheckKind(controller.BrandEcowitt, creds); err != nil {
		return nil, err
	}
	ec := creds.(controller.EcowittCredentials)
	if err := ec.Validate(); err != nil {
		return nil, err
	}

	state := &connState{
		method:     ec.Method,
		gatewayIP:  strings.TrimSpace(ec.GatewayIP),
		gatewayMAC: normalizeMAC(ec.GatewayMAC),
		apiKey:     ec.APIKey,
		appKey:     ec.ApplicationKey,
	}

	var (
		firmware string
		readings []controller.SensorReading
	)

	switch ec.Method {
	case controller.MethodPush:
		state.push = &pushState{}

	case controller.MethodTCP:
		err := a.resil.Do(ctx, adapterName, "system_info", a.retry, func(ctx context.Context) error {
			payload, err := a.tcp.roundTrip(ctx, a.tcpAddr(state.gatewayIP), BuildFrame(CmdSystemInfo, nil))
			if err != nil {
				return err
			}
			firmware = printableASCII(payload)
			return nil
		})
		if err != nil {
			return nil, err
		}
		readings, err = a.readTCP(ctx, state)
		if err != nil {
			return nil, err
		}

	case controller.MethodHTTP:
		var err error
		readings, err = a.readLocal(ctx, state)
		if err != nil {
			return nil, err
		}

	case controller.MethodCloud:
		var err error
		readings, err = a.readCloud(ctx, state)
		if err != nil {
			return nil, err
		}
	}

	id := controllerID(ec.Method, state)
	a.sessions.Put(session.Session{
		ControllerID: id,
		// No token to expire; the session lives until Disconnect.
		Data: state,
	})

	a.logger.Info("controller connected", "controller_id", id, "method", string(ec.Method))

	return &controller.ControllerMetadata{
		ControllerID: id,
		Brand:        controller.BrandEcowitt,
		Model:        "Ecowitt gateway (" + string(ec.Method) + ")",
		Firmware:     firmware,
		Capabilities: buildCapabilities(readings, methodControls(ec.Method)),
	}, nil
}

// methodControls reports whether a connection method can reach the
// gateway's quick-command endpoint.
func methodControls(m controller.ConnectionMethod) bool {
	return m == controller.MethodTCP || m == controller.MethodHTTP
}

// controllerID builds the synthetic id for a connection.
func controllerID(m controller.ConnectionMethod, state *connState) string {
	identity := state.gatewayIP
	if m == controller.MethodPush || m == controller.MethodCloud {
		identity = state.gatewayMAC
	}
	return fmt.Sprintf("%s-%s-%s", adapterName, m, identity)
}

// normalizeMAC lowercases a MAC and strips separators so the same gateway
// always yields the same identity regardless of input formatting.
func normalizeMAC(mac string) string {
	mac = strings.ToLower(strings.TrimSpace(mac))
	mac = strings.ReplaceAll(mac, ":", "")
	return strings.ReplaceAll(mac, "-", "")
}

// buildCapabilities derives the capability snapshot from whatever readings
// the connect-time probe produced. Soil channels double as valve-class
// control ports when the method can reach the gateway directly.
func buildCapabilities(readings []controller.SensorReading, controllable bool) controller.ControllerCapabilities {
	caps := controller.ControllerCapabilities{}

	type sensorKey struct {
		port int
		typ  controller.SensorType
	}
	seen := make(map[sensorKey]bool)

	for _, r := range readings {
		key := sensorKey{r.Port, r.Type}
		if seen[key] {
			continue
		}
		seen[key] = true
		caps.Sensors = append(caps.Sensors, controller.SensorCapability{
			Port: r.Port,
			Type: r.Type,
			Unit: r.Unit,
		})
		if controllable && r.Type == controller.SensorSoilMoisture {
			caps.Devices = append(caps.Devices, controller.DeviceCapability{
				Port:        r.Port,
				Type:        controller.DeviceValve,
				SupportsDim: true,
			})
			caps.SupportsDimming = true
			if r.Port > caps.MaxPorts {
				caps.MaxPorts = r.Port
			}
		}
	}
	return caps
}

// ReadSensors returns the controller's current normalized readings.
//
// In push mode this is a cache read of the last ingested report, flagged
// stale past the configured window; the other methods poll the gateway or
// cloud on demand.
func (a *Adapter) ReadSensors(ctx context.Context, ctrlID string) ([]controller.SensorReading, error) {
	state, err := a.state(ctrlID)
	if err != nil {
		return nil, err
	}

	switch state.method {
	case controller.MethodPush:
		readings, _ := state.push.snapshot(time.Now(), a.cfg.PushStaleWindow)
		return readings, nil
	case controller.MethodTCP:
		return a.readTCP(ctx, state)
	case controller.MethodHTTP:
		return a.readLocal(ctx, state)
	case controller.MethodCloud:
		return a.readCloud(ctx, state)
	}
	return nil, fmt.Errorf("%w: method %q", controller.ErrUnsupportedOperation, state.method)
}

func (a *Adapter) readTCP(ctx context.Context, state *connState) ([]controller.SensorReading, error) {
	var readings []controller.SensorReading
	err := a.resil.Do(ctx, adapterName, "read_sensors", a.retry, func(ctx context.Context) error {
		payload, err := a.tcp.roundTrip(ctx, a.tcpAddr(state.gatewayIP), BuildFrame(CmdLiveData, nil))
		if err != nil {
			return err
		}
		var stopped byte
		readings, stopped = ParseLiveData(payload, time.Now())
		if stopped != 0 {
			a.logger.Warn("live data parse stopped at unknown item code",
				"code", fmt.Sprintf("%#02x", stopped), "salvaged", len(readings))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (a *Adapter) readLocal(ctx context.Context, state *connState) ([]controller.SensorReading, error) {
	var readings []controller.SensorReading
	err := a.resil.Do(ctx, adapterName, "read_sensors", a.retry, func(ctx context.Context) error {
		var err error
		readings, err = a.local.liveData(ctx, state.gatewayIP)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (a *Adapter) readCloud(ctx context.Context, state *connState) ([]controller.SensorReading, error) {
	var readings []controller.SensorReading
	err := a.resil.Do(ctx, adapterName, "read_sensors", a.retry, func(ctx context.Context) error {
		var err error
		readings, err = a.cloud.realTime(ctx, state.apiKey, state.appKey, state.gatewayMAC)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// ControlDevice applies a command to a gateway channel. Never returns an
// error; the result carries Success=false and a message on failure.
//
// Control needs the gateway's local quick-command endpoint, so push and
// cloud connections always fail here: neither knows a gateway IP.
func (a *Adapter) ControlDevice(ctx context.Context, ctrlID string, port int, cmd controller.DeviceCommand) controller.CommandResult {
	now := time.Now()

	state, err := a.state(ctrlID)
	if err != nil {
		return controller.CommandResult{
			Success:   false,
			Error:     fmt.Sprintf("controller %s is not connected", ctrlID),
			Timestamp: now,
		}
	}

	if !methodControls(state.method) {
		return controller.CommandResult{
			Success:   false,
			Error:     fmt.Sprintf("device control requires a gateway IP; %s connections cannot reach the gateway", state.method),
			Timestamp: now,
		}
	}

	var (
		on    bool
		level int
	)
	switch cmd.Type {
	case controller.CommandTurnOn:
		on, level = true, controller.CanonicalMax
	case controller.CommandTurnOff:
		on, level = false, 0
	case controller.CommandSetLevel:
		level = controller.ToVendorScale(cmd.Value, controller.CanonicalMax)
		on = level > 0
	default:
		return controller.CommandResult{
			Success:   false,
			Error:     fmt.Sprintf("unsupported command type %q", cmd.Type),
			Timestamp: now,
		}
	}

	err = a.resil.Do(ctx, adapterName, "control_device", a.retry, func(ctx context.Context) error {
		return a.local.quickCommand(ctx, state.gatewayIP, port, on, level)
	})
	if err != nil {
		return controller.CommandResult{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		}
	}

	actual := level
	return controller.CommandResult{
		Success:     true,
		ActualValue: &actual,
		Timestamp:   time.Now(),
	}
}

// GetStatus probes liveness by the cheapest means each method offers.
// Any failure reports IsOnline=false, never an error.
func (a *Adapter) GetStatus(ctx context.Context, ctrlID string) controller.ControllerStatus {
	state, err := a.state(ctrlID)
	if err != nil {
		return controller.ControllerStatus{IsOnline: false}
	}

	switch state.method {
	case controller.MethodPush:
		_, last := state.push.snapshot(time.Now(), a.cfg.PushStaleWindow)
		if last.IsZero() || time.Since(last) > a.cfg.PushStaleWindow {
			return controller.ControllerStatus{IsOnline: false, LastSeen: last}
		}
		return controller.ControllerStatus{IsOnline: true, LastSeen: last}

	case controller.MethodTCP:
		var firmware string
		err := a.resil.Do(ctx, adapterName, "get_status", a.retry, func(ctx context.Context) error {
			payload, err := a.tcp.roundTrip(ctx, a.tcpAddr(state.gatewayIP), BuildFrame(CmdSystemInfo, nil))
			if err != nil {
				return err
			}
			firmware = printableASCII(payload)
			return nil
		})
		if err != nil {
			a.logger.Debug("status probe failed", "controller_id", ctrlID, "error", err.Error())
			return controller.ControllerStatus{IsOnline: false}
		}
		return controller.ControllerStatus{IsOnline: true, LastSeen: time.Now(), Firmware: firmware}

	case controller.MethodHTTP:
		if _, err := a.readLocal(ctx, state); err != nil {
			a.logger.Debug("status probe failed", "controller_id", ctrlID, "error", err.Error())
			return controller.ControllerStatus{IsOnline: false}
		}
		return controller.ControllerStatus{IsOnline: true, LastSeen: time.Now()}

	case controller.MethodCloud:
		if _, err := a.readCloud(ctx, state); err != nil {
			a.logger.Debug("status probe failed", "controller_id", ctrlID, "error", err.Error())
			return controller.ControllerStatus{IsOnline: false}
		}
		return controller.ControllerStatus{IsOnline: true, LastSeen: time.Now()}
	}
	return controller.ControllerStatus{IsOnline: false}
}

// Disconnect removes the session if present. Idempotent.
func (a *Adapter) Disconnect(_ context.Context, ctrlID string) {
	a.sessions.Delete(ctrlID)
}

// IngestPush feeds a gateway push report into the controller's cache.
//
// Parameters:
//   - ctrlID: The synthetic push controller id
//   - fields: The report's form fields (tempf, humidity, soilmoistureN, ...)
//
// Returns:
//   - error: ErrNotConnected when no session exists,
//     ErrUnsupportedOperation when the session is not in push mode
func (a *Adapter) IngestPush(ctrlID string, fields map[string]string) error {
	state, err := a.state(ctrlID)
	if err != nil {
		return err
	}
	if state.push == nil {
		return fmt.Errorf("%w: %s is not a push connection", controller.ErrUnsupportedOperation, ctrlID)
	}

	now := time.Now()
	readings := parsePushFields(fields, now)
	state.push.store(readings, now)

	a.logger.Debug("push report ingested", "controller_id", ctrlID, "readings", len(readings))
	return nil
}

// state resolves the session for ctrlID and unpacks its connection state.
func (a *Adapter) state(ctrlID string) (*connState, error) {
	sess, ok := a.sessions.Get(ctrlID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", controller.ErrNotConnected, ctrlID)
	}
	state, ok := sess.Data.(*connState)
	if !ok {
		return nil, fmt.Errorf("%w: %s", controller.ErrNotConnected, ctrlID)
	}
	return state, nil
}

func (a *Adapter) tcpAddr(ip string) string {
	return net.JoinHostPort(ip, strconv.Itoa(a.cfg.TCPPort))
}

// printableASCII keeps the printable bytes of a system-info payload, which
// is enough to surface a firmware string without decoding the full layout.
func printableASCII(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7F {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}
