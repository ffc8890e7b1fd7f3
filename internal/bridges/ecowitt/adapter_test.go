package ecowitt

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/controller/session"
	"github.com/verdantio/grow-core/internal/resilience"
)

// fakeGateway answers the binary TCP protocol, one exchange per connection.
type fakeGateway struct {
	ln       net.Listener
	firmware string
	live     []byte
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	g := &fakeGateway{
		ln:       ln,
		firmware: "GW1100A_V2.1.5",
		live: []byte{
			0x01, 0x00, 0xE6, // indoor temp 23.0 °C
			0x2C, 0x2A, // soil ch1 42 %
		},
	}
	go g.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return g
}

func (g *fakeGateway) serve() {
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			raw, err := readFrame(c)
			if err != nil {
				return
			}
			cmd, _, err := ParseFrame(raw)
			if err != nil {
				return
			}
			switch cmd {
			case CmdSystemInfo:
				_, _ = c.Write(BuildFrame(CmdSystemInfo, []byte(g.firmware)))
			case CmdLiveData:
				_, _ = c.Write(BuildFrame(CmdLiveData, g.live))
			}
		}(conn)
	}
}

func (g *fakeGateway) hostPort(t *testing.T) (string, int) {
	t.Helper()
	addr, ok := g.ln.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected listener addr type %T", g.ln.Addr())
	}
	return addr.IP.String(), addr.Port
}

func newTestAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	if cfg.PushStaleWindow == 0 {
		cfg.PushStaleWindow = time.Hour
	}
	retry := resilience.RetryConfig{
		MaxRetries:        1,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}
	return New(cfg, session.NewCache(), resilience.New(5, time.Minute), retry, nil)
}

func pushCreds() controller.EcowittCredentials {
	return controller.EcowittCredentials{
		Method:     controller.MethodPush,
		GatewayMAC: "AA:BB:CC:DD:EE:FF",
	}
}

func TestConnectPushSynthesizesID(t *testing.T) {
	a := newTestAdapter(t, Config{})

	meta, err := a.Connect(context.Background(), pushCreds())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if meta.ControllerID != "ecowitt-push-aabbccddeeff" {
		t.Errorf("ControllerID = %q, want normalized MAC identity", meta.ControllerID)
	}
	if len(meta.Capabilities.Sensors) != 0 {
		t.Errorf("push capabilities start with %d sensors, want none until reports arrive", len(meta.Capabilities.Sensors))
	}
}

func TestPushIngestAndRead(t *testing.T) {
	a := newTestAdapter(t, Config{})
	meta, err := a.Connect(context.Background(), pushCreds())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	readings, err := a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() before ingest error = %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("got %d readings before any ingest, want 0", len(readings))
	}

	err = a.IngestPush(meta.ControllerID, map[string]string{
		"tempf":         "72.5",
		"humidity":      "48",
		"baromrelin":    "29.92",
		"soilmoisture1": "56",
		"dateutc":       "2026-08-30 12:00:00", // unknown fields are skipped
	})
	if err != nil {
		t.Fatalf("IngestPush() error = %v", err)
	}

	readings, err = a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() error = %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(readings))
	}
	for _, r := range readings {
		if r.Stale {
			t.Errorf("reading %s flagged stale immediately after ingest", r.Type)
		}
	}

	status := a.GetStatus(context.Background(), meta.ControllerID)
	if !status.IsOnline {
		t.Error("GetStatus() offline right after a push report")
	}
}

func TestPushReadingsGoStale(t *testing.T) {
	a := newTestAdapter(t, Config{PushStaleWindow: time.Millisecond})
	meta, err := a.Connect(context.Background(), pushCreds())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := a.IngestPush(meta.ControllerID, map[string]string{"tempf": "70.0"}); err != nil {
		t.Fatalf("IngestPush() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	readings, err := a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() error = %v", err)
	}
	if len(readings) != 1 || !readings[0].Stale {
		t.Errorf("readings = %+v, want the cached value flagged stale", readings)
	}
	if status := a.GetStatus(context.Background(), meta.ControllerID); status.IsOnline {
		t.Error("GetStatus() online past the stale window")
	}
}

func TestPushControlRequiresGatewayIP(t *testing.T) {
	a := newTestAdapter(t, Config{})
	meta, err := a.Connect(context.Background(), pushCreds())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	res := a.ControlDevice(context.Background(), meta.ControllerID, 1, controller.DeviceCommand{Type: controller.CommandTurnOn})
	if res.Success {
		t.Fatal("ControlDevice() succeeded on a push connection")
	}
	if !strings.Contains(res.Error, "gateway IP") {
		t.Errorf("Error = %q, want mention of the missing gateway IP", res.Error)
	}
}

func TestIngestPushOnNonPushSession(t *testing.T) {
	g := newFakeGateway(t)
	host, port := g.hostPort(t)
	a := newTestAdapter(t, Config{TCPPort: port})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodTCP,
		GatewayIP: host,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err = a.IngestPush(meta.ControllerID, map[string]string{"tempf": "70.0"})
	if !errors.Is(err, controller.ErrUnsupportedOperation) {
		t.Errorf("IngestPush() on tcp session error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestConnectTCP(t *testing.T) {
	g := newFakeGateway(t)
	host, port := g.hostPort(t)
	a := newTestAdapter(t, Config{TCPPort: port})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodTCP,
		GatewayIP: host,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if meta.ControllerID != "ecowitt-tcp-"+host {
		t.Errorf("ControllerID = %q, want IP identity", meta.ControllerID)
	}
	if meta.Firmware != "GW1100A_V2.1.5" {
		t.Errorf("Firmware = %q, want the system-info string", meta.Firmware)
	}
	if len(meta.Capabilities.Sensors) != 2 {
		t.Errorf("got %d sensors, want temperature + soil", len(meta.Capabilities.Sensors))
	}
	if len(meta.Capabilities.Devices) != 1 || meta.Capabilities.Devices[0].Type != controller.DeviceValve {
		t.Errorf("Devices = %+v, want one valve on the soil channel", meta.Capabilities.Devices)
	}
	if !meta.Capabilities.SupportsDimming || meta.Capabilities.MaxPorts != 1 {
		t.Errorf("SupportsDimming=%v MaxPorts=%d, want dimming on port 1",
			meta.Capabilities.SupportsDimming, meta.Capabilities.MaxPorts)
	}
}

func TestReadSensorsTCP(t *testing.T) {
	g := newFakeGateway(t)
	host, port := g.hostPort(t)
	a := newTestAdapter(t, Config{TCPPort: port})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodTCP,
		GatewayIP: host,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	readings, err := a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() error = %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].Unit != controller.UnitFahrenheit || math.Abs(readings[0].Value-73.4) > 0.001 {
		t.Errorf("temperature = %v %s, want 73.4 fahrenheit", readings[0].Value, readings[0].Unit)
	}
	if readings[1].Port != 1 || readings[1].Value != 42 {
		t.Errorf("soil = port %d value %v, want port 1 value 42", readings[1].Port, readings[1].Value)
	}
}

func TestGetStatusTCPUnreachable(t *testing.T) {
	g := newFakeGateway(t)
	host, port := g.hostPort(t)
	a := newTestAdapter(t, Config{TCPPort: port})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodTCP,
		GatewayIP: host,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if status := a.GetStatus(context.Background(), meta.ControllerID); !status.IsOnline {
		t.Error("GetStatus() offline while the gateway is listening")
	}

	_ = g.ln.Close()

	if status := a.GetStatus(context.Background(), meta.ControllerID); status.IsOnline {
		t.Error("GetStatus() online after the gateway went away")
	}
}

// fakeLocalHTTP simulates the gateway's embedded web server.
type fakeLocalHTTP struct {
	srv     *httptest.Server
	lastCmd map[string]any
}

func newFakeLocalHTTP(t *testing.T) *fakeLocalHTTP {
	t.Helper()
	f := &fakeLocalHTTP{}

	mux := http.NewServeMux()
	mux.HandleFunc(liveDataPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"common_list": [
				{"id": "0x02", "val": "72.5"},
				{"id": "0x07", "val": "45%"}
			],
			"wh25": [{"intemp": "23.1", "unit": "C", "inhumi": "61%", "rel": "29.92 inHg"}],
			"ch_soil": [{"channel": "1", "humidity": "56%"}]
		}`))
	})
	mux.HandleFunc(quickCmdPath, func(w http.ResponseWriter, r *http.Request) {
		f.lastCmd = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastCmd)
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func TestConnectAndReadHTTP(t *testing.T) {
	f := newFakeLocalHTTP(t)
	a := newTestAdapter(t, Config{})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodHTTP,
		GatewayIP: f.srv.URL,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	readings, err := a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() error = %v", err)
	}
	if len(readings) != 6 {
		t.Fatalf("got %d readings, want 6", len(readings))
	}

	byKey := map[string]controller.SensorReading{}
	for _, r := range readings {
		byKey[string(r.Type)+"/"+strconv.Itoa(r.Port)] = r
	}

	if r := byKey["temperature/"+strconv.Itoa(portOutdoor)]; r.Value != 72.5 || r.Unit != controller.UnitFahrenheit {
		t.Errorf("outdoor temperature = %v %s, want 72.5 fahrenheit", r.Value, r.Unit)
	}
	if r := byKey["temperature/"+strconv.Itoa(portIndoor)]; r.Value != 23.1 || r.Unit != controller.UnitCelsius {
		t.Errorf("indoor temperature = %v %s, want 23.1 celsius as declared", r.Value, r.Unit)
	}
	if r := byKey["humidity/"+strconv.Itoa(portOutdoor)]; r.Value != 45 {
		t.Errorf("outdoor humidity = %v, want 45 with %% suffix stripped", r.Value)
	}
	if r := byKey["pressure/"+strconv.Itoa(portIndoor)]; r.Value != 29.92 || r.Unit != controller.UnitInHg {
		t.Errorf("pressure = %v %s, want 29.92 inhg", r.Value, r.Unit)
	}
	if r := byKey["soil_moisture/1"]; r.Value != 56 {
		t.Errorf("soil ch1 = %v, want 56", r.Value)
	}
}

func TestControlDeviceHTTP(t *testing.T) {
	f := newFakeLocalHTTP(t)
	a := newTestAdapter(t, Config{})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodHTTP,
		GatewayIP: f.srv.URL,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	res := a.ControlDevice(context.Background(), meta.ControllerID, 3, controller.DeviceCommand{
		Type:  controller.CommandSetLevel,
		Value: 40,
	})
	if !res.Success {
		t.Fatalf("ControlDevice() failed: %s", res.Error)
	}
	if res.ActualValue == nil || *res.ActualValue != 40 {
		t.Errorf("ActualValue = %v, want 40", res.ActualValue)
	}

	if got := f.lastCmd["model"]; got != float64(modelValve) {
		t.Errorf("model = %v, want valve-class %d for channel 3", got, modelValve)
	}
	if got := f.lastCmd["id"]; got != float64(3) {
		t.Errorf("id = %v, want port 3", got)
	}
	if got := f.lastCmd["on"]; got != float64(1) {
		t.Errorf("on = %v, want 1", got)
	}
	if got := f.lastCmd["val"]; got != float64(40) {
		t.Errorf("val = %v, want 40", got)
	}
}

func TestControlDeviceOutletClassPort(t *testing.T) {
	f := newFakeLocalHTTP(t)
	a := newTestAdapter(t, Config{})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:    controller.MethodHTTP,
		GatewayIP: f.srv.URL,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	res := a.ControlDevice(context.Background(), meta.ControllerID, 9, controller.DeviceCommand{Type: controller.CommandTurnOff})
	if !res.Success {
		t.Fatalf("ControlDevice() failed: %s", res.Error)
	}
	if got := f.lastCmd["model"]; got != float64(modelOutlet) {
		t.Errorf("model = %v, want outlet-class %d above channel %d", got, modelOutlet, maxValveChannel)
	}
	if got := f.lastCmd["on"]; got != float64(0) {
		t.Errorf("on = %v, want 0", got)
	}
}

func TestControlDeviceUnknownController(t *testing.T) {
	a := newTestAdapter(t, Config{})
	res := a.ControlDevice(context.Background(), "ecowitt-tcp-nowhere", 1, controller.DeviceCommand{Type: controller.CommandTurnOn})
	if res.Success {
		t.Fatal("ControlDevice() succeeded without a session")
	}
	if !strings.Contains(res.Error, "not connected") {
		t.Errorf("Error = %q, want a not-connected message", res.Error)
	}
}

func TestConnectAndReadCloud(t *testing.T) {
	var lastMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != realTimePath {
			http.NotFound(w, r)
			return
		}
		lastMethod = r.Method

		var body struct {
			APIKey   string `json:"api_key"`
			AppKey   string `json:"application_key"`
			MAC      string `json:"mac"`
			CallBack string `json:"call_back"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.APIKey != "key-1" || body.AppKey != "app-1" || body.MAC == "" {
			_, _ = w.Write([]byte(`{"code": 40010, "msg": "Illegal Application_Key Parameter", "data": null}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"code": 0, "msg": "success",
			"data": {
				"outdoor": {
					"temperature": {"unit": "F", "value": "71.6"},
					"humidity": {"unit": "%", "value": "58"}
				},
				"pressure": {"relative": {"unit": "inHg", "value": "29.86"}},
				"soil_ch1": {"soilmoisture": {"unit": "%", "value": "44"}}
			}
		}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, Config{CloudBaseURL: srv.URL})

	meta, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:         controller.MethodCloud,
		GatewayMAC:     "AA:BB:CC:DD:EE:FF",
		APIKey:         "key-1",
		ApplicationKey: "app-1",
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if meta.ControllerID != "ecowitt-cloud-aabbccddeeff" {
		t.Errorf("ControllerID = %q, want MAC identity", meta.ControllerID)
	}
	if lastMethod != http.MethodPost {
		t.Errorf("real_time request method = %q, want POST with a JSON body", lastMethod)
	}
	// Cloud cannot reach the quick-command endpoint.
	if len(meta.Capabilities.Devices) != 0 {
		t.Errorf("cloud capabilities list %d devices, want none", len(meta.Capabilities.Devices))
	}

	readings, err := a.ReadSensors(context.Background(), meta.ControllerID)
	if err != nil {
		t.Fatalf("ReadSensors() error = %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(readings))
	}
}

func TestConnectCloudRejectedKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 40010, "msg": "Illegal Application_Key Parameter", "data": null}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, Config{CloudBaseURL: srv.URL})

	_, err := a.Connect(context.Background(), controller.EcowittCredentials{
		Method:         controller.MethodCloud,
		GatewayMAC:     "AA:BB:CC:DD:EE:FF",
		APIKey:         "bad",
		ApplicationKey: "bad",
	})
	if !errors.Is(err, controller.ErrVendorRejected) {
		t.Fatalf("Connect() error = %v, want ErrVendorRejected", err)
	}
	if !strings.Contains(err.Error(), "Illegal Application_Key Parameter") {
		t.Errorf("error %q does not carry the vendor message verbatim", err.Error())
	}
}

func TestConnectRejectsForeignCredentials(t *testing.T) {
	a := newTestAdapter(t, Config{})
	_, err := a.Connect(context.Background(), controller.ACInfinityCredentials{Email: "x@y.z", Password: "p"})
	if !errors.Is(err, controller.ErrInvalidCredentialType) {
		t.Fatalf("Connect() error = %v, want ErrInvalidCredentialType", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	a := newTestAdapter(t, Config{})
	meta, err := a.Connect(context.Background(), pushCreds())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	a.Disconnect(context.Background(), meta.ControllerID)
	a.Disconnect(context.Background(), meta.ControllerID)

	if _, err := a.ReadSensors(context.Background(), meta.ControllerID); !errors.Is(err, controller.ErrNotConnected) {
		t.Errorf("ReadSensors() after disconnect error = %v, want ErrNotConnected", err)
	}
}
