package ecowitt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/resilience"
)

// Local gateway HTTP endpoints. The gateway's embedded web server has no
// authentication; reachability on the LAN is the trust boundary.
const (
	liveDataPath = "/get_livedata_info"
	quickCmdPath = "/parse_quick_cmd_iot"
)

// Vendor model discriminators for the quick-command endpoint.
const (
	modelValve  = 1
	modelOutlet = 2
)

// maxValveChannel is the highest valve channel the gateway addresses;
// ports above it are treated as outlet-class.
const maxValveChannel = 8

// localClient speaks the gateway's local HTTP API.
type localClient struct {
	http *http.Client
}

func newLocalClient() *localClient {
	return &localClient{http: &http.Client{}}
}

// localLiveData mirrors get_livedata_info. Every section is optional;
// which ones appear depends on the sensors paired with the gateway.
type localLiveData struct {
	CommonList []localItem `json:"common_list"`
	WH25       []localWH25 `json:"wh25"`
	ChSoil     []localSoil `json:"ch_soil"`
}

type localItem struct {
	ID  string `json:"id"`
	Val string `json:"val"`
}

type localWH25 struct {
	InTemp  string `json:"intemp"`
	Unit    string `json:"unit"`
	InHumi  string `json:"inhumi"`
	RelPres string `json:"rel"`
}

type localSoil struct {
	Channel  string `json:"channel"`
	Humidity string `json:"humidity"`
}

// Item ids in common_list reuse the binary protocol's code space,
// rendered as hex strings.
const (
	localIDOutdoorTemp     = "0x02"
	localIDOutdoorHumidity = "0x07"
)

// liveData fetches and normalizes the gateway's current readings.
func (l *localClient) liveData(ctx context.Context, ip string) ([]controller.SensorReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL(ip)+liveDataPath, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", liveDataPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s returned %s", controller.ErrVendorRejected, liveDataPath, resp.Status)
	}

	var data localLiveData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding live data: %w", err)
	}

	return normalizeLocalData(&data, time.Now()), nil
}

// normalizeLocalData converts the gateway's stringly-typed JSON into
// canonical readings. Malformed or absent values are skipped, not errors;
// the gateway omits sections freely as sensors come and go.
func normalizeLocalData(data *localLiveData, now time.Time) []controller.SensorReading {
	var readings []controller.SensorReading

	for _, item := range data.CommonList {
		v, ok := parseLocalNumber(item.Val)
		if !ok {
			continue
		}
		switch item.ID {
		case localIDOutdoorTemp:
			readings = append(readings, controller.SensorReading{
				Port: portOutdoor, Type: controller.SensorTemperature,
				Value: v, Unit: controller.UnitFahrenheit, Timestamp: now,
			})
		case localIDOutdoorHumidity:
			readings = append(readings, controller.SensorReading{
				Port: portOutdoor, Type: controller.SensorHumidity,
				Value: v, Unit: controller.UnitPercent, Timestamp: now,
			})
		}
	}

	for _, w := range data.WH25 {
		if v, ok := parseLocalNumber(w.InTemp); ok {
			unit := controller.UnitFahrenheit
			if strings.EqualFold(strings.TrimSpace(w.Unit), "c") {
				unit = controller.UnitCelsius
			}
			readings = append(readings, controller.SensorReading{
				Port: portIndoor, Type: controller.SensorTemperature,
				Value: v, Unit: unit, Timestamp: now,
			})
		}
		if v, ok := parseLocalNumber(w.InHumi); ok {
			readings = append(readings, controller.SensorReading{
				Port: portIndoor, Type: controller.SensorHumidity,
				Value: v, Unit: controller.UnitPercent, Timestamp: now,
			})
		}
		if v, ok := parseLocalNumber(w.RelPres); ok {
			readings = append(readings, controller.SensorReading{
				Port: portIndoor, Type: controller.SensorPressure,
				Value: v, Unit: controller.UnitInHg, Timestamp: now,
			})
		}
	}

	for _, s := range data.ChSoil {
		ch, err := strconv.Atoi(strings.TrimSpace(s.Channel))
		if err != nil || ch < 1 {
			continue
		}
		v, ok := parseLocalNumber(s.Humidity)
		if !ok {
			continue
		}
		readings = append(readings, controller.SensorReading{
			Port: ch, Type: controller.SensorSoilMoisture,
			Value: v, Unit: controller.UnitPercent, Timestamp: now,
		})
	}

	return readings
}

// parseLocalNumber strips unit suffixes the gateway appends ("56%",
// "29.92 inHg") and parses the leading number.
func parseLocalNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// quickCommand drives a controllable channel through the gateway.
//
// Parameters:
//   - ip: Gateway address
//   - port: Channel number; 1-8 address valve-class hardware, higher
//     channels address outlet-class
//   - on: Whether the channel should be running
//   - level: Vendor 0-100 intensity, meaningful when on
func (l *localClient) quickCommand(ctx context.Context, ip string, port int, on bool, level int) error {
	model := modelValve
	if port > maxValveChannel {
		model = modelOutlet
	}
	onVal := 0
	if on {
		onVal = 1
	}

	body, err := json.Marshal(map[string]any{
		"model": model,
		"id":    port,
		"on":    onVal,
		"val":   level,
	})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gatewayURL(ip)+quickCmdPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", quickCmdPath, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return resilience.Transient(fmt.Errorf("POST %s: gateway returned %s", quickCmdPath, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: POST %s returned %s", controller.ErrVendorRejected, quickCmdPath, resp.Status)
	}
	return nil
}

func gatewayURL(ip string) string {
	if strings.Contains(ip, "://") {
		return strings.TrimSuffix(ip, "/")
	}
	return "http://" + ip
}
