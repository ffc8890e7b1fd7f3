package ecowitt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/resilience"
)

// realTimePath is the cloud endpoint for a station's latest readings.
const realTimePath = "/api/v3/device/real_time"

// cloudOKCode is the response code the cloud API uses for success.
const cloudOKCode = 0

// cloudClient speaks the Ecowitt cloud REST API.
type cloudClient struct {
	baseURL string
	http    *http.Client
}

func newCloudClient(baseURL string) *cloudClient {
	return &cloudClient{baseURL: baseURL, http: &http.Client{}}
}

type cloudEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// cloudValue is the cloud API's measurement shape: stringly-typed value
// plus the unit it was recorded in.
type cloudValue struct {
	Unit  string `json:"unit"`
	Value string `json:"value"`
}

// realTime fetches the station's latest readings.
//
// The cloud free tier rate-limits aggressively; 429 is marked transient so
// the retry layer backs off rather than failing the call outright.
func (c *cloudClient) realTime(ctx context.Context, apiKey, appKey, mac string) ([]controller.SensorReading, error) {
	body, err := json.Marshal(map[string]string{
		"application_key": appKey,
		"api_key":         apiKey,
		"mac":             mac,
		"call_back":       "all",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+realTimePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", realTimePath, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, resilience.Transient(fmt.Errorf("POST %s: cloud returned %s", realTimePath, resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: POST %s returned %s", controller.ErrAuthenticationFailed, realTimePath, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: POST %s returned %s", controller.ErrVendorRejected, realTimePath, resp.Status)
	}

	var env cloudEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", realTimePath, err)
	}
	if env.Code != cloudOKCode {
		return nil, fmt.Errorf("%w: code %d: %s", controller.ErrVendorRejected, env.Code, env.Msg)
	}

	return parseCloudData(env.Data, time.Now()), nil
}

// parseCloudData flattens the cloud's nested sections into canonical
// readings. Sections and fields are all optional; anything absent or
// malformed is skipped.
func parseCloudData(data json.RawMessage, now time.Time) []controller.SensorReading {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil
	}

	var readings []controller.SensorReading
	add := func(port int, typ controller.SensorType, unit controller.Unit, cv *cloudValue) {
		if cv == nil {
			return
		}
		v, err := strconv.ParseFloat(cv.Value, 64)
		if err != nil {
			return
		}
		readings = append(readings, controller.SensorReading{
			Port: port, Type: typ, Value: v, Unit: unit, Timestamp: now,
		})
	}

	if raw, ok := sections["outdoor"]; ok {
		var s struct {
			Temperature *cloudValue `json:"temperature"`
			Humidity    *cloudValue `json:"humidity"`
		}
		if json.Unmarshal(raw, &s) == nil {
			add(portOutdoor, controller.SensorTemperature, controller.UnitFahrenheit, s.Temperature)
			add(portOutdoor, controller.SensorHumidity, controller.UnitPercent, s.Humidity)
		}
	}

	if raw, ok := sections["indoor"]; ok {
		var s struct {
			Temperature *cloudValue `json:"temperature"`
			Humidity    *cloudValue `json:"humidity"`
		}
		if json.Unmarshal(raw, &s) == nil {
			add(portIndoor, controller.SensorTemperature, controller.UnitFahrenheit, s.Temperature)
			add(portIndoor, controller.SensorHumidity, controller.UnitPercent, s.Humidity)
		}
	}

	if raw, ok := sections["pressure"]; ok {
		var s struct {
			Relative *cloudValue `json:"relative"`
		}
		if json.Unmarshal(raw, &s) == nil {
			add(portIndoor, controller.SensorPressure, controller.UnitInHg, s.Relative)
		}
	}

	for ch := 1; ch <= maxValveChannel; ch++ {
		raw, ok := sections["soil_ch"+strconv.Itoa(ch)]
		if !ok {
			continue
		}
		var s struct {
			SoilMoisture *cloudValue `json:"soilmoisture"`
		}
		if json.Unmarshal(raw, &s) == nil {
			add(ch, controller.SensorSoilMoisture, controller.UnitPercent, s.SoilMoisture)
		}
	}

	return readings
}
