package ecowitt

import (
	"strconv"
	"sync"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
)

// pushState holds the latest readings delivered by a gateway in push mode.
// It lives in the session's Data slot and carries its own lock; the session
// cache guards the map, not the values inside entries.
type pushState struct {
	mu         sync.Mutex
	readings   []controller.SensorReading
	lastIngest time.Time
}

// store replaces the cached readings with a fresh batch.
func (p *pushState) store(readings []controller.SensorReading, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings = readings
	p.lastIngest = now
}

// snapshot returns a copy of the cached readings, each flagged stale when
// the last ingest is older than the window. A zero lastIngest means no
// report ever arrived.
func (p *pushState) snapshot(now time.Time, staleAfter time.Duration) ([]controller.SensorReading, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]controller.SensorReading, len(p.readings))
	copy(out, p.readings)

	stale := !p.lastIngest.IsZero() && now.Sub(p.lastIngest) > staleAfter
	if stale {
		for i := range out {
			out[i].Stale = true
		}
	}
	return out, p.lastIngest
}

// Wunderground-style field names the gateway POSTs in push mode. Values
// arrive in imperial units.
const (
	fieldOutdoorTempF    = "tempf"
	fieldIndoorTempF     = "tempinf"
	fieldOutdoorHumidity = "humidity"
	fieldIndoorHumidity  = "humidityin"
	fieldRelPressureInHg = "baromrelin"
	fieldSoilPrefix      = "soilmoisture"
)

// parsePushFields converts a push report's form fields into canonical
// readings. Unrecognized or malformed fields are skipped.
func parsePushFields(fields map[string]string, now time.Time) []controller.SensorReading {
	var readings []controller.SensorReading
	add := func(port int, typ controller.SensorType, unit controller.Unit, raw string) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}
		readings = append(readings, controller.SensorReading{
			Port: port, Type: typ, Value: v, Unit: unit, Timestamp: now,
		})
	}

	if v, ok := fields[fieldOutdoorTempF]; ok {
		add(portOutdoor, controller.SensorTemperature, controller.UnitFahrenheit, v)
	}
	if v, ok := fields[fieldIndoorTempF]; ok {
		add(portIndoor, controller.SensorTemperature, controller.UnitFahrenheit, v)
	}
	if v, ok := fields[fieldOutdoorHumidity]; ok {
		add(portOutdoor, controller.SensorHumidity, controller.UnitPercent, v)
	}
	if v, ok := fields[fieldIndoorHumidity]; ok {
		add(portIndoor, controller.SensorHumidity, controller.UnitPercent, v)
	}
	if v, ok := fields[fieldRelPressureInHg]; ok {
		add(portIndoor, controller.SensorPressure, controller.UnitInHg, v)
	}
	for ch := 1; ch <= maxValveChannel; ch++ {
		if v, ok := fields[fieldSoilPrefix+strconv.Itoa(ch)]; ok {
			add(ch, controller.SensorSoilMoisture, controller.UnitPercent, v)
		}
	}
	return readings
}
