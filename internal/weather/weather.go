// Package weather computes the simulated outside-air conditions that drive
// every thermal equipment model, and publishes them as read-only points
// under the synthetic Weather.* path.
package weather

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/pkg/solar"
)

// Conditions is one tick's worth of computed weather state.
type Conditions struct {
	OAT             float64 // degF
	Humidity        float64 // percent, 0..100
	WetBulbF        float64
	DewPointF       float64
	EnthalpyBTUPerLb float64
	SolarIrradiance float64 // W/m^2
	WindSpeed       float64 // mph
	CloudCover      float64 // 0..1
	BrownoutActive  bool
	IsDaytime       bool
}

// Model computes per-tick weather conditions from sim time, latitude and an
// active scenario, and mirrors them onto registry points.
type Model struct {
	lat float64
	lon float64
	rng *rand.Rand

	scenarioMu sync.RWMutex
	scenario   Scenario

	points map[string]*registry.Point
}

// pointPaths enumerates every Weather.* point this model exposes, in the
// order they're registered.
var pointPaths = []string{
	"Weather.oat",
	"Weather.humidity",
	"Weather.wet_bulb",
	"Weather.dew_point",
	"Weather.enthalpy",
	"Weather.solar_irradiance",
	"Weather.wind_speed",
	"Weather.cloud_cover",
	"Weather.is_daytime",
}

var pointUnits = map[string]string{
	"Weather.oat":              "degF",
	"Weather.humidity":         "percent",
	"Weather.wet_bulb":         "degF",
	"Weather.dew_point":        "degF",
	"Weather.enthalpy":         "BTU/lb",
	"Weather.solar_irradiance": "W/m2",
	"Weather.wind_speed":       "mph",
	"Weather.cloud_cover":      "fraction",
	"Weather.is_daytime":       "",
}

// New creates a weather model at the given latitude (longitude defaults to
// 0, since BASim's campus has no configurable longitude) and registers its
// read-only points on reg.
func New(reg *registry.Registry, lat float64, scenario Scenario, seed int64) *Model {
	m := &Model{
		lat:      lat,
		scenario: scenario,
		rng:      rand.New(rand.NewSource(seed)),
		points:   make(map[string]*registry.Point),
	}
	for _, path := range pointPaths {
		m.points[path] = reg.Register(path, registry.KindAnalog, pointUnits[path], false)
	}
	return m
}

// SetScenario changes the active scenario, effective on the next Advance.
// Safe to call from an API handler goroutine while the tick driver is
// running Advance concurrently.
func (m *Model) SetScenario(s Scenario) {
	m.scenarioMu.Lock()
	m.scenario = s
	m.scenarioMu.Unlock()
}

// Scenario returns the currently active scenario.
func (m *Model) Scenario() Scenario {
	m.scenarioMu.RLock()
	defer m.scenarioMu.RUnlock()
	return m.scenario
}

// Advance computes this tick's conditions for simTime and writes them onto
// the registered Weather.* points.
func (m *Model) Advance(simTime time.Time) Conditions {
	dayOfYear := simTime.YearDay()
	hour := float64(simTime.Hour()) + float64(simTime.Minute())/60.0

	oat := annualSeasonal(m.lat, dayOfYear) + dailyDiurnal(hour)
	humidity := baselineHumidity(hour)
	cloudCover := 0.2
	windSpeed := 5.0

	ghi := solar.CalculateGHIIneichenPerez(simTime, m.lat, 0, 0)

	c := Conditions{
		OAT:             oat,
		Humidity:        humidity,
		SolarIrradiance: ghi,
		WindSpeed:       windSpeed,
		CloudCover:      cloudCover,
		IsDaytime:       isDaytime(simTime, dayOfYear, m.lat, m.lon),
	}

	applyScenario(&c, m.Scenario(), m.rng)

	d := computeDerived(c.OAT, c.Humidity)
	c.WetBulbF = d.WetBulbF
	c.DewPointF = d.DewPointF
	c.EnthalpyBTUPerLb = d.EnthalpyBTUPerLb

	m.points["Weather.oat"].SetPresentValue(c.OAT)
	m.points["Weather.humidity"].SetPresentValue(c.Humidity)
	m.points["Weather.wet_bulb"].SetPresentValue(c.WetBulbF)
	m.points["Weather.dew_point"].SetPresentValue(c.DewPointF)
	m.points["Weather.enthalpy"].SetPresentValue(c.EnthalpyBTUPerLb)
	m.points["Weather.solar_irradiance"].SetPresentValue(c.SolarIrradiance)
	m.points["Weather.wind_speed"].SetPresentValue(c.WindSpeed)
	m.points["Weather.cloud_cover"].SetPresentValue(c.CloudCover)
	if c.IsDaytime {
		m.points["Weather.is_daytime"].SetPresentValue(1)
	} else {
		m.points["Weather.is_daytime"].SetPresentValue(0)
	}

	return c
}

// isDaytime reports whether simTime falls between sunrise and sunset at
// (lat, lon), per solar.CalculateSunriseSunset. A polar day/night result
// (-1, -1) reads as daytime: BASim's configurable latitudes are temperate,
// so this only matters as a safe default at the extremes.
func isDaytime(simTime time.Time, dayOfYear int, lat, lon float64) bool {
	sunrise, sunset, err := solar.CalculateSunriseSunset(dayOfYear, lat, lon)
	if err != nil || sunrise < 0 || sunset < 0 {
		return true
	}
	nowMinutes := simTime.Hour()*60 + simTime.Minute()
	if sunrise <= sunset {
		return nowMinutes >= sunrise && nowMinutes < sunset
	}
	// Sunset past midnight UTC relative to sunrise (high-longitude offset).
	return nowMinutes >= sunrise || nowMinutes < sunset
}

// annualSeasonal returns the seasonal baseline outside-air temperature in
// degF for the given latitude and day of year, peaking in mid-summer and
// troughing in mid-winter, scaled by how far lat sits from the equator.
func annualSeasonal(lat float64, dayOfYear int) float64 {
	// Phase so the minimum lands near day 21 (Jan 21) in the northern
	// hemisphere; southern-hemisphere latitudes get a 6-month shift.
	phase := (float64(dayOfYear) - 21) / 365.0 * 2 * math.Pi
	amplitude := 35.0 * math.Min(1.0, math.Abs(lat)/45.0)
	mean := 60.0 - math.Abs(lat)*0.5
	sign := 1.0
	if lat < 0 {
		sign = -1.0
	}
	return mean - sign*amplitude*math.Cos(phase)
}

// dailyDiurnal returns the diurnal offset in degF for the hour of day
// (0..24), trough near 5am and peak near 3pm.
func dailyDiurnal(hour float64) float64 {
	return -8.0 * math.Cos(2*math.Pi*(hour-15.0)/24.0)
}

func baselineHumidity(hour float64) float64 {
	// Humidity runs inverse to temperature through the day: higher overnight.
	return 55.0 + 15.0*math.Cos(2*math.Pi*(hour-15.0)/24.0)
}
