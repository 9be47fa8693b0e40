// Package config loads BASim's runtime configuration from environment
// variables: campus sizing, simulation speed, location, units, network
// ports and admin credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// CampusSize selects how many buildings/points the assembler instantiates.
type CampusSize string

const (
	SizeSmall  CampusSize = "Small"
	SizeMedium CampusSize = "Medium"
	SizeLarge  CampusSize = "Large"
)

// UnitSystem affects display units only; all internal computation is in US
// customary units.
type UnitSystem string

const (
	UnitsUS     UnitSystem = "US"
	UnitsMetric UnitSystem = "Metric"
)

// PhysicsParams are positive multipliers applied on top of each equipment
// model's default physical constants, letting an operator tune how fast or
// dramatically the simulation responds without touching code.
type PhysicsParams struct {
	ThermalMass          float64
	EnvelopeUA           float64
	InternalGains        float64
	SolarGain            float64
	VAVGains             float64
	EquipmentEfficiency  float64
}

// DefaultPhysicsParams returns every multiplier at its documented default
// of 1.0 (no adjustment).
func DefaultPhysicsParams() PhysicsParams {
	return PhysicsParams{
		ThermalMass:         1.0,
		EnvelopeUA:          1.0,
		InternalGains:       1.0,
		SolarGain:           1.0,
		VAVGains:            1.0,
		EquipmentEfficiency: 1.0,
	}
}

// Config is BASim's full runtime configuration, as loaded from the
// environment at startup.
type Config struct {
	CampusSize      CampusSize
	SimulationSpeed float64
	GeoLat          float64
	UnitSystem      UnitSystem
	DeviceID        string
	Physics         PhysicsParams

	HTTPPort     int
	ModbusPort   int
	BACnetPort   int
	BACnetSCPort int

	// BACnetSCTLSCertPath/BACnetSCTLSKeyPath name a certificate pair for the
	// BACnet/SC WebSocket endpoint. Left blank, the gateway serves plain
	// ws:// rather than refusing to start, matching how the teacher's REST
	// server falls back to HTTP when a website has no certificate configured.
	BACnetSCTLSCertPath string
	BACnetSCTLSKeyPath  string

	AdminUser     string
	AdminPassword string

	Debug   bool
	LogFile string
}

// Load reads Config from the process environment, applying the documented
// defaults for anything unset.
func Load() (*Config, error) {
	c := &Config{
		CampusSize:      CampusSize(getEnv("CAMPUS_SIZE", string(SizeMedium))),
		SimulationSpeed: getEnvFloat("SIMULATION_SPEED", 60.0),
		GeoLat:          getEnvFloat("GEO_LAT", 40.0),
		UnitSystem:      UnitSystem(getEnv("UNIT_SYSTEM", string(UnitsUS))),
		DeviceID:        getEnv("DEVICE_ID", "389999"),
		Physics:         DefaultPhysicsParams(),

		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		ModbusPort:   getEnvInt("MODBUS_PORT", 502),
		BACnetPort:   getEnvInt("BACNET_PORT", 47808),
		BACnetSCPort: getEnvInt("BACNET_SC_PORT", 47809),

		BACnetSCTLSCertPath: getEnv("BACNET_SC_TLS_CERT", ""),
		BACnetSCTLSKeyPath:  getEnv("BACNET_SC_TLS_KEY", ""),

		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),

		Debug:   getEnvBool("DEBUG", false),
		LogFile: getEnv("LOG_FILE", ""),
	}

	switch c.CampusSize {
	case SizeSmall, SizeMedium, SizeLarge:
	default:
		return nil, fmt.Errorf("invalid CAMPUS_SIZE %q: must be Small, Medium or Large", c.CampusSize)
	}
	switch c.UnitSystem {
	case UnitsUS, UnitsMetric:
	default:
		return nil, fmt.Errorf("invalid UNIT_SYSTEM %q: must be US or Metric", c.UnitSystem)
	}
	if c.SimulationSpeed <= 0 {
		return nil, fmt.Errorf("invalid SIMULATION_SPEED %v: must be positive", c.SimulationSpeed)
	}

	return c, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}
