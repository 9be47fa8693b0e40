package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

// hotSpotThresholdF and coldSpotThresholdF flag zones running uncomfortably
// warm or cool, for the dashboard's at-a-glance status view. Fixed rather
// than configurable: these describe occupant comfort, not equipment
// tuning, so they don't belong alongside the physics multipliers.
const (
	hotSpotThresholdF  = 76.0
	coldSpotThresholdF = 68.0
)

func (c *Controller) writeJSON(w http.ResponseWriter, r *http.Request, data any) {
	if err := c.formatter.WriteResponse(w, r, data, nil); err != nil {
		log.Errorf("httpapi: failed writing response: %v", err)
	}
}

func (c *Controller) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]any{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().Unix(),
	}
	if err := c.formatter.WriteResponseStatus(w, r, status, body, nil); err != nil {
		log.Errorf("httpapi: failed writing error response: %v", err)
	}
}

// handleHealth is a liveness probe: no auth, no registry access, just proof
// the process is accepting connections.
func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, r, map[string]any{"status": "ok"})
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	overrideCount := 0
	for _, slots := range c.registry.AllOverrides() {
		overrideCount += len(slots)
	}

	hot, cold := 0, 0
	for _, z := range c.campus.AllZones {
		t := z.RoomTemp()
		switch {
		case t >= hotSpotThresholdF:
			hot++
		case t <= coldSpotThresholdF:
			cold++
		}
	}

	c.writeJSON(w, r, map[string]any{
		"simulated_time":    c.driver.Clock.Now().Format(time.RFC3339),
		"simulation_speed":  c.driver.Clock.Speed(),
		"campus_size":       c.cfg.CampusSize,
		"scenario":          c.weather.Scenario(),
		"unit_system":       c.displayUnits(),
		"registered_points": humanize.Comma(int64(c.registry.Len())),
		"active_overrides":  overrideCount,
		"hot_zones":         hot,
		"cold_zones":        cold,
	})
}

func (c *Controller) handlePlant(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, r, c.displaySnapshot("CentralPlant."))
}

func (c *Controller) handleElectrical(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, r, c.displaySnapshot("Electrical."))
}

func (c *Controller) handleBuildings(w http.ResponseWriter, r *http.Request) {
	type buildingSummary struct {
		Name      string `json:"name"`
		AHUCount  int    `json:"ahu_count"`
		ZoneCount int    `json:"zone_count"`
	}
	out := make([]buildingSummary, 0, len(c.campus.Buildings))
	for _, b := range c.campus.Buildings {
		zones := 0
		for _, a := range b.AHUs {
			zones += len(a.Zones)
		}
		out = append(out, buildingSummary{Name: b.Name, AHUCount: len(b.AHUs), ZoneCount: zones})
	}
	c.writeJSON(w, r, out)
}

func (c *Controller) handleBuilding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	prefix := fmt.Sprintf("Building_%s.", id)
	snap := c.registry.Snapshot(prefix)
	if len(snap) == 0 {
		c.writeError(w, r, http.StatusNotFound, "no such building")
		return
	}
	c.writeJSON(w, r, convertForDisplay(snap, c.displayUnits()))
}

func (c *Controller) handleDataCenter(w http.ResponseWriter, r *http.Request) {
	if c.campus.DataCenter == nil {
		c.writeError(w, r, http.StatusNotFound, "this campus has no data center module")
		return
	}
	c.writeJSON(w, r, c.displaySnapshot("DataCenter."))
}

func (c *Controller) handleWastewater(w http.ResponseWriter, r *http.Request) {
	if c.campus.Wastewater == nil {
		c.writeError(w, r, http.StatusNotFound, "this campus has no wastewater module")
		return
	}
	c.writeJSON(w, r, c.displaySnapshot("Wastewater."))
}

func (c *Controller) handleOverrides(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, r, c.registry.AllOverrides())
}

type overrideSetRequest struct {
	PointPath       string  `json:"point_path"`
	Value           float64 `json:"value"`
	Priority        int     `json:"priority"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (c *Controller) handleOverrideSet(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}
	var req overrideSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	duration := time.Duration(req.DurationSeconds * float64(time.Second))
	now := c.driver.Clock.Now()
	if err := c.registry.Override(req.PointPath, req.Value, req.Priority, "api", now, duration); err != nil {
		c.writeError(w, r, statusForRegistryError(err), err.Error())
		return
	}
	c.writeJSON(w, r, map[string]any{"ok": true})
}

type overrideReleaseRequest struct {
	PointPath string `json:"point_path"`
	Priority  int    `json:"priority"`
}

func (c *Controller) handleOverrideRelease(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}
	var req overrideReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := c.registry.Release(req.PointPath, req.Priority); err != nil {
		c.writeError(w, r, statusForRegistryError(err), err.Error())
		return
	}
	c.writeJSON(w, r, map[string]any{"ok": true})
}

func (c *Controller) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, r, c.driver.Physics())
}

func (c *Controller) handleSetParameters(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}
	params := c.driver.Physics()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	c.driver.SetPhysics(params)
	c.writeJSON(w, r, params)
}

func (c *Controller) handleSetScenario(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}
	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if !weather.ValidScenario(req.Scenario) {
		c.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown scenario %q", req.Scenario))
		return
	}
	c.weather.SetScenario(weather.Scenario(req.Scenario))
	c.writeJSON(w, r, map[string]any{"scenario": req.Scenario})
}

func (c *Controller) handleSetUnitSystem(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}
	var req struct {
		UnitSystem string `json:"unit_system"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	switch config.UnitSystem(req.UnitSystem) {
	case config.UnitsUS, config.UnitsMetric:
	default:
		c.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unit_system must be %q or %q", config.UnitsUS, config.UnitsMetric))
		return
	}
	c.unitMu.Lock()
	c.unitSystem = config.UnitSystem(req.UnitSystem)
	c.unitMu.Unlock()
	c.writeJSON(w, r, map[string]any{"unit_system": req.UnitSystem})
}

func (c *Controller) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Username != c.cfg.AdminUser || req.Password != c.cfg.AdminPassword {
		c.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := c.sessions.create(RoleAdmin)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	c.writeJSON(w, r, map[string]any{"authenticated": true, "role": RoleAdmin, "token": token})
}

func (c *Controller) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		c.sessions.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	c.writeJSON(w, r, map[string]any{"authenticated": false})
}

// displaySnapshot returns a registry snapshot under prefix, converted for
// the currently selected display unit system.
func (c *Controller) displaySnapshot(prefix string) map[string]registry.Snapshot {
	return convertForDisplay(c.registry.Snapshot(prefix), c.displayUnits())
}

// convertForDisplay rewrites every degF-valued point to degC when units is
// Metric. All internal computation stays in US customary units regardless;
// this only affects what the API reports.
func convertForDisplay(snap map[string]registry.Snapshot, units config.UnitSystem) map[string]registry.Snapshot {
	if units != config.UnitsMetric {
		return snap
	}
	out := make(map[string]registry.Snapshot, len(snap))
	for path, s := range snap {
		if s.Units == "degF" {
			s.Value = (s.Value - 32) * 5 / 9
			s.Units = "degC"
		}
		out[path] = s
	}
	return out
}

func statusForRegistryError(err error) int {
	kind, ok := registry.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case registry.ErrUnknownPoint:
		return http.StatusNotFound
	case registry.ErrNotWritable, registry.ErrBadPriority, registry.ErrBadType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
