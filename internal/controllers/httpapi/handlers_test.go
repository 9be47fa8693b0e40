package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/clock"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/tick"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	reg := registry.New()
	c, err := campus.Assemble(reg, config.SizeSmall)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	reg.PublishSnapshot()

	wx := weather.New(reg, 40.0, weather.Normal, 1)
	clk := clock.New(time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC), 1.0)
	d := tick.New(clk, reg, wx, c, config.DefaultPhysicsParams())

	cfg := &config.Config{
		AdminUser:     "admin",
		AdminPassword: "secret",
		HTTPPort:      0,
		CampusSize:    config.SizeSmall,
		UnitSystem:    config.UnitsUS,
	}

	var wg sync.WaitGroup
	return NewController(context.Background(), &wg, cfg, reg, c, wx, d)
}

func doRequest(ctrl *Controller, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointRequiresNoAuth(t *testing.T) {
	ctrl := newTestController(t)
	rec := doRequest(ctrl, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusEndpointReturnsRegisteredPointCount(t *testing.T) {
	ctrl := newTestController(t)
	rec := doRequest(ctrl, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, _ := body["registered_points"].(string)
	if n, err := strconv.Atoi(strings.ReplaceAll(s, ",", "")); err != nil || n <= 0 {
		t.Errorf("registered_points = %v, want > 0", body["registered_points"])
	}
}

func TestOverrideSetRequiresAdminSession(t *testing.T) {
	ctrl := newTestController(t)
	rec := doRequest(ctrl, http.MethodPost, "/api/override/set", overrideSetRequest{
		PointPath: "CentralPlant.Chiller_1.chw_supply_temp_setpoint",
		Value:     42,
		Priority:  8,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginThenOverrideSetSucceeds(t *testing.T) {
	ctrl := newTestController(t)

	loginRec := doRequest(ctrl, http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "secret",
	})
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", loginRec.Code)
	}
	var loginResp map[string]any
	if err := json.Unmarshal(loginRec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatal("expected a session token in the login response")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/override/set", bytes.NewReader(mustJSON(t, overrideSetRequest{
		PointPath: "CentralPlant.Chiller_1.status",
		Value:     1,
		Priority:  8,
	})))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	slots, err := ctrl.registry.Overrides("CentralPlant.Chiller_1.status")
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if len(slots) != 1 || slots[0].Priority != 8 || slots[0].Value != 1 {
		t.Errorf("expected one priority-8 override with value 1, got %+v", slots)
	}
}

func TestOverrideReleaseUnknownPointReturnsNotFound(t *testing.T) {
	ctrl := newTestController(t)
	token := ctrl.sessions.create(RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/override/release", bytes.NewReader(mustJSON(t, overrideReleaseRequest{
		PointPath: "NoSuchBuilding.NoSuchPoint",
	})))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
}

func TestUnitSystemConversionAffectsTemperatureDisplay(t *testing.T) {
	ctrl := newTestController(t)
	token := ctrl.sessions.create(RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/unit-system", bytes.NewReader(mustJSON(t, map[string]string{
		"unit_system": "Metric",
	})))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set unit-system status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	plantRec := doRequest(ctrl, http.MethodGet, "/api/plant", nil)
	var snap map[string]registry.Snapshot
	if err := json.Unmarshal(plantRec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode plant snapshot: %v", err)
	}
	for _, s := range snap {
		if s.Units == "degF" {
			t.Errorf("found a degF point after switching to Metric: %s", s.Path)
		}
	}
}

func TestAdminScenarioRejectsUnknownName(t *testing.T) {
	ctrl := newTestController(t)
	token := ctrl.sessions.create(RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/scenario", bytes.NewReader(mustJSON(t, map[string]string{
		"scenario": "Meteor Strike",
	})))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
