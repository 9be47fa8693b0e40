// Package httpapi exposes the simulation's point registry and campus
// topology over HTTP/JSON, with an admin/viewer session model adapted from
// the teacher's bearer-token-or-cookie dual check: write endpoints require
// an authenticated admin session, read endpoints are open to anonymous
// viewers.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/metrics"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/tick"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
	"github.com/basim-project/basim/pkg/responseformat"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const sessionCookieName = "basim_session"

// Controller serves BASim's HTTP/JSON API: campus/equipment read views,
// priority-array override control, admin parameter tuning, and the
// Prometheus metrics endpoint.
type Controller struct {
	ctx context.Context
	wg  *sync.WaitGroup

	cfg      *config.Config
	registry *registry.Registry
	campus   *campus.Campus
	weather  *weather.Model
	driver   *tick.Driver

	sessions  *sessionStore
	formatter *responseformat.Formatter

	unitMu     sync.RWMutex
	unitSystem config.UnitSystem

	Server http.Server
}

// NewController builds a Controller and its router, listening on
// cfg.HTTPPort once StartController is called.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, reg *registry.Registry, c *campus.Campus, wx *weather.Model, d *tick.Driver) *Controller {
	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		cfg:        cfg,
		registry:   reg,
		campus:     c,
		weather:    wx,
		driver:     d,
		sessions:   newSessionStore(),
		formatter:  responseformat.NewFormatter(),
		unitSystem: cfg.UnitSystem,
	}

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf(":%d", cfg.HTTPPort)
	ctrl.Server.Handler = handlers.CombinedLoggingHandler(log.GetHTTPLogBuffer(), router)

	return ctrl
}

// StartController starts the HTTP server in a background goroutine and
// shuts it down when ctx is cancelled.
func (c *Controller) StartController() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log.Infof("HTTP API listening on %s", c.Server.Addr)
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP API server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.corsMiddleware)

	router.HandleFunc("/login", c.handleLogin).Methods("POST")
	router.HandleFunc("/logout", c.handleLogout).Methods("POST")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", c.handleHealth).Methods("GET")
	api.HandleFunc("/status", c.handleStatus).Methods("GET")
	api.HandleFunc("/plant", c.handlePlant).Methods("GET")
	api.HandleFunc("/electrical", c.handleElectrical).Methods("GET")
	api.HandleFunc("/buildings", c.handleBuildings).Methods("GET")
	api.HandleFunc("/building/{id}", c.handleBuilding).Methods("GET")
	api.HandleFunc("/datacenter", c.handleDataCenter).Methods("GET")
	api.HandleFunc("/wastewater", c.handleWastewater).Methods("GET")
	api.HandleFunc("/overrides", c.handleOverrides).Methods("GET")
	api.HandleFunc("/override/set", c.handleOverrideSet).Methods("POST")
	api.HandleFunc("/override/release", c.handleOverrideRelease).Methods("POST")
	api.HandleFunc("/admin/parameters", c.handleGetParameters).Methods("GET")
	api.HandleFunc("/admin/parameters", c.handleSetParameters).Methods("POST")
	api.HandleFunc("/admin/scenario", c.handleSetScenario).Methods("POST")
	api.HandleFunc("/admin/unit-system", c.handleSetUnitSystem).Methods("POST")

	return router
}

// corsMiddleware mirrors the teacher's permissive, dashboard-friendly CORS
// policy: this API has no cross-origin secrets worth protecting beyond the
// session cookie itself, which SameSite already scopes.
func (c *Controller) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// roleOf resolves the caller's role from a bearer token or session cookie,
// checked in that order, against the in-memory session store. Absent
// either, the caller is an anonymous viewer: every read endpoint is open,
// only writes require an admin session.
func (c *Controller) roleOf(r *http.Request) Role {
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		if role, ok := c.sessions.lookup(auth[7:]); ok {
			return role
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if role, ok := c.sessions.lookup(cookie.Value); ok {
			return role
		}
	}
	return RoleViewer
}

// requireAdmin reports whether r carries an admin session, writing a 401
// response and returning false if not.
func (c *Controller) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if c.roleOf(r) == RoleAdmin {
		return true
	}
	c.writeError(w, r, http.StatusUnauthorized, "admin session required")
	return false
}

func (c *Controller) displayUnits() config.UnitSystem {
	c.unitMu.RLock()
	defer c.unitMu.RUnlock()
	return c.unitSystem
}
