// Package demoapi serves the GrillGauge REST surface over the demo hub, so
// the dashboard can be run end to end without the real backend.
package demoapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/daviddao/grillgauge_viewer/internal/demo"
)

// Prefix is the path prefix every endpoint is mounted under.
const Prefix = "/api/v1"

// Router wires the handlers onto a mux.Router.
type Router struct {
	router    *mux.Router
	auth      *TokenMiddleware
	resources *Resources
}

// NewRouter builds the router. An empty token disables authentication.
func NewRouter(sim *demo.Simulator, users *Directory, token string) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      NewTokenMiddleware(token),
		resources: NewResources(sim, users),
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	api := r.router.PathPrefix(Prefix).Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.Health).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// UI
	protected.HandleFunc("/ui/hubs", r.resources.Hubs.ListHubs).Methods(http.MethodGet)
	protected.HandleFunc("/ui/probe-colours", r.resources.Hubs.ProbeColours).Methods(http.MethodGet)

	// Probes
	probes := protected.PathPrefix("/probe").Subrouter()
	probes.HandleFunc("", r.resources.Probes.UpdateProbe).Methods(http.MethodPut)
	probes.HandleFunc("/readings/between", r.resources.Probes.ReadingsBetween).Methods(http.MethodGet)
	probes.HandleFunc("/targetTemp/{id}", r.resources.Probes.UpdateTargetTemp).Methods(http.MethodPut)
	probes.HandleFunc("/name/{id}", r.resources.Probes.UpdateName).Methods(http.MethodPut)
	probes.HandleFunc("/{id}", r.resources.Probes.DeleteProbe).Methods(http.MethodDelete)

	// Hubs
	hubs := protected.PathPrefix("/hub").Subrouter()
	hubs.HandleFunc("", r.resources.Hubs.UpdateHub).Methods(http.MethodPut)
	hubs.HandleFunc("/{id}", r.resources.Hubs.DeleteHub).Methods(http.MethodDelete)

	// Users
	protected.HandleFunc("/user", r.resources.Users.LookupUser).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
