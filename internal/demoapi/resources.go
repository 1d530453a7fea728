package demoapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/daviddao/grillgauge_viewer/internal/demo"
	"github.com/daviddao/grillgauge_viewer/internal/errors"
	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Hubs   *HubHandlers
	Probes *ProbeHandlers
	Users  *UserHandlers
}

// NewResources creates a new Resources instance
func NewResources(sim *demo.Simulator, users *Directory) *Resources {
	return &Resources{
		Hubs:   &HubHandlers{sim: sim, users: users},
		Probes: &ProbeHandlers{sim: sim},
		Users:  &UserHandlers{users: users},
	}
}

// Health reports liveness and the server version.
func (r *Resources) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": nuts.GetVersion()})
}

// --- Hubs ---

// HubHandlers encapsulates the hub-related HTTP handlers
type HubHandlers struct {
	sim   *demo.Simulator
	users *Directory
}

// ListHubs returns the hubs visible to ?email=. Every user sees the shared
// demo hub until it is deleted.
func (h *HubHandlers) ListHubs(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		respondWithError(w, errors.NewValidationError("email is required", nil).WithRequestID(requestID))
		return
	}
	h.users.Ensure(email)

	hubs := []model.Hub{}
	if hub, ok := h.sim.Hub(); ok {
		hubs = append(hubs, hub)
	}
	respondWithJSON(w, http.StatusOK, hubs)
}

// ProbeColours returns the default probe colour palette.
func (h *HubHandlers) ProbeColours(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, demo.DefaultColours)
}

// UpdateHub applies a hub's editable fields.
func (h *HubHandlers) UpdateHub(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var hub model.Hub
	if err := json.NewDecoder(r.Body).Decode(&hub); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if err := h.sim.UpdateHub(hub); err != nil {
		respondWithError(w, mapSimError("hub", err).WithRequestID(requestID))
		return
	}
	updated, _ := h.sim.Hub()
	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteHub removes a hub.
func (h *HubHandlers) DeleteHub(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, err.WithRequestID(requestID))
		return
	}
	if err := h.sim.DeleteHub(id); err != nil {
		respondWithError(w, mapSimError("hub", err).WithRequestID(requestID))
		return
	}
	nuts.L.Infof("[HubHandler] Hub %d deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Probes ---

// ProbeHandlers encapsulates the probe-related HTTP handlers
type ProbeHandlers struct {
	sim *demo.Simulator
}

type readingDTO struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
}

// ReadingsBetween returns readings for each of ?probeIds= within
// [?start, ?end], keyed by probe ID.
func (h *ProbeHandlers) ReadingsBetween(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	q := r.URL.Query()

	ids, err := parseIDs(q.Get("probeIds"))
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid probeIds", err).WithRequestID(requestID))
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid start", err).WithRequestID(requestID))
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid end", err).WithRequestID(requestID))
		return
	}

	out := make(map[int64][]readingDTO, len(ids))
	for _, id := range ids {
		rs, err := h.sim.ReadingsBetween(r.Context(), id, start, end)
		if err != nil {
			respondWithError(w, errors.NewStorageError("failed to load readings", err).WithRequestID(requestID))
			return
		}
		dtos := make([]readingDTO, len(rs))
		for i, rd := range rs {
			dtos[i] = readingDTO{Timestamp: rd.Timestamp.UTC(), Temperature: rd.Temperature}
		}
		out[id] = dtos
	}
	respondWithJSON(w, http.StatusOK, out)
}

// UpdateTargetTemp sets ?targetTemp= on the probe and echoes it back.
func (h *ProbeHandlers) UpdateTargetTemp(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	id, perr := pathID(r)
	if perr != nil {
		respondWithError(w, perr.WithRequestID(requestID))
		return
	}
	target, err := strconv.ParseFloat(r.URL.Query().Get("targetTemp"), 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid targetTemp", err).WithRequestID(requestID))
		return
	}
	if err := h.sim.SetTargetTemp(id, target); err != nil {
		respondWithError(w, mapSimError("probe", err).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, target)
}

// UpdateName sets ?name= on the probe.
func (h *ProbeHandlers) UpdateName(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	id, perr := pathID(r)
	if perr != nil {
		respondWithError(w, perr.WithRequestID(requestID))
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondWithError(w, errors.NewValidationError("name is required", nil).WithRequestID(requestID))
		return
	}
	if err := h.sim.SetName(id, name); err != nil {
		respondWithError(w, mapSimError("probe", err).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"id": id, "name": name})
}

// UpdateProbe replaces the probe's editable fields from the body.
func (h *ProbeHandlers) UpdateProbe(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var p model.Probe
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	updated, err := h.sim.UpdateProbe(p)
	if err != nil {
		respondWithError(w, mapSimError("probe", err).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteProbe removes a probe and its history.
func (h *ProbeHandlers) DeleteProbe(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	id, perr := pathID(r)
	if perr != nil {
		respondWithError(w, perr.WithRequestID(requestID))
		return
	}
	if err := h.sim.DeleteProbe(r.Context(), id); err != nil {
		respondWithError(w, mapSimError("probe", err).WithRequestID(requestID))
		return
	}
	nuts.L.Infof("[ProbeHandler] Probe %d deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Users ---

// UserHandlers encapsulates the user lookup handler
type UserHandlers struct {
	users *Directory
}

// LookupUser returns the user for ?email= or 404.
func (h *UserHandlers) LookupUser(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	res := h.users.Lookup(r.URL.Query().Get("email"))
	if !res.Found {
		respondWithError(w, errors.NewNotFoundError("user not found", nil).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, res.User)
}

// --- Helpers ---

func pathID(r *http.Request) (int64, *errors.APIError) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("invalid id "+strconv.Quote(raw), err)
	}
	return id, nil
}

func parseIDs(csv string) ([]int64, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, stderrors.New("at least one probe id is required")
	}
	parts := strings.Split(csv, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func mapSimError(kind string, err error) *errors.APIError {
	if stderrors.Is(err, demo.ErrNotFound) {
		return errors.NewNotFoundError(kind+" not found", err)
	}
	return errors.NewInternalError("failed to update "+kind, err)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
