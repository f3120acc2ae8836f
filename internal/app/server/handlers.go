package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/neighborly/questboard/internal/dismissal"
	"github.com/neighborly/questboard/internal/inference"
	"github.com/neighborly/questboard/internal/intake"
	"github.com/neighborly/questboard/internal/platform/geo"
	"github.com/neighborly/questboard/internal/quest"
	"github.com/neighborly/questboard/internal/quest/storage"
	"github.com/neighborly/questboard/internal/visibility"
)

type handlers struct {
	store        storage.QuestStore
	orchestrator *intake.Orchestrator
	dismissals   dismissal.Store
}

func newHandlers(store storage.QuestStore, orchestrator *intake.Orchestrator, dismissals dismissal.Store) *handlers {
	return &handlers{
		store:        store,
		orchestrator: orchestrator,
		dismissals:   dismissals,
	}
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /api/quests", h.listQuests)
	mux.HandleFunc("POST /api/quests", h.submitQuest)
	mux.HandleFunc("POST /api/quests/{id}/complete", h.completeQuest)
	mux.HandleFunc("POST /api/quests/{id}/dismiss", h.dismissQuest)
	return mux
}

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type questPayload struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Requester           string          `json:"requester"`
	Location            locationPayload `json:"location"`
	TimeEstimateMinutes int             `json:"timeEstimateMinutes"`
	SizeEstimate        string          `json:"sizeEstimate"`
	Completed           bool            `json:"completed"`
	Answer              string          `json:"answer,omitempty"`
	CreatedAt           int64           `json:"createdAt"`
	DistanceKm          *float64        `json:"distanceKm,omitempty"`
}

func recordPayload(record storage.QuestRecord) questPayload {
	return questPayload{
		ID:                  record.ID,
		Title:               record.Title,
		Description:         record.Description,
		Requester:           record.Requester,
		Location:            locationPayload{Lat: record.Lat, Lng: record.Lng},
		TimeEstimateMinutes: record.TimeEstimateMinutes,
		SizeEstimate:        record.SizeEstimate,
		Completed:           record.Completed,
		Answer:              record.Answer,
		CreatedAt:           record.CreatedAt.UnixMilli(),
	}
}

func questRecord(q quest.Quest) storage.QuestRecord {
	return storage.QuestRecord{
		ID:                  q.ID,
		Title:               q.Title,
		Description:         q.Description,
		Requester:           q.Requester,
		Lat:                 q.Location.Lat,
		Lng:                 q.Location.Lng,
		TimeEstimateMinutes: q.TimeEstimateMinutes,
		SizeEstimate:        string(q.SizeEstimate),
		Completed:           q.Completed,
		Answer:              q.Answer,
		CreatedAt:           q.CreatedAt,
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listQuests serves GET /api/quests?tab=&viewer=&lat=&lng=.
//
// The tab defaults to open. A viewer identifier hides quests that viewer
// has dismissed. When both lat and lng parse, each quest is annotated
// with its approximate distance from the viewer.
func (h *handlers) listQuests(w http.ResponseWriter, r *http.Request) {
	tab := visibility.TabOpen
	switch r.URL.Query().Get("tab") {
	case "", string(visibility.TabOpen):
	case string(visibility.TabCompleted):
		tab = visibility.TabCompleted
	default:
		writeError(w, http.StatusBadRequest, "unknown tab")
		return
	}

	records, err := h.store.ListQuests(r.Context())
	if err != nil {
		log.Printf("list quests: %v", err)
		writeError(w, http.StatusInternalServerError, "list quests")
		return
	}

	var dismissed dismissal.Set
	if viewerID := r.URL.Query().Get("viewer"); viewerID != "" {
		dismissed, err = dismissal.Load(r.Context(), h.dismissals, viewerID)
		if err != nil {
			log.Printf("load dismissals: %v", err)
			writeError(w, http.StatusInternalServerError, "load dismissals")
			return
		}
	}

	viewer := parseViewerCoordinate(r)
	annotated := visibility.Annotate(visibility.Visible(records, dismissed, tab), viewer)

	payload := make([]questPayload, 0, len(annotated))
	for _, q := range annotated {
		p := recordPayload(q.QuestRecord)
		p.DistanceKm = q.DistanceKm
		payload = append(payload, p)
	}
	writeJSON(w, http.StatusOK, payload)
}

// parseViewerCoordinate returns the viewer coordinate from lat/lng query
// params, or nil when they are absent or invalid. A bad coordinate never
// fails the listing; it only disables distance annotation.
func parseViewerCoordinate(r *http.Request) *geo.Coordinate {
	latRaw := r.URL.Query().Get("lat")
	lngRaw := r.URL.Query().Get("lng")
	if latRaw == "" || lngRaw == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil
	}
	coord := geo.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return nil
	}
	return &coord
}

type submitRequest struct {
	Description string           `json:"description"`
	Requester   string           `json:"requester"`
	Location    *locationPayload `json:"location"`
}

func (h *handlers) submitQuest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	submission := intake.Submission{
		Description: req.Description,
		Requester:   req.Requester,
	}
	if req.Location != nil {
		submission.Location = &geo.Coordinate{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	result, err := h.orchestrator.Submit(r.Context(), submission)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, intake.ErrBlocked):
			writeError(w, http.StatusUnprocessableEntity, "submission rejected: please keep requests respectful")
		case errors.Is(err, inference.ErrInference):
			writeError(w, http.StatusBadGateway, "quest metadata inference failed, try again")
		default:
			log.Printf("submit quest: %v", err)
			writeError(w, http.StatusInternalServerError, "create quest")
		}
		return
	}

	writeJSON(w, http.StatusCreated, recordPayload(questRecord(result.Quest)))
}

type completeRequest struct {
	Answer string `json:"answer"`
}

func (h *handlers) completeQuest(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id := r.PathValue("id")
	if err := h.store.CompleteWithAnswer(r.Context(), id, req.Answer); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		log.Printf("complete quest %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "complete quest")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dismissRequest struct {
	Viewer string `json:"viewer"`
	Delete bool   `json:"delete"`
}

// dismissQuest hides a quest for one viewer. With delete=true the quest
// is also removed for everyone, a moderation affordance for the
// requester's own postings.
func (h *handlers) dismissQuest(w http.ResponseWriter, r *http.Request) {
	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Viewer == "" {
		writeError(w, http.StatusBadRequest, "viewer is required")
		return
	}

	id := r.PathValue("id")
	if err := h.dismissals.Add(r.Context(), req.Viewer, id); err != nil {
		log.Printf("dismiss quest %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "record dismissal")
		return
	}

	if req.Delete {
		if err := h.store.DeleteQuest(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "quest not found")
				return
			}
			log.Printf("delete quest %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "delete quest")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
