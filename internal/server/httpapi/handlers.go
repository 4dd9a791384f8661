// Package httpapi exposes the equipment-record operations over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"equiptrack/internal/common"
	"equiptrack/internal/logging"
	"equiptrack/internal/server/models"
	"equiptrack/internal/server/services"
)

type Handler struct {
	records   *services.RecordService
	reconcile *services.ReconcileService
	stats     *services.StatsService
	uploads   http.Handler
	logger    logging.Logger
}

func NewHandler(records *services.RecordService, reconcile *services.ReconcileService,
	stats *services.StatsService, uploadsRoot string, logger logging.Logger) *Handler {
	return &Handler{
		records:   records,
		reconcile: reconcile,
		stats:     stats,
		uploads:   uploadsHandler(uploadsRoot),
		logger:    logger.With("module", "httpapi"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbReady, storageReady := h.records.Health(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"alive":        true,
		"dbReady":      dbReady,
		"storageReady": storageReady,
	})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.RecordFilter{
		State:        q.Get("state"),
		Responsible:  q.Get("responsible"),
		EquipoID:     q.Get("equipoId"),
		SerialNumber: q.Get("serialNumber"),
		Reviewer:     q.Get("reviewer"),
	}

	recs, err := h.records.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var in services.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorBody(w, http.StatusBadRequest, codeValidationError, "Malformed JSON body", nil)
		return
	}

	rec, err := h.records.Create(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           rec.ID,
		"equipoId":     rec.EquipoID,
		"serialNumber": rec.SerialNumber,
		"imagesSaved":  len(rec.Images),
	})
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var in services.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorBody(w, http.StatusBadRequest, codeValidationError, "Malformed JSON body", nil)
		return
	}

	rec, err := h.records.Update(r.Context(), id, &in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          rec.ID,
		"imagesSaved": len(rec.Images),
	})
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := h.records.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stats.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) ReconcileImages(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconcile.Repair(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ImageStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcile.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// recordID parses the {id} route parameter; a non-numeric id is treated as
// a record that cannot exist.
func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, common.ErrorNotFound)
		return 0, false
	}
	return id, true
}
