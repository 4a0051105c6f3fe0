package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sentinel/core"
	"sentinel/ml"

	"github.com/gorilla/mux"
)

// maxRequestBody caps inbound JSON payloads at 1MB.
const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// respondError maps pipeline errors to HTTP status codes.
func (a *API) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		a.respondJSON(w, errorResponse{Error: err.Error()}, http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		a.respondJSON(w, errorResponse{Error: err.Error()}, http.StatusNotFound)
	default:
		a.logger.Errorw("Request failed", "error", err)
		a.respondJSON(w, errorResponse{Error: "internal server error"}, http.StatusInternalServerError)
	}
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.respondJSON(w, errorResponse{Error: "invalid JSON body: " + err.Error()}, http.StatusBadRequest)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.respondJSON(w, errorResponse{Error: "validation failed: " + err.Error()}, http.StatusBadRequest)
		return false
	}
	return true
}

// queryInt parses an integer query parameter, returning fallback when
// absent or out of range.
func queryInt(r *http.Request, name string, fallback, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 || (max > 0 && parsed > max) {
		return fallback
	}
	return parsed
}

type phishingAnalyzeRequest struct {
	Content string `json:"content" validate:"required"`
}

func (a *API) analyzePhishing(w http.ResponseWriter, r *http.Request) {
	var req phishingAnalyzeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := a.submitter.SubmitPhishing(r.Context(), req.Content)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, outcome, http.StatusOK)
}

type deepfakeAnalyzeRequest struct {
	FileName      string `json:"file_name" validate:"required"`
	FileType      string `json:"file_type" validate:"required"`
	FileSizeBytes int64  `json:"file_size_bytes" validate:"gte=0"`
}

func (a *API) analyzeDeepfake(w http.ResponseWriter, r *http.Request) {
	var req deepfakeAnalyzeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	meta := ml.FileMeta{
		FileName:      req.FileName,
		FileType:      req.FileType,
		FileSizeBytes: req.FileSizeBytes,
	}
	result, err := a.detector.Analyze(r.Context(), meta)
	if err != nil {
		a.respondError(w, err)
		return
	}

	outcome, err := a.submitter.SubmitDeepfake(r.Context(), meta, result)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, outcome, http.StatusOK)
}

type honeypotAttackRequest struct {
	Service    string `json:"service" validate:"required,oneof=ssh http ftp"`
	SourceIP   string `json:"source_ip" validate:"required,ip"`
	AttackType string `json:"attack_type" validate:"required"`
	Severity   string `json:"severity" validate:"required,oneof=low medium high critical"`
	Port       int    `json:"port" validate:"gte=0,lte=65535"`
	Payload    string `json:"payload"`
}

func (a *API) submitAttack(w http.ResponseWriter, r *http.Request) {
	var req honeypotAttackRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := a.submitter.SubmitAttack(r.Context(), &core.HoneypotAttack{
		Service:    core.HoneypotService(req.Service),
		SourceIP:   req.SourceIP,
		AttackType: req.AttackType,
		Severity:   req.Severity,
		Port:       req.Port,
		Payload:    req.Payload,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, outcome, http.StatusCreated)
}

func (a *API) getAttackLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100, 1000)
	offset := queryInt(r, "offset", 0, 0)

	var service core.HoneypotService
	if s := r.URL.Query().Get("service"); s != "" {
		service = core.HoneypotService(s)
		if !service.IsValid() {
			a.respondJSON(w, errorResponse{Error: "unknown service: " + s}, http.StatusBadRequest)
			return
		}
	}

	attacks := a.store.ListAttacks(limit, offset, service)
	a.respondJSON(w, attacks, http.StatusOK)
}

func (a *API) getHoneypotStats(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, a.store.HoneypotStats(), http.StatusOK)
}

func (a *API) getAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100, 1000)
	offset := queryInt(r, "offset", 0, 0)
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	alerts := a.store.ListAlerts(limit, offset, unreadOnly)
	a.respondJSON(w, alerts, http.StatusOK)
}

func (a *API) getAlertCounts(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, a.store.AlertCounts(), http.StatusOK)
}

func (a *API) markAlertRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		a.respondJSON(w, errorResponse{Error: "invalid alert id"}, http.StatusBadRequest)
		return
	}

	alert, err := a.store.MarkAlertRead(id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, alert, http.StatusOK)
}

func (a *API) markAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	updated := a.store.MarkAllAlertsRead()
	a.respondJSON(w, map[string]int{"updated": updated}, http.StatusOK)
}

func (a *API) getThreats(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100, 1000)
	offset := queryInt(r, "offset", 0, 0)

	threats := a.store.ListThreats(limit, offset)
	a.respondJSON(w, threats, http.StatusOK)
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats()
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, stats, http.StatusOK)
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
		"subscribers":    a.hub.SubscriberCount(),
	}, http.StatusOK)
}
