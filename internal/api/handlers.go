// Package api exposes the operational HTTP surface: triggering syncs,
// reading run history, and discovering mappable source fields.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/worker"
)

// Enqueuer pushes sync jobs onto the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job worker.Job) error
}

// RunLister reads recent run history.
type RunLister interface {
	List(ctx context.Context, ct domain.ContentType, limit int) ([]domain.RunReport, error)
}

// FieldDiscoverer lists the source fields the ChMS exposes.
type FieldDiscoverer interface {
	DiscoverFields(ctx context.Context, ct domain.ContentType) ([]string, error)
}

// Pinger reports backend liveness for the health endpoint.
type Pinger func(ctx context.Context) error

// Handlers holds the API's collaborators.
type Handlers struct {
	queue        Enqueuer
	runs         RunLister
	chms         FieldDiscoverer
	contentTypes []domain.ContentType
	pingDB       Pinger
	pingRedis    Pinger
}

// NewHandlers wires the handler set.
func NewHandlers(queue Enqueuer, runs RunLister, chms FieldDiscoverer, contentTypes []domain.ContentType) *Handlers {
	return &Handlers{
		queue:        queue,
		runs:         runs,
		chms:         chms,
		contentTypes: contentTypes,
	}
}

// SetPingers registers backend liveness probes for the health check.
func (h *Handlers) SetPingers(db, redis Pinger) {
	h.pingDB = db
	h.pingRedis = redis
}

// HealthCheck reports service and backend status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.pingDB != nil {
		if err := h.pingDB(r.Context()); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	if h.pingRedis != nil {
		if err := h.pingRedis(r.Context()); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	writeJSON(w, code, status)
}

// PullAll enqueues a sync job for every configured content type.
func (h *Handlers) PullAll(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	jobs := make([]worker.Job, 0, len(h.contentTypes))
	for _, ct := range h.contentTypes {
		job := worker.NewJob(ct, force)
		if err := h.queue.Enqueue(r.Context(), job); err != nil {
			writeError(w, http.StatusInternalServerError, "enqueue failed: "+err.Error())
			return
		}
		jobs = append(jobs, job)
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"jobs": jobs})
}

// Pull enqueues a sync job for one content type. force=true requests a
// full resync that reapplies every item regardless of the snapshot.
func (h *Handlers) Pull(w http.ResponseWriter, r *http.Request) {
	ct, ok := h.contentType(w, r)
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"

	job := worker.NewJob(ct, force)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job": job})
}

// ListRuns returns recent runs for a content type, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ct, ok := h.contentType(w, r)
	if !ok {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), ct, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.RunReport{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// DiscoverFields lists the source field names available for mapping.
func (h *Handlers) DiscoverFields(w http.ResponseWriter, r *http.Request) {
	ct, ok := h.contentType(w, r)
	if !ok {
		return
	}

	fields, err := h.chms.DiscoverFields(r.Context(), ct)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if fields == nil {
		fields = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}

func (h *Handlers) contentType(w http.ResponseWriter, r *http.Request) (domain.ContentType, bool) {
	ct := domain.ContentType(chi.URLParam(r, "contentType"))
	if !ct.Valid() {
		writeError(w, http.StatusNotFound, "unknown content type "+string(ct))
		return "", false
	}
	for _, configured := range h.contentTypes {
		if configured == ct {
			return ct, true
		}
	}
	writeError(w, http.StatusNotFound, "content type not configured: "+string(ct))
	return "", false
}
