package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/worker"
)

type fakeQueue struct {
	jobs []worker.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job worker.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeRuns struct {
	runs []domain.RunReport
}

func (f *fakeRuns) List(_ context.Context, _ domain.ContentType, _ int) ([]domain.RunReport, error) {
	return f.runs, nil
}

type fakeDiscoverer struct {
	fields []string
	err    error
}

func (f *fakeDiscoverer) DiscoverFields(_ context.Context, _ domain.ContentType) ([]string, error) {
	return f.fields, f.err
}

func newTestRouter(queue Enqueuer, runs RunLister, chms FieldDiscoverer) http.Handler {
	h := NewHandlers(queue, runs, chms, []domain.ContentType{domain.ContentTypeEvents, domain.ContentTypeGroups})
	return SetupRoutes(h, nil)
}

func TestPull_EnqueuesJob(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, domain.ContentTypeGroups, queue.jobs[0].ContentType)
	assert.False(t, queue.jobs[0].Force)
}

func TestPull_ForceFlag(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull/events?force=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.jobs, 1)
	assert.True(t, queue.jobs[0].Force)
}

func TestPull_UnknownContentType(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull/sermons", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestPull_UnconfiguredContentType(t *testing.T) {
	// Locations is a valid content type but not configured here.
	queue := &fakeQueue{}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull/locations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPullAll_EnqueuesEveryContentType(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.jobs, 2)
}

func TestPull_EnqueueFailure(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	router := newTestRouter(queue, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/pull/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListRuns(t *testing.T) {
	report := domain.NewRunReport(domain.ContentTypeGroups)
	report.Status = domain.RunCompleted
	report.Created = 4

	router := newTestRouter(&fakeQueue{}, &fakeRuns{runs: []domain.RunReport{*report}}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []domain.RunReport `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, 4, body.Runs[0].Created)
}

func TestListRuns_BadLimit(t *testing.T) {
	router := newTestRouter(&fakeQueue{}, &fakeRuns{}, &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/groups?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoverFields(t *testing.T) {
	router := newTestRouter(&fakeQueue{}, &fakeRuns{}, &fakeDiscoverer{fields: []string{"Group_ID", "Group_Name"}})

	req := httptest.NewRequest(http.MethodGet, "/api/fields/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Group_ID", "Group_Name"}, body.Fields)
}

func TestDiscoverFields_VendorError(t *testing.T) {
	router := newTestRouter(&fakeQueue{}, &fakeRuns{}, &fakeDiscoverer{err: errors.New("timeout")})

	req := httptest.NewRequest(http.MethodGet, "/api/fields/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthCheck_Degraded(t *testing.T) {
	h := NewHandlers(&fakeQueue{}, &fakeRuns{}, &fakeDiscoverer{}, nil)
	h.SetPingers(
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("connection refused") },
	)
	router := SetupRoutes(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "ok", body["database"])
}
