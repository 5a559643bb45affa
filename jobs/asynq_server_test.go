package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Queue: QueueDefault, Type: task.Type()}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func newTestRouter(inspector QueueInspector, enq Enqueuer) http.Handler {
	h := NewHandler(inspector, &Client{client: enq}, nil)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestManualRunsEnqueueTasks(t *testing.T) {
	enq := &recordingEnqueuer{}
	router := newTestRouter(nil, enq)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/quotations/expire", strings.NewReader(`{"date":"2024-02-01"}`)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), TaskQuotationExpiry)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/discounts/lifecycle", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.Len(t, enq.tasks, 2)
	require.JSONEq(t, `{"date":"2024-02-01"}`, string(enq.tasks[0].Payload()))
	require.Equal(t, TaskDiscountLifecycle, enq.tasks[1].Type())
}

func TestManualRunRejectsBadDate(t *testing.T) {
	enq := &recordingEnqueuer{}
	rr := httptest.NewRecorder()
	newTestRouter(nil, enq).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/quotations/expire", strings.NewReader(`{"date":"01-02-2024"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, enq.tasks)
}

func TestQueueHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":3}`, rr.Body.String())

	rr = httptest.NewRecorder()
	newTestRouter(stubInspector{err: errors.New("redis down")}, nil).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
