package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/api/handlers"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

func TestListJobs(t *testing.T) {
	t.Parallel()

	st := &fakeStore{latestRuns: []domain.JobRun{
		{ID: "run-1", JobName: "fetch:A1PA6795UKMFR9", Status: domain.JobSucceeded},
		{ID: "run-2", JobName: "inventory:A1PA6795UKMFR9", Status: domain.JobRunning},
	}}
	_, api := humatest.New(t)
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st))

	resp := api.Get("/api/v1/jobs")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "fetch:A1PA6795UKMFR9")
	assert.Contains(t, resp.Body.String(), "inventory:A1PA6795UKMFR9")
}

func TestListJobs_StoreError(t *testing.T) {
	t.Parallel()

	st := &fakeStore{err: errors.New("connection refused")}
	_, api := humatest.New(t)
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st))

	resp := api.Get("/api/v1/jobs")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestJobHistory(t *testing.T) {
	t.Parallel()

	completed := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	st := &fakeStore{jobRuns: []domain.JobRun{
		{
			ID:          "run-9",
			JobName:     "fetch:ATVPDKIKX0DER",
			Status:      domain.JobFailed,
			CompletedAt: &completed,
			Error:       "fetching orders: status 503",
		},
	}}
	_, api := humatest.New(t)
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st))

	resp := api.Get("/api/v1/jobs/fetch:ATVPDKIKX0DER/runs?limit=10")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "fetch:ATVPDKIKX0DER", st.gotJobName)
	assert.Equal(t, 10, st.gotLimit)
	assert.Contains(t, resp.Body.String(), `"job":"fetch:ATVPDKIKX0DER"`)
	assert.Contains(t, resp.Body.String(), "status 503")
}

func TestJobHistory_LimitBounds(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	_, api := humatest.New(t)
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st))

	resp := api.Get("/api/v1/jobs/fetch:ATVPDKIKX0DER/runs?limit=1000")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
