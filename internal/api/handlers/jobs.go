package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// JobsHandler handles scheduled-job status endpoints.
type JobsHandler struct {
	store store.Store
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(s store.Store) *JobsHandler {
	return &JobsHandler{store: s}
}

// ListJobsOutput is the response for the job overview endpoint.
type ListJobsOutput struct {
	Body struct {
		Jobs []domain.JobRun `json:"jobs"`
	}
}

// JobHistoryInput is the input for one job's run history.
type JobHistoryInput struct {
	Name  string `path:"name"   doc:"Job name, e.g. fetch:A1PA6795UKMFR9"`
	Limit int    `query:"limit" doc:"Number of runs (default 50)" minimum:"1" maximum:"500"`
}

// JobHistoryOutput is the response for one job's run history.
type JobHistoryOutput struct {
	Body struct {
		Job  string          `json:"job"`
		Runs []domain.JobRun `json:"runs"`
	}
}

// ListJobs returns the most recent run of every scheduled job.
func (h *JobsHandler) ListJobs(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	jobs, err := h.store.ListLatestJobRuns(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("job query failed: " + err.Error())
	}

	resp := &ListJobsOutput{}
	resp.Body.Jobs = jobs
	return resp, nil
}

// JobHistory returns recent runs of one job, newest first.
func (h *JobsHandler) JobHistory(
	ctx context.Context,
	input *JobHistoryInput,
) (*JobHistoryOutput, error) {
	runs, err := h.store.ListJobRuns(ctx, input.Name, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("job query failed: " + err.Error())
	}

	resp := &JobHistoryOutput{}
	resp.Body.Job = input.Name
	resp.Body.Runs = runs
	return resp, nil
}

// RegisterJobRoutes registers job endpoints with the Huma API.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List scheduled jobs",
		Description: "Returns the most recent run of every scheduled job.",
		Tags:        []string{"jobs"},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{name}/runs",
		Summary:     "Get a job's run history",
		Description: "Returns recent runs of one job, newest first.",
		Tags:        []string{"jobs"},
	}, h.JobHistory)
}
