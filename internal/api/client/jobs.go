package client

import (
	"context"
	"strconv"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// ListJobs returns the most recent run of every scheduled job.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobRun, error) {
	var resp struct {
		Jobs []domain.JobRun `json:"jobs"`
	}
	if err := c.get(ctx, "/api/v1/jobs", &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJobHistory returns recent runs of one scheduled job, newest first.
// A limit of zero uses the server default.
func (c *Client) GetJobHistory(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	path := "/api/v1/jobs/" + jobName + "/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Job  string          `json:"job"`
		Runs []domain.JobRun `json:"runs"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}
