package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/adsdash/internal/model"
)

const (
	managersPath = "/api/googledata/accessible-customers"
	submitPath   = "/api/googledata/async/specific-clients"
	tasksPath    = "/api/googledata/tasks/"
)

// AccessibleCustomers lists the manager accounts the linked Google user
// can query.
func (c *Client) AccessibleCustomers(ctx context.Context) ([]model.Manager, error) {
	var out []model.Manager
	if err := c.Get(ctx, managersPath, &out); err != nil {
		return nil, fmt.Errorf("listing managers: %w", err)
	}
	return out, nil
}

// SubmitFetch starts an asynchronous metrics task.
func (c *Client) SubmitFetch(ctx context.Context, req model.FetchRequest) (*model.Task, error) {
	var out model.Task
	if err := c.Post(ctx, submitPath, req, &out); err != nil {
		return nil, fmt.Errorf("submitting fetch task: %w", err)
	}
	out.Status = model.NormalizeTaskStatus(string(out.Status))
	return &out, nil
}

// GetTask returns the current state of task id.
func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var out model.Task
	if err := c.Get(ctx, tasksPath+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("checking task %s: %w", id, err)
	}
	out.Status = model.NormalizeTaskStatus(string(out.Status))
	if out.TaskID == "" {
		out.TaskID = id
	}
	return &out, nil
}
