package api

import (
	"context"
	"fmt"

	"github.com/nhle/adsdash/internal/model"
)

const (
	customersPath = "/api/customer/customers/"
	labelsPath    = "/api/customer/labels/"
)

// ListCustomers returns every customer visible to the operator.
func (c *Client) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	if err := c.Get(ctx, customersPath, &out); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return out, nil
}

// CreateCustomer adds a customer and returns the stored record.
func (c *Client) CreateCustomer(ctx context.Context, in model.CustomerInput) (*model.Customer, error) {
	var out model.Customer
	if err := c.Post(ctx, customersPath, in, &out); err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return &out, nil
}

// UpdateCustomer replaces the editable fields of customer id.
func (c *Client) UpdateCustomer(ctx context.Context, id int64, in model.CustomerInput) error {
	if err := c.Put(ctx, customerPath(id), in, nil); err != nil {
		return fmt.Errorf("updating customer %d: %w", id, err)
	}
	return nil
}

// DeleteCustomer removes customer id.
func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	if err := c.Delete(ctx, customerPath(id)); err != nil {
		return fmt.Errorf("deleting customer %d: %w", id, err)
	}
	return nil
}

func customerPath(id int64) string {
	return fmt.Sprintf("%s%d/", customersPath, id)
}

type labelRequest struct {
	Label string `json:"label"`
}

// ListLabels returns all customer labels.
func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	var out []model.Label
	if err := c.Get(ctx, labelsPath, &out); err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return out, nil
}

// CreateLabel adds a label named name and returns it with its id.
func (c *Client) CreateLabel(ctx context.Context, name string) (*model.Label, error) {
	var out model.Label
	if err := c.Post(ctx, labelsPath, labelRequest{Label: name}, &out); err != nil {
		return nil, fmt.Errorf("creating label: %w", err)
	}
	return &out, nil
}
