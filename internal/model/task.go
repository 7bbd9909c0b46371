package model

import (
	"encoding/json"
	"strings"
	"time"
)

// TaskStatus is the server-reported state of an asynchronous fetch job.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskRetry   TaskStatus = "RETRY"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
	TaskRevoked TaskStatus = "REVOKED"
)

// NormalizeTaskStatus upper-cases the server value and maps the legacy
// "FAILED" spelling onto TaskFailure.
func NormalizeTaskStatus(s string) TaskStatus {
	st := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st == "FAILED" {
		return TaskFailure
	}
	return st
}

// UnmarshalJSON normalizes the status on every decode.
func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NormalizeTaskStatus(raw)
	return nil
}

// IsTerminal reports whether no further polling is needed.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskSuccess, TaskFailure, TaskRevoked:
		return true
	}
	return false
}

// IsPending reports whether the status belongs to the non-terminal set.
func (s TaskStatus) IsPending() bool {
	switch s {
	case TaskPending, TaskStarted, TaskRetry:
		return true
	}
	return false
}

// DateRange bounds a metrics query (inclusive, YYYY-MM-DD on the wire).
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// DateLayout is the wire format of task dates.
const DateLayout = "2006-01-02"

// DefaultDateRange returns the last 30 days ending today.
func DefaultDateRange(now time.Time) DateRange {
	end := now
	start := end.AddDate(0, 0, -29)
	return DateRange{
		StartDate: start.Format(DateLayout),
		EndDate:   end.Format(DateLayout),
	}
}

// FetchRequest is the body of POST /api/googledata/async/specific-clients.
type FetchRequest struct {
	ManagerID string   `json:"manager_id"`
	ClientIDs []string `json:"client_ids"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// Task is a server-side asynchronous job fetching ad metrics.
type Task struct {
	TaskID      string      `json:"task_id"`
	Status      TaskStatus  `json:"status"`
	ManagerID   string      `json:"manager_id,omitempty"`
	ClientCount int         `json:"client_count,omitempty"`
	Message     string      `json:"message,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
	CompletedAt string      `json:"completed_at,omitempty"`
	Result      *TaskResult `json:"result,omitempty"`
	DateRange   *DateRange  `json:"date_range,omitempty"`
}

// TaskResult is attached to a task once it reaches TaskSuccess.
type TaskResult struct {
	Data              []CustomerData     `json:"data"`
	ProcessedCount    int                `json:"processed_count"`
	ProcessedAccounts []ProcessedAccount `json:"processed_accounts"`
}

// Find returns the metrics row for an external customer id.
func (r *TaskResult) Find(customerID string) (CustomerData, bool) {
	if r == nil {
		return CustomerData{}, false
	}
	for _, d := range r.Data {
		if d.CustomerID == customerID {
			return d, true
		}
	}
	return CustomerData{}, false
}

// CustomerData holds the performance metrics of one customer.
type CustomerData struct {
	CustomerID         string  `json:"customer_id"`
	BusinessName       string  `json:"business_name"`
	CPC                float64 `json:"cpc"`
	Spend              float64 `json:"spend"`
	Clicks             int64   `json:"clicks"`
	AllConversions     float64 `json:"all_conversions"`
	ConversionValue    float64 `json:"conversion_value"`
	CostPerConversions float64 `json:"cost_per_conversions"`
}

// ProcessedAccount identifies an account included in a task result.
type ProcessedAccount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
