package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoLabels is returned when a customer dialog is requested before any
// label exists.
var ErrNoLabels = errors.New("create your first label")

// Customer is an advertising-account customer as returned by
// GET /api/customer/customers/.
type Customer struct {
	// ID is the backend primary key used in update/delete paths.
	ID int64 `json:"id"`

	// GACustomerID is the external ads-platform customer id. It is unique
	// within the list returned by the backend.
	GACustomerID int64 `json:"ga_customer_id"`

	GACustomerName    string  `json:"ga_customer_name"`
	GACurrentBudget   float64 `json:"ga_current_budget"`
	GAIdealDailySpend float64 `json:"ga_ideal_daily_spend"`

	// GABudgetPacing is the ratio of actual to ideal spend, in percent.
	GABudgetPacing float64 `json:"ga_budget_pacing"`

	// GACustomerLabel is the label id, nil when the customer is unlabelled.
	GACustomerLabel *int64 `json:"ga_customer_label"`

	// GACustomerLabelName is set when the backend sent the label as a name
	// instead of an id.
	GACustomerLabelName string `json:"-"`
}

// UnmarshalJSON accepts the label as a number, a string or null.
func (c *Customer) UnmarshalJSON(b []byte) error {
	type plain Customer
	aux := struct {
		*plain
		Label LabelRef `json:"ga_customer_label"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.GACustomerLabel = aux.Label.ID
	c.GACustomerLabelName = aux.Label.Name
	return nil
}

// LabelName resolves the customer's label against labels, falling back
// to the name the backend sent.
func (c Customer) LabelName(labels []Label) string {
	if name := LabelName(labels, c.GACustomerLabel); name != "" {
		return name
	}
	return c.GACustomerLabelName
}

// ResolveLabelNames fills in the label id of customers whose label was
// sent by name.
func ResolveLabelNames(customers []Customer, labels []Label) {
	for i := range customers {
		c := &customers[i]
		if c.GACustomerLabel != nil || c.GACustomerLabelName == "" {
			continue
		}
		for _, l := range labels {
			if strings.EqualFold(l.Label, c.GACustomerLabelName) {
				id := l.ID
				c.GACustomerLabel = &id
				break
			}
		}
	}
}

// LabelRef is a label reference as sent by the backend: a number, a
// numeric string, a label name or null.
type LabelRef struct {
	ID   *int64
	Name string
}

func (r *LabelRef) UnmarshalJSON(b []byte) error {
	*r = LabelRef{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		var id int64
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("decoding label id: %w", err)
		}
		r.ID = &id
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding label: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		r.ID = &id
		return nil
	}
	r.Name = s
	return nil
}

// ExternalID returns the ads-platform id as sent in task requests.
func (c Customer) ExternalID() string {
	return strconv.FormatInt(c.GACustomerID, 10)
}

// CustomerInput is the payload for creating or updating a customer.
type CustomerInput struct {
	GACustomerID    string  `json:"ga_customer_id"`
	GACustomerName  string  `json:"ga_customer_name"`
	GACurrentBudget float64 `json:"ga_current_budget"`
	GACustomerLabel int64   `json:"ga_customer_label"`
}

// Label categorizes customers for organization and color-coded display.
type Label struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Manager is an accessible ad-platform account used as the scope for
// customer and metrics queries.
type Manager struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomerForm holds the raw string values entered in the customer dialog.
type CustomerForm struct {
	Name       string
	Budget     string
	CustomerID string
	LabelID    string
}

// FormErrors maps a form field name to its validation message.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"name", "budget", "customer_id", "label_id"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateCustomerName requires at least two characters.
func ValidateCustomerName(s string) error {
	if len([]rune(strings.TrimSpace(s))) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// ValidateBudget requires a positive number.
func ValidateBudget(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("budget must be a positive number")
	}
	return nil
}

// ValidateExternalCustomerID requires a non-empty customer id.
func ValidateExternalCustomerID(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("customer ID is required")
	}
	return nil
}

// ValidateLabelSelection requires a numeric label id.
func ValidateLabelSelection(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("label is required")
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("label is required")
	}
	return nil
}

// Validate checks every field and returns FormErrors, or nil when valid.
func (f CustomerForm) Validate() error {
	errs := FormErrors{}
	if err := ValidateCustomerName(f.Name); err != nil {
		errs["name"] = err.Error()
	}
	if err := ValidateBudget(f.Budget); err != nil {
		errs["budget"] = err.Error()
	}
	if err := ValidateExternalCustomerID(f.CustomerID); err != nil {
		errs["customer_id"] = err.Error()
	}
	if err := ValidateLabelSelection(f.LabelID); err != nil {
		errs["label_id"] = err.Error()
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Input validates the form and converts it to an API payload.
func (f CustomerForm) Input() (CustomerInput, error) {
	if err := f.Validate(); err != nil {
		return CustomerInput{}, err
	}
	budget, _ := strconv.ParseFloat(strings.TrimSpace(f.Budget), 64)
	label, _ := strconv.ParseInt(strings.TrimSpace(f.LabelID), 10, 64)
	return CustomerInput{
		GACustomerID:    strings.TrimSpace(f.CustomerID),
		GACustomerName:  strings.TrimSpace(f.Name),
		GACurrentBudget: budget,
		GACustomerLabel: label,
	}, nil
}

// CustomerFormFrom pre-fills the form from an existing customer.
func CustomerFormFrom(c Customer) CustomerForm {
	f := CustomerForm{
		Name:       c.GACustomerName,
		Budget:     strconv.FormatFloat(c.GACurrentBudget, 'f', -1, 64),
		CustomerID: c.ExternalID(),
	}
	if c.GACustomerLabel != nil {
		f.LabelID = strconv.FormatInt(*c.GACustomerLabel, 10)
	}
	return f
}

// RequireLabels returns ErrNoLabels when labels is empty.
func RequireLabels(labels []Label) error {
	if len(labels) == 0 {
		return ErrNoLabels
	}
	return nil
}

// LabelName resolves a label id to its name, or "" when unknown.
func LabelName(labels []Label, id *int64) string {
	if id == nil {
		return ""
	}
	for _, l := range labels {
		if l.ID == *id {
			return l.Label
		}
	}
	return ""
}
