package customerform

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/model"
)

type fakeBackend struct {
	created []model.CustomerInput
	updated map[int64]model.CustomerInput
	deleted []int64
	labels  []string
	err     error
}

func (f *fakeBackend) CreateCustomer(_ context.Context, in model.CustomerInput) (*model.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &model.Customer{ID: 1, GACustomerName: in.GACustomerName}, nil
}

func (f *fakeBackend) UpdateCustomer(_ context.Context, id int64, in model.CustomerInput) error {
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = map[int64]model.CustomerInput{}
	}
	f.updated[id] = in
	return nil
}

func (f *fakeBackend) DeleteCustomer(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) CreateLabel(_ context.Context, name string) (*model.Label, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.labels = append(f.labels, name)
	return &model.Label{ID: 7, Label: name}, nil
}

func labels() []model.Label {
	return []model.Label{{ID: 1, Label: "Retail"}, {ID: 2, Label: "SaaS"}}
}

func int64Ptr(v int64) *int64 { return &v }

func TestStartCreateWithoutLabelsOpensLabelDialog(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartCreate(nil)

	assert.Equal(t, modeLabel, m.mode)
	assert.True(t, m.firstLabel)
	assert.Contains(t, m.View(), "Create your first label")
}

func TestStartCreateWithLabelsOpensCustomerForm(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartCreate(labels())

	assert.Equal(t, modeCustomer, m.mode)
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(), "Add Customer")
}

func TestCreatedLabelIsPreselected(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, 80, 24)
	m.StartCreate(nil)

	msg := m.saveLabel("Retail")()
	m, cmd := m.Update(msg)

	require.NotNil(t, cmd)
	assert.Equal(t, []string{"Retail"}, b.labels)
	assert.Equal(t, modeCustomer, m.mode)
	assert.False(t, m.firstLabel)
	assert.Equal(t, "7", m.fb.labelID)
	require.Len(t, m.labels, 1)
	assert.Equal(t, "Retail", m.labels[0].Label)
}

func TestLabelErrorKeepsLabelDialog(t *testing.T) {
	m := New(&fakeBackend{err: &api.APIError{Status: 400, Detail: "label exists"}}, 80, 24)
	m.StartCreate(nil)

	m, _ = m.Update(m.saveLabel("Retail")())

	assert.Equal(t, modeLabel, m.mode)
	assert.Equal(t, "label exists", m.errMsg)
}

func TestStartEditPrefills(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartEdit(model.Customer{
		ID:              5,
		GACustomerID:    111,
		GACustomerName:  "Acme",
		GACurrentBudget: 250.5,
		GACustomerLabel: int64Ptr(2),
	}, labels())

	assert.True(t, m.Editing())
	assert.Equal(t, "Acme", m.fb.name)
	assert.Equal(t, "250.5", m.fb.budget)
	assert.Equal(t, "111", m.fb.customerID)
	assert.Equal(t, "2", m.fb.labelID)
}

func TestSaveCustomerCreates(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, 80, 24)
	m.StartCreate(labels())
	*m.fb = formBindings{name: " Acme ", budget: "100", customerID: "111", labelID: "1"}

	in, err := m.formValues().Input()
	require.NoError(t, err)
	msg := m.saveCustomer(in)()
	m, cmd := m.Update(msg)

	require.Len(t, b.created, 1)
	assert.Equal(t, "Acme", b.created[0].GACustomerName)
	assert.Equal(t, int64(1), b.created[0].GACustomerLabel)
	require.NotNil(t, cmd)
	assert.Equal(t, CustomerSavedMsg{Name: "Acme", Created: true}, cmd())
}

func TestSaveCustomerUpdates(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, 80, 24)
	m.StartEdit(model.Customer{ID: 9, GACustomerID: 111, GACustomerName: "Acme", GACurrentBudget: 10, GACustomerLabel: int64Ptr(1)}, labels())

	in, err := m.formValues().Input()
	require.NoError(t, err)
	_, cmd := m.Update(m.saveCustomer(in)())

	require.Contains(t, b.updated, int64(9))
	assert.Equal(t, CustomerSavedMsg{Name: "Acme"}, cmd())
}

func TestSaveFailureKeepsValues(t *testing.T) {
	m := New(&fakeBackend{err: errors.New("boom")}, 80, 24)
	m.StartCreate(labels())
	*m.fb = formBindings{name: "Acme", budget: "100", customerID: "111", labelID: "1"}

	in, _ := m.formValues().Input()
	m, _ = m.Update(m.saveCustomer(in)())

	assert.Equal(t, modeCustomer, m.mode)
	assert.Equal(t, "boom", m.errMsg)
	assert.Equal(t, "Acme", m.fb.name)
	assert.Equal(t, "100", m.fb.budget)
}

func TestDeleteCustomer(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, 80, 24)
	m.StartDelete(model.Customer{ID: 3, GACustomerName: "Acme"})
	assert.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.View(), "Delete Customer")

	_, cmd := m.Update(m.deleteCustomer(3)())

	assert.Equal(t, []int64{3}, b.deleted)
	assert.Equal(t, CustomerDeletedMsg{Name: "Acme"}, cmd())
}

func TestEscFromLabelReturnsToCustomerForm(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartCreate(labels())
	m.fb.labelID = newLabelOption
	m.startLabel()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modeCustomer, m.mode)
	assert.Empty(t, m.fb.labelID)
}

func TestStartCreateLeavesLabelUnselected(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartCreate(labels())

	assert.Empty(t, m.fb.labelID)
	assert.Equal(t, modeCustomer, m.mode)
}

func TestEditKeepsLabelAfterFormRebuild(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartEdit(model.Customer{ID: 5, GACustomerID: 111, GACustomerName: "Acme", GACurrentBudget: 10, GACustomerLabel: int64Ptr(2)}, labels())
	m.startCustomer()

	assert.Equal(t, "2", m.fb.labelID)
}

func TestEscFromFirstLabelCancels(t *testing.T) {
	m := New(&fakeBackend{}, 80, 24)
	m.StartCreate(nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}

func TestValidateLabel(t *testing.T) {
	assert.NoError(t, validateLabel(newLabelOption))
	assert.NoError(t, validateLabel("4"))
	assert.Error(t, validateLabel(""))
}
