package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() CustomerForm {
	return CustomerForm{
		Name:       "Acme Dental",
		Budget:     "1500.50",
		CustomerID: "1234567890",
		LabelID:    "3",
	}
}

func TestCustomerFormValid(t *testing.T) {
	in, err := validForm().Input()
	require.NoError(t, err)
	assert.Equal(t, "1234567890", in.GACustomerID)
	assert.Equal(t, "Acme Dental", in.GACustomerName)
	assert.Equal(t, 1500.50, in.GACurrentBudget)
	assert.Equal(t, int64(3), in.GACustomerLabel)
}

func TestCustomerFormRejectsBadBudget(t *testing.T) {
	for _, budget := range []string{"", "abc", "0", "-10", "12x"} {
		f := validForm()
		f.Budget = budget
		err := f.Validate()
		require.Error(t, err, "budget %q", budget)

		var fe FormErrors
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe, "budget")
		assert.Len(t, fe, 1)
	}
}

func TestCustomerFormRequiresLabel(t *testing.T) {
	f := validForm()
	f.LabelID = ""
	_, err := f.Input()
	require.Error(t, err)

	var fe FormErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "label is required", fe["label_id"])
}

func TestCustomerFormNameAndID(t *testing.T) {
	f := validForm()
	f.Name = " a "
	f.CustomerID = "   "
	err := f.Validate()

	var fe FormErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "customer_id")
	assert.Equal(t, "name must be at least 2 characters; customer ID is required", fe.Error())
}

func TestCustomerFormFrom(t *testing.T) {
	label := int64(7)
	f := CustomerFormFrom(Customer{
		ID:              1,
		GACustomerID:    111,
		GACustomerName:  "Foo",
		GACurrentBudget: 250,
		GACustomerLabel: &label,
	})
	assert.Equal(t, CustomerForm{Name: "Foo", Budget: "250", CustomerID: "111", LabelID: "7"}, f)
}

func TestLabelName(t *testing.T) {
	labels := []Label{{ID: 1, Label: "VIP"}, {ID: 2, Label: "Trial"}}
	id := int64(2)
	missing := int64(9)
	assert.Equal(t, "Trial", LabelName(labels, &id))
	assert.Equal(t, "", LabelName(labels, &missing))
	assert.Equal(t, "", LabelName(labels, nil))
}

func TestRequireLabels(t *testing.T) {
	assert.ErrorIs(t, RequireLabels(nil), ErrNoLabels)
	assert.NoError(t, RequireLabels([]Label{{ID: 1, Label: "Retail"}}))
}

func TestCustomerLabelShapes(t *testing.T) {
	body := `[
		{"id": 1, "ga_customer_id": 111, "ga_customer_label": 3},
		{"id": 2, "ga_customer_id": 222, "ga_customer_label": "4"},
		{"id": 3, "ga_customer_id": 333, "ga_customer_label": null},
		{"id": 4, "ga_customer_id": 444, "ga_customer_label": "Retail"},
		{"id": 5, "ga_customer_id": 555}
	]`
	var customers []Customer
	require.NoError(t, json.Unmarshal([]byte(body), &customers))
	require.Len(t, customers, 5)

	require.NotNil(t, customers[0].GACustomerLabel)
	assert.Equal(t, int64(3), *customers[0].GACustomerLabel)
	require.NotNil(t, customers[1].GACustomerLabel)
	assert.Equal(t, int64(4), *customers[1].GACustomerLabel)
	assert.Nil(t, customers[2].GACustomerLabel)
	assert.Nil(t, customers[3].GACustomerLabel)
	assert.Equal(t, "Retail", customers[3].GACustomerLabelName)
	assert.Nil(t, customers[4].GACustomerLabel)
	assert.Equal(t, int64(555), customers[4].GACustomerID)
}

func TestCustomerLabelRejectsGarbage(t *testing.T) {
	var c Customer
	assert.Error(t, json.Unmarshal([]byte(`{"ga_customer_label": true}`), &c))
}

func TestResolveLabelNames(t *testing.T) {
	labels := []Label{{ID: 1, Label: "Retail"}}
	customers := []Customer{{GACustomerLabelName: "retail"}, {GACustomerLabelName: "Unknown"}}
	ResolveLabelNames(customers, labels)

	require.NotNil(t, customers[0].GACustomerLabel)
	assert.Equal(t, int64(1), *customers[0].GACustomerLabel)
	assert.Equal(t, "Retail", customers[0].LabelName(labels))
	assert.Nil(t, customers[1].GACustomerLabel)
	assert.Equal(t, "Unknown", customers[1].LabelName(labels))
}
