// Package export writes the performance report to files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/nhle/adsdash/internal/dashboard"
)

var csvHeader = []string{
	"Customer ID", "Customer", "Label", "Budget", "Ideal Daily Spend", "Pacing %",
	"Spend", "Clicks", "CPC", "Conversions", "Conversion Value", "Cost/Conversion",
}

// ToCSV writes rows to path with a header line. Metrics columns are empty
// for customers without data.
func ToCSV(rows []dashboard.Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		c := r.Customer
		record := []string{
			c.ExternalID(),
			c.GACustomerName,
			r.Label,
			money(c.GACurrentBudget),
			money(c.GAIdealDailySpend),
			money(c.GABudgetPacing),
			"", "", "", "", "", "",
		}
		if m := r.Metrics; m != nil {
			record[6] = money(m.Spend)
			record[7] = strconv.FormatInt(m.Clicks, 10)
			record[8] = money(m.CPC)
			record[9] = money(m.AllConversions)
			record[10] = money(m.ConversionValue)
			record[11] = money(m.CostPerConversions)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
