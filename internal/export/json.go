package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/model"
)

// Meta describes the query a report was produced for.
type Meta struct {
	ManagerID string `json:"manager_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TaskID    string `json:"task_id,omitempty"`
}

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Meta       Meta        `json:"query"`
	Count      int         `json:"count"`
	Totals     jsonTotals  `json:"totals"`
	Customers  []jsonEntry `json:"customers"`
}

type jsonTotals struct {
	Budget      float64 `json:"budget"`
	Spend       float64 `json:"spend"`
	Clicks      int64   `json:"clicks"`
	Conversions float64 `json:"conversions"`
}

type jsonEntry struct {
	model.Customer
	Label   string              `json:"label,omitempty"`
	Metrics *model.CustomerData `json:"metrics,omitempty"`
}

// ToJSON writes rows with their totals to path.
func ToJSON(rows []dashboard.Row, meta Meta, path string) error {
	totals := dashboard.Summarize(rows)
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Meta:       meta,
		Count:      len(rows),
		Totals: jsonTotals{
			Budget:      totals.Budget,
			Spend:       totals.Spend,
			Clicks:      totals.Clicks,
			Conversions: totals.Conversions,
		},
		Customers: make([]jsonEntry, 0, len(rows)),
	}
	for _, r := range rows {
		export.Customers = append(export.Customers, jsonEntry{
			Customer: r.Customer,
			Label:    r.Label,
			Metrics:  r.Metrics,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
