package dashboard

import (
	"math"
	"sort"
	"strconv"

	humanize "github.com/dustin/go-humanize"

	"github.com/nhle/adsdash/internal/model"
)

// Row joins a customer with its metrics from the task result.
type Row struct {
	Customer model.Customer
	Label    string

	// Metrics is nil until a successful task produced data for the customer.
	Metrics *model.CustomerData
}

// Rows builds report rows for customers in order.
func Rows(customers []model.Customer, labels []model.Label, result *model.TaskResult) []Row {
	rows := make([]Row, 0, len(customers))
	for _, c := range customers {
		row := Row{Customer: c, Label: c.LabelName(labels)}
		if d, ok := result.Find(c.ExternalID()); ok {
			d := d
			row.Metrics = &d
		}
		rows = append(rows, row)
	}
	return rows
}

// Totals aggregates the report.
type Totals struct {
	Customers   int
	Budget      float64
	Spend       float64
	Clicks      int64
	Conversions float64
	Value       float64
}

// Summarize sums the rows. Customers without metrics contribute only their
// budget.
func Summarize(rows []Row) Totals {
	t := Totals{Customers: len(rows)}
	for _, r := range rows {
		t.Budget += r.Customer.GACurrentBudget
		if r.Metrics == nil {
			continue
		}
		t.Spend += r.Metrics.Spend
		t.Clicks += r.Metrics.Clicks
		t.Conversions += r.Metrics.AllConversions
		t.Value += r.Metrics.ConversionValue
	}
	return t
}

// CPC is the average cost per click, 0 without clicks.
func (t Totals) CPC() float64 {
	if t.Clicks == 0 {
		return 0
	}
	return t.Spend / float64(t.Clicks)
}

// Share is one customer's portion of total spend.
type Share struct {
	Name    string
	Spend   float64
	Percent float64
}

// SpendShares returns each customer's share of spend, largest first.
// Customers without spend are omitted.
func SpendShares(rows []Row) []Share {
	var total float64
	for _, r := range rows {
		if r.Metrics != nil {
			total += r.Metrics.Spend
		}
	}
	if total <= 0 {
		return nil
	}

	var shares []Share
	for _, r := range rows {
		if r.Metrics == nil || r.Metrics.Spend <= 0 {
			continue
		}
		shares = append(shares, Share{
			Name:    r.Customer.GACustomerName,
			Spend:   r.Metrics.Spend,
			Percent: r.Metrics.Spend / total * 100,
		})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Spend > shares[j].Spend })
	return shares
}

// Currency formats v as US dollars, e.g. $1,234.56.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "$0.00"
	}
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Percent formats v with two decimals, e.g. 12.34%.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00%"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// Count formats an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}
