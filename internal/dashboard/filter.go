package dashboard

import (
	"strconv"
	"strings"

	"github.com/nhle/adsdash/internal/model"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50, 100}

// Filter narrows and pages the customer table.
type Filter struct {
	// LabelID restricts rows to one label; 0 means all labels.
	LabelID int64

	// Search matches the customer name or external id, case-insensitively.
	Search string

	PageSize int
	Page     int
}

// NewFilter returns a filter showing the first page of everything.
func NewFilter(pageSize int) Filter {
	return Filter{PageSize: validPageSize(pageSize)}
}

func validPageSize(n int) int {
	for _, size := range PageSizes {
		if n == size {
			return n
		}
	}
	return PageSizes[0]
}

// Active reports whether the filter hides any customers.
func (f Filter) Active() bool {
	return f.LabelID != 0 || strings.TrimSpace(f.Search) != ""
}

// Match reports whether c passes the label and search criteria.
func (f Filter) Match(c model.Customer) bool {
	if f.LabelID != 0 && (c.GACustomerLabel == nil || *c.GACustomerLabel != f.LabelID) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.GACustomerName), q) ||
		strings.Contains(strconv.FormatInt(c.GACustomerID, 10), q)
}

// Page is one page of filtered customers.
type Page struct {
	Customers []model.Customer
	Page      int
	Pages     int
	Total     int
}

// Apply filters customers and returns the requested page. Out-of-range
// pages are clamped.
func (f Filter) Apply(customers []model.Customer) Page {
	var matched []model.Customer
	for _, c := range customers {
		if f.Match(c) {
			matched = append(matched, c)
		}
	}

	size := validPageSize(f.PageSize)
	pages := (len(matched) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page := f.Page
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * size
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return Page{
		Customers: matched[start:end],
		Page:      page,
		Pages:     pages,
		Total:     len(matched),
	}
}

// NextPage and PrevPage move the page cursor; Apply clamps the result.
func (f Filter) NextPage() Filter { f.Page++; return f }

func (f Filter) PrevPage() Filter {
	if f.Page > 0 {
		f.Page--
	}
	return f
}
