// README: Carrier lane listing: tabs, country filters, search, sort and paging.
package pricerequest

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type Tab string

const (
	TabMandatory Tab = "mandatory"
	TabOptional  Tab = "optional"
	TabExisting  Tab = "existing"
)

const DefaultPageSize = 200

type LaneFilter struct {
	Tab             Tab    `form:"tab"`
	LoadingCountry  string `form:"loading_country"`
	DeliveryCountry string `form:"delivery_country"`
	Search          string `form:"search"`
	SortBy          string `form:"sort_by"`
	SortDesc        bool   `form:"sort_desc"`
	Page            int    `form:"page"`
	PageSize        int    `form:"-"`
}

type CountryOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type LanePage struct {
	Tab               Tab             `json:"tab"`
	Rows              []LaneRow       `json:"rows"`
	Pagination        Pagination      `json:"pagination"`
	LoadingCountries  []CountryOption `json:"loading_countries"`
	DeliveryCountries []CountryOption `json:"delivery_countries"`
	MandatoryCount    int             `json:"mandatory_count"`
	Locked            bool            `json:"locked"`
}

// ListLanes builds one page of the active tab. lanes holds the rows of the
// request itself, existing the carrier's previously priced lanes.
func ListLanes(lanes, existing []LaneRow, f LaneFilter, locked bool, countryNames map[string]string) LanePage {
	if f.Tab == "" {
		f.Tab = TabMandatory
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}

	var tab []LaneRow
	mandatory := 0
	switch f.Tab {
	case TabExisting:
		tab = slices.Clone(existing)
	default:
		for _, r := range lanes {
			if r.Mandatory {
				mandatory++
			}
			if r.Mandatory == (f.Tab == TabMandatory) {
				tab = append(tab, r)
			}
		}
	}

	page := LanePage{
		Tab:               f.Tab,
		MandatoryCount:    mandatory,
		Locked:            locked,
		LoadingCountries:  countryOptions(tab, func(r LaneRow) string { return r.LoadingCountryCode }, countryNames),
		DeliveryCountries: countryOptions(tab, func(r LaneRow) string { return r.DeliveryCountryCode }, countryNames),
	}

	rows := FilterLanes(tab, f, locked)
	SortLanes(rows, f.SortBy, f.SortDesc)

	page.Pagination = Paginate(len(rows), f.Page, f.PageSize)
	if len(rows) > 0 {
		page.Rows = rows[page.Pagination.Start-1 : page.Pagination.End]
	} else {
		page.Rows = []LaneRow{}
	}
	return page
}

// FilterLanes keeps rows matching the country filters and the search text.
// Locked requests only show priced rows.
func FilterLanes(rows []LaneRow, f LaneFilter, locked bool) []LaneRow {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]LaneRow, 0, len(rows))
	for _, r := range rows {
		if locked && !r.Priced() {
			continue
		}
		if f.LoadingCountry != "" && r.LoadingCountryCode != f.LoadingCountry {
			continue
		}
		if f.DeliveryCountry != "" && r.DeliveryCountryCode != f.DeliveryCountry {
			continue
		}
		if search != "" && !r.matches(search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortLanes sorts in place by a column. Unknown columns leave the order alone.
func SortLanes(rows []LaneRow, by string, desc bool) {
	if by == "" {
		return
	}
	if _, ok := (LaneRow{}).field(by); !ok {
		return
	}
	slices.SortStableFunc(rows, func(a, b LaneRow) int {
		av, _ := a.field(by)
		bv, _ := b.field(by)
		c := compareValues(av, bv)
		if desc {
			return -c
		}
		return c
	})
}

// compareValues compares numerically when both values are numbers and
// lexically otherwise.
func compareValues(a, b string) int {
	da, errA := decimal.NewFromString(strings.TrimSpace(a))
	db, errB := decimal.NewFromString(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return da.Cmp(db)
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func countryOptions(rows []LaneRow, code func(LaneRow) string, names map[string]string) []CountryOption {
	seen := make(map[string]bool)
	opts := []CountryOption{}
	for _, r := range rows {
		cc := code(r)
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		name := names[cc]
		if name == "" {
			name = cc
		}
		opts = append(opts, CountryOption{Code: cc, Label: name + " (" + cc + ")"})
	}
	slices.SortFunc(opts, func(a, b CountryOption) int { return strings.Compare(a.Label, b.Label) })
	return opts
}
