// README: Unsaved carrier edits: lane, existing-lane and account surcharge drafts.
package pricerequest

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lanepricing/internal/types"
)

// LaneDraft holds edited fields of one lane price. Nil fields are unchanged.
// An empty FreightPrice clears the price.
type LaneDraft struct {
	ID           types.ID `json:"id"`
	FreightPrice *string  `json:"freight_price,omitempty"`
	TrailerType  *string  `json:"trailer_type,omitempty"`
}

func (d LaneDraft) merge(later LaneDraft) LaneDraft {
	if later.FreightPrice != nil {
		d.FreightPrice = later.FreightPrice
	}
	if later.TrailerType != nil {
		d.TrailerType = later.TrailerType
	}
	return d
}

// Draft belongs to one editing round of a request, identified by the
// request's stage version when the draft was saved.
type Draft struct {
	StageVersion int               `json:"stage_version"`
	Lanes        []LaneDraft       `json:"lanes,omitempty"`
	Existing     []LaneDraft       `json:"existing,omitempty"`
	Charges      map[string]string `json:"charges,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (d Draft) Empty() bool {
	return len(d.Lanes) == 0 && len(d.Existing) == 0 && len(d.Charges) == 0
}

// Merge folds a later change into d; for every lane id and charge key the
// later value wins field by field. A change saved in another editing round
// replaces d instead.
func (d Draft) Merge(later Draft) Draft {
	if later.StageVersion != d.StageVersion {
		d = Draft{StageVersion: later.StageVersion}
	}
	out := Draft{
		StageVersion: d.StageVersion,
		Lanes:        mergeLaneDrafts(d.Lanes, later.Lanes),
		Existing:     mergeLaneDrafts(d.Existing, later.Existing),
		UpdatedAt:    d.UpdatedAt,
	}
	if len(d.Charges)+len(later.Charges) > 0 {
		out.Charges = make(map[string]string, len(d.Charges)+len(later.Charges))
		for k, v := range d.Charges {
			out.Charges[k] = v
		}
		for k, v := range later.Charges {
			out.Charges[k] = v
		}
	}
	if later.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = later.UpdatedAt
	}
	return out
}

func mergeLaneDrafts(base, later []LaneDraft) []LaneDraft {
	out := slices.Clone(base)
	index := make(map[types.ID]int, len(out))
	for i, d := range out {
		index[d.ID] = i
	}
	for _, d := range later {
		if d.ID == "" {
			continue
		}
		if i, ok := index[d.ID]; ok {
			out[i] = out[i].merge(d)
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}

// ApplyLaneDrafts returns rows with the drafted fields applied.
func ApplyLaneDrafts(rows []LaneRow, drafts []LaneDraft) []LaneRow {
	if len(drafts) == 0 {
		return rows
	}
	byID := make(map[types.ID]LaneDraft, len(drafts))
	for _, d := range drafts {
		byID[d.ID] = d
	}
	out := make([]LaneRow, len(rows))
	for i, r := range rows {
		if d, ok := byID[r.ID]; ok {
			if d.FreightPrice != nil {
				r.FreightPrice = parsePrice(*d.FreightPrice)
			}
			if d.TrailerType != nil {
				r.TrailerType = *d.TrailerType
			}
		}
		out[i] = r
	}
	return out
}

// ApplyCharges overlays drafted charge values on the stored ones.
func ApplyCharges(stored map[string]decimal.Decimal, drafts map[string]string) map[string]string {
	out := make(map[string]string, len(stored)+len(drafts))
	for k, v := range stored {
		out[k] = v.String()
	}
	for k, v := range drafts {
		out[k] = v
	}
	return out
}

// parsePrice returns nil for blank or malformed text.
func parsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
