// README: Submission checks for mandatory lanes and required additional charges.
package pricerequest

import (
	"strings"

	"lanepricing/internal/modules/pricing"
)

const msgMandatoryLanes = "All mandatory lanes must have a Freight Price."

// requiredChargeMessages is ordered as the charges appear on the carrier form.
var requiredChargeMessages = []struct {
	key string
	msg string
}{
	{pricing.KeyFuelSurcharge, "Fuel surcharge percentage is required."},
	{pricing.KeyAdditionalStops, "Price per stop is required."},
	{pricing.KeySecondDriver, "Two drivers price is required."},
	{pricing.KeyDirectFerry, "Direct ferry price is required."},
	{pricing.KeyOvernight, "Overnight charges price is required."},
	{pricing.KeyPlugIn, "Plug-in price is required."},
	{pricing.KeyWaitingHour, "Waiting hour price is required."},
	{pricing.KeyHarbourDues, "Harbour dues price is required."},
	{pricing.KeyETS, "ETS price is required."},
	{pricing.KeySeasonalSurcharge, "Seasonal surcharge is required."},
	{pricing.KeyWeekendCharges, "Weekend charges price is required."},
	{pricing.KeyDangerousGoods, "Dangerous goods price is required."},
	{pricing.KeyPalletExchange, "Pallet exchange price is required."},
	{pricing.KeyTailLift, "Tail lift price is required."},
	{pricing.KeyPalletJack, "Pallet jack price is required."},
}

type ValidationError struct {
	Messages []string `json:"messages"`
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

// ValidateSubmission checks merged lanes and charges. required lists the
// charge keys the request asks the carrier to fill in.
func ValidateSubmission(lanes []LaneRow, required []string, charges map[string]string, catalog *pricing.Catalog) error {
	var msgs []string
	for _, r := range lanes {
		if r.Mandatory && !r.Priced() {
			msgs = append(msgs, msgMandatoryLanes)
			break
		}
	}
	msgs = append(msgs, missingCharges(required, charges, catalog)...)
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Messages: msgs}
}

func missingCharges(required []string, charges map[string]string, catalog *pricing.Catalog) []string {
	want := make(map[string]bool, len(required))
	for _, k := range required {
		want[k] = true
	}
	var msgs []string
	blank := func(k string) bool { return parsePrice(charges[k]) == nil }
	for _, m := range requiredChargeMessages {
		if want[m.key] {
			delete(want, m.key)
			if blank(m.key) {
				msgs = append(msgs, m.msg)
			}
		}
	}
	// keys added through the catalog file
	for _, k := range required {
		if !want[k] {
			continue
		}
		delete(want, k)
		if !blank(k) {
			continue
		}
		label := k
		if d, ok := catalog.Lookup(k); ok && d.Label != "" {
			label = d.Label
		}
		msgs = append(msgs, label+" is required.")
	}
	return msgs
}
