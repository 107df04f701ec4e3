package pricerequest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanepricing/internal/modules/pricing"
)

func strp(s string) *string { return &s }

func TestDraft_Merge(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := Draft{
		Lanes:     []LaneDraft{{ID: "a", FreightPrice: strp("10")}},
		Charges:   map[string]string{pricing.KeyFuelSurcharge: "8"},
		UpdatedAt: t0,
	}
	later := Draft{
		Lanes:     []LaneDraft{{ID: "a", TrailerType: strp("Dual Temp")}, {ID: "b", FreightPrice: strp("5")}},
		Existing:  []LaneDraft{{ID: "e", FreightPrice: strp("700")}},
		Charges:   map[string]string{pricing.KeyFuelSurcharge: "9", pricing.KeyTailLift: "30"},
		UpdatedAt: t0.Add(time.Minute),
	}

	got := base.Merge(later)
	require.Len(t, got.Lanes, 2)
	assert.Equal(t, "10", *got.Lanes[0].FreightPrice, "untouched field survives")
	assert.Equal(t, "Dual Temp", *got.Lanes[0].TrailerType)
	assert.Equal(t, "5", *got.Lanes[1].FreightPrice)
	assert.Len(t, got.Existing, 1)
	assert.Equal(t, map[string]string{pricing.KeyFuelSurcharge: "9", pricing.KeyTailLift: "30"}, got.Charges)
	assert.Equal(t, later.UpdatedAt, got.UpdatedAt)

	again := got.Merge(Draft{Lanes: []LaneDraft{{ID: "a", FreightPrice: strp("12")}}})
	assert.Equal(t, "12", *again.Lanes[0].FreightPrice, "later value wins")
	assert.Equal(t, "10", *base.Lanes[0].FreightPrice, "merge does not alias its input")
}

func TestDraft_MergeAcrossEditingRounds(t *testing.T) {
	stale := Draft{
		StageVersion: 0,
		Lanes:        []LaneDraft{{ID: "a", FreightPrice: strp("10")}},
		Charges:      map[string]string{pricing.KeyFuelSurcharge: "8"},
	}
	got := stale.Merge(Draft{StageVersion: 3, Lanes: []LaneDraft{{ID: "b", FreightPrice: strp("5")}}})

	assert.Equal(t, 3, got.StageVersion)
	require.Len(t, got.Lanes, 1)
	assert.Equal(t, "b", string(got.Lanes[0].ID))
	assert.Empty(t, got.Charges, "earlier round is dropped")
}

func TestDraft_Empty(t *testing.T) {
	assert.True(t, Draft{}.Empty())
	assert.True(t, Draft{UpdatedAt: time.Now()}.Empty())
	assert.False(t, Draft{Charges: map[string]string{"ets": ""}}.Empty())
}

func TestApplyLaneDrafts(t *testing.T) {
	rows := []LaneRow{{ID: "a", FreightPrice: price("900"), TrailerType: "Frigo - chilled"}, {ID: "b"}, {ID: "c", FreightPrice: price("5")}}
	got := ApplyLaneDrafts(rows, []LaneDraft{
		{ID: "a", FreightPrice: strp("")},
		{ID: "b", FreightPrice: strp("950.5"), TrailerType: strp("Dual Temp")},
		{ID: "c", FreightPrice: strp("abc")},
	})
	assert.Nil(t, got[0].FreightPrice, "blank clears the price")
	assert.Equal(t, "Frigo - chilled", got[0].TrailerType)
	require.NotNil(t, got[1].FreightPrice)
	assert.Equal(t, "950.5", got[1].FreightPrice.String())
	assert.Equal(t, "Dual Temp", got[1].TrailerType)
	assert.Nil(t, got[2].FreightPrice, "malformed text is no price")
	assert.NotNil(t, rows[0].FreightPrice, "input rows are not modified")
}

func TestApplyCharges(t *testing.T) {
	stored := map[string]decimal.Decimal{pricing.KeyFuelSurcharge: decimal.RequireFromString("10"), pricing.KeyETS: decimal.RequireFromString("4")}
	got := ApplyCharges(stored, map[string]string{pricing.KeyETS: "", pricing.KeyTailLift: "30"})
	assert.Equal(t, map[string]string{pricing.KeyFuelSurcharge: "10", pricing.KeyETS: "", pricing.KeyTailLift: "30"}, got)
}

func TestValidateSubmission(t *testing.T) {
	catalog := pricing.DefaultCatalog().WithOverrides([]pricing.Definition{{Key: "craneFee", Label: "Crane Fee", Kind: pricing.KindFixed}})

	t.Run("valid", func(t *testing.T) {
		lanes := []LaneRow{{ID: "m", Mandatory: true, FreightPrice: price("900")}, {ID: "o"}}
		err := ValidateSubmission(lanes, []string{pricing.KeyFuelSurcharge}, map[string]string{pricing.KeyFuelSurcharge: "10"}, catalog)
		assert.NoError(t, err)
	})

	t.Run("collects every message in form order", func(t *testing.T) {
		lanes := []LaneRow{{ID: "m1", Mandatory: true}, {ID: "m2", Mandatory: true}}
		required := []string{"craneFee", pricing.KeyTailLift, pricing.KeyFuelSurcharge, pricing.KeyETS}
		charges := map[string]string{pricing.KeyFuelSurcharge: "  ", pricing.KeyETS: "3", pricing.KeyTailLift: "n/a"}

		err := ValidateSubmission(lanes, required, charges, catalog)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{
			"All mandatory lanes must have a Freight Price.",
			"Fuel surcharge percentage is required.",
			"Tail lift price is required.",
			"Crane Fee is required.",
		}, verr.Messages)
	})

	t.Run("zero is a value", func(t *testing.T) {
		err := ValidateSubmission(nil, []string{pricing.KeyWaitingHour}, map[string]string{pricing.KeyWaitingHour: "0"}, catalog)
		assert.NoError(t, err)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageNone, StageRequested, true},
		{StageRequested, StageAnswerReceived, true},
		{StageRequested, StageCancelled, true},
		{StageAnswerReceived, StageChangeRequested, true},
		{StageChangeRequested, StageRequested, true},
		{StageChangeRequested, StageCancelled, true},
		{StageAnswerReceived, StageCancelled, false},
		{StageAnswerReceived, StageRequested, false},
		{StageCancelled, StageRequested, false},
		{StageRequested, StageChangeRequested, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
