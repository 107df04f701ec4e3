package ranking

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/types"
)

type cand struct {
	id        string
	preferred bool
	primary   bool
	total     string
	base      string
}

func build(cs ...cand) []pricing.Candidate {
	out := make([]pricing.Candidate, 0, len(cs))
	for _, c := range cs {
		base := c.base
		if base == "" {
			base = "0"
		}
		total := c.total
		if total == "" {
			total = "0"
		}
		out = append(out, pricing.Candidate{
			ID:        types.ID(c.id),
			Preferred: c.preferred,
			Selection: pricing.Selection{Primary: c.primary},
			Total:     decimal.RequireFromString(total),
			Sheet:     pricing.RateSheet{BasePrice: decimal.RequireFromString(base)},
		})
	}
	return out
}

func ids(cands []pricing.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = string(c.ID)
	}
	return out
}

func TestByPreferred(t *testing.T) {
	in := build(
		cand{id: "a"},
		cand{id: "b", preferred: true},
		cand{id: "c"},
		cand{id: "d", preferred: true},
	)
	got := ids(ByPreferred(in))
	want := []string{"b", "d", "a", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ByPreferred() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, ids(in)); diff != "" {
		t.Errorf("input was mutated (-want +got):\n%s", diff)
	}
}

func TestBySelection(t *testing.T) {
	tests := []struct {
		name string
		in   []pricing.Candidate
		want []string
	}{
		{
			// primary non-preferred still ranks above a cheaper preferred carrier
			name: "primary beats preferred",
			in: build(
				cand{id: "A", preferred: true, total: "100"},
				cand{id: "B", primary: true, total: "90"},
				cand{id: "C", total: "80"},
			),
			want: []string{"B", "A", "C"},
		},
		{
			name: "ascending total after flags",
			in: build(
				cand{id: "x", total: "300"},
				cand{id: "y", total: "120.50"},
				cand{id: "z", preferred: true, total: "999"},
				cand{id: "w", total: "120.49"},
			),
			want: []string{"z", "w", "y", "x"},
		},
		{
			name: "ties keep original order",
			in: build(
				cand{id: "1", total: "50"},
				cand{id: "2", total: "50"},
				cand{id: "3", total: "50"},
			),
			want: []string{"1", "2", "3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(BySelection(tt.in))); diff != "" {
				t.Errorf("BySelection() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBySelection_Idempotent(t *testing.T) {
	in := build(
		cand{id: "a", total: "10"},
		cand{id: "b", preferred: true, total: "30"},
		cand{id: "c", primary: true, total: "20"},
		cand{id: "d", total: "5"},
	)
	once := BySelection(in)
	twice := BySelection(once)
	if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
		t.Errorf("second sort changed order (-once +twice):\n%s", diff)
	}
}

func TestByPreferredThenBasePrice(t *testing.T) {
	in := build(
		cand{id: "a", base: "500"},
		cand{id: "b", base: "200", preferred: true},
		cand{id: "c", base: "100"},
		cand{id: "d", base: "700", preferred: true},
	)
	want := []string{"b", "d", "c", "a"}
	if diff := cmp.Diff(want, ids(ByPreferredThenBasePrice(in))); diff != "" {
		t.Errorf("ByPreferredThenBasePrice() mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_Renumbers(t *testing.T) {
	in := build(cand{id: "a"}, cand{id: "b", preferred: true})
	got, err := Rank(in, VariantPreferred)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	idx := []int{got[0].Index, got[1].Index}
	if diff := cmp.Diff([]int{1, 2}, idx); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
	if got[0].ID != "b" {
		t.Errorf("first = %s, want b", got[0].ID)
	}

	if _, err := Rank(in, Variant("alphabetical")); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Rank() error = %v, want ErrUnknownVariant", err)
	}
}
