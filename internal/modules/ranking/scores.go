// README: Carrier score aggregation per product and carrier.
package ranking

import (
	"math"
	"slices"
)

type ScoreSample struct {
	Availability *float64 `json:"availability,omitempty"`
	PriceLevel   *float64 `json:"price_level,omitempty"`
	Reliability  *float64 `json:"reliability,omitempty"`
}

// ScoreRecord is one lane price row with the scores recorded for its carrier.
type ScoreRecord struct {
	ID      string        `json:"id"`
	Product string        `json:"product"`
	Carrier string        `json:"carrier"`
	Samples []ScoreSample `json:"samples"`
}

// Aggregate holds rounded score averages; a nil score had no samples.
type Aggregate struct {
	ID           string `json:"id"`
	Product      string `json:"product"`
	Carrier      string `json:"carrier"`
	Reliability  *int   `json:"reliability,omitempty"`
	Availability *int   `json:"availability,omitempty"`
	PriceLevel   *int   `json:"price_level,omitempty"`
}

type Metric string

const (
	MetricReliability  Metric = "reliability"
	MetricAvailability Metric = "availability"
	MetricPriceLevel   Metric = "price_level"
)

type mean struct {
	total float64
	count int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.total += *v
	m.count++
}

func (m mean) rounded() *int {
	if m.count == 0 {
		return nil
	}
	v := int(math.Round(m.total / float64(m.count)))
	return &v
}

// AggregateScores averages samples per (product, carrier) in first-seen order.
// Records without samples are skipped.
func AggregateScores(records []ScoreRecord) []Aggregate {
	type acc struct {
		agg                              Aggregate
		reliability, availability, price mean
	}
	index := map[[2]string]int{}
	var accs []*acc

	for _, r := range records {
		if len(r.Samples) == 0 {
			continue
		}
		key := [2]string{r.Product, r.Carrier}
		i, ok := index[key]
		if !ok {
			i = len(accs)
			index[key] = i
			accs = append(accs, &acc{agg: Aggregate{ID: r.ID + "-agg", Product: r.Product, Carrier: r.Carrier}})
		}
		a := accs[i]
		for _, s := range r.Samples {
			a.reliability.add(s.Reliability)
			a.availability.add(s.Availability)
			a.price.add(s.PriceLevel)
		}
	}

	out := make([]Aggregate, 0, len(accs))
	for _, a := range accs {
		agg := a.agg
		agg.Reliability = a.reliability.rounded()
		agg.Availability = a.availability.rounded()
		agg.PriceLevel = a.price.rounded()
		out = append(out, agg)
	}
	return out
}

// TopBy returns a copy of aggs ordered by metric, highest first. Missing
// scores count as zero.
func TopBy(aggs []Aggregate, m Metric) []Aggregate {
	out := slices.Clone(aggs)
	slices.SortStableFunc(out, func(a, b Aggregate) int {
		return metricValue(b, m) - metricValue(a, m)
	})
	return out
}

func metricValue(a Aggregate, m Metric) int {
	var p *int
	switch m {
	case MetricReliability:
		p = a.Reliability
	case MetricAvailability:
		p = a.Availability
	case MetricPriceLevel:
		p = a.PriceLevel
	}
	if p == nil {
		return 0
	}
	return *p
}
