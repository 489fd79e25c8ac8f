package models

// LatestPrice is a point-in-time snapshot of the most recent observed
// trades for one item. A nil High or Low means no trade of that side has
// ever been recorded for the item.
//
// Note the exchange API terminology is counterintuitive:
// `high` is the instant-buy price and `low` the instant-sell price.
type LatestPrice struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// TimeseriesPoint is one bucket of an item's historical price series.
// Nil average prices mean no trade was recorded in that bucket; they are
// legal and must never be coerced to zero.
type TimeseriesPoint struct {
	Timestamp       int64  `json:"timestamp"`
	AvgHighPrice    *int64 `json:"avgHighPrice"`
	AvgLowPrice     *int64 `json:"avgLowPrice"`
	HighPriceVolume int64  `json:"highPriceVolume"`
	LowPriceVolume  int64  `json:"lowPriceVolume"`
}

// Granularity selects the bucket width of a historical series.
type Granularity string

const (
	GranularityFine   Granularity = "5m"
	GranularityMedium Granularity = "1h"
	GranularityCoarse Granularity = "6h"
)

// ParseGranularity accepts both the API timestep values and the
// descriptive aliases used by the frontend.
func ParseGranularity(s string) (Granularity, bool) {
	switch s {
	case "5m", "fine":
		return GranularityFine, true
	case "1h", "medium":
		return GranularityMedium, true
	case "6h", "coarse", "":
		return GranularityCoarse, true
	}
	return "", false
}

// SeriesOutcome is the per-item result of a fan-out timeseries fetch.
// Partial failure across items is normal, not exceptional: consumers
// switch on Err instead of inferring failure from an empty slice.
type SeriesOutcome struct {
	ItemID int
	Points []TimeseriesPoint
	Err    error
}

// Failed reports whether the fetch for this item did not complete.
func (o SeriesOutcome) Failed() bool {
	return o.Err != nil
}
