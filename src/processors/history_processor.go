package processors

import (
	"time"

	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/models"
)

// Midnight normalizes a timestamp to the start of its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart resolves a lookback selection to the first day of the
// history curve. For the all-time window the curve starts at the earliest
// purchase date across every investment, open or closed, even though only
// open positions contribute value.
func WindowStart(window models.Lookback, today, earliestPurchase time.Time) time.Time {
	today = Midnight(today)
	switch window {
	case models.LookbackMonth:
		return today.AddDate(0, -1, 0)
	case models.LookbackQuarter:
		return today.AddDate(0, -3, 0)
	case models.LookbackYear:
		return today.AddDate(-1, 0, 0)
	case models.LookbackAllTime:
		if earliestPurchase.IsZero() {
			return today
		}
		return Midnight(earliestPurchase)
	}
	return today.AddDate(0, -1, 0)
}

// seriesCursor walks one item's ascending price series day by day,
// remembering the most recent usable average-high price seen so far.
type seriesCursor struct {
	points []models.TimeseriesPoint
	idx    int
	price  int64
	known  bool
}

// advance consumes all points up to and including cutoff.
func (c *seriesCursor) advance(cutoff int64) {
	for c.idx < len(c.points) && c.points[c.idx].Timestamp <= cutoff {
		// Gap buckets carry a nil average; they never overwrite the last
		// observed price.
		if p := c.points[c.idx].AvgHighPrice; p != nil {
			c.price = *p
			c.known = true
		}
		c.idx++
	}
}

// BuildHistory reconstructs the day-by-day total value of the open
// positions from the window start through today, both endpoints
// inclusive. Each invocation computes the curve from scratch.
//
// For each day, each open position bought on or before that day
// contributes quantity times the most recent series price at or before
// the end of that day; positions whose series is missing, failed, or has
// no point yet fall back to their own purchase price. An item's fetch
// failure therefore degrades that item to the fallback instead of
// aborting the whole curve. Days with no contributing positions are
// emitted with value 0.
func BuildHistory(open []model.Investment, series map[int]models.SeriesOutcome, window models.Lookback, today, earliestPurchase time.Time) []models.HistoryPoint {
	start := WindowStart(window, today, earliestPurchase)
	end := Midnight(today)

	cursors := make(map[int]*seriesCursor, len(series))
	for itemID, outcome := range series {
		if outcome.Failed() {
			continue
		}
		cursors[itemID] = &seriesCursor{points: outcome.Points}
	}

	history := []models.HistoryPoint{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		endOfDay := d.AddDate(0, 0, 1).Unix() - 1
		for _, c := range cursors {
			c.advance(endOfDay)
		}

		var total int64
		for _, inv := range open {
			if Midnight(inv.PurchaseDate).After(d) {
				continue
			}
			price := inv.PurchasePrice
			if c, ok := cursors[inv.ItemID]; ok && c.known {
				price = c.price
			}
			total += price * inv.Quantity
		}

		history = append(history, models.HistoryPoint{
			Date:       d.Format("2006-01-02"),
			TotalValue: total,
		})
	}
	return history
}
