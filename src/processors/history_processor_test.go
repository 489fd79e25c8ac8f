package processors

import (
	"errors"
	"testing"
	"time"

	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func seriesPoint(ts time.Time, avgHigh int64) models.TimeseriesPoint {
	return models.TimeseriesPoint{Timestamp: ts.Unix(), AvgHighPrice: &avgHigh}
}

func TestWindowStart(t *testing.T) {
	today := day(2026, time.June, 15)
	earliest := day(2025, time.December, 3)

	tests := []struct {
		window models.Lookback
		want   time.Time
	}{
		{models.LookbackMonth, day(2026, time.May, 15)},
		{models.LookbackQuarter, day(2026, time.March, 15)},
		{models.LookbackYear, day(2025, time.June, 15)},
		{models.LookbackAllTime, earliest},
	}
	for _, tt := range tests {
		if got := WindowStart(tt.window, today, earliest); !got.Equal(tt.want) {
			t.Errorf("WindowStart(%q) = %v, want %v", tt.window, got, tt.want)
		}
	}

	// All-time with no investments collapses to a single-day window.
	if got := WindowStart(models.LookbackAllTime, today, time.Time{}); !got.Equal(today) {
		t.Errorf("WindowStart(all, zero earliest) = %v, want %v", got, today)
	}
}

func TestBuildHistoryPurchasePriceFallback(t *testing.T) {
	purchase := day(2026, time.June, 10)
	today := day(2026, time.June, 15)
	open := []model.Investment{{
		ID: 1, ItemID: 4151, ItemName: "Abyssal whip",
		Quantity: 3, PurchasePrice: 2_000_000, PurchaseDate: purchase,
	}}

	// No series at all: every day from purchase to today is Q*P.
	history := BuildHistory(open, nil, models.LookbackAllTime, today, purchase)

	if len(history) != 6 {
		t.Fatalf("got %d days, want 6", len(history))
	}
	if history[0].Date != "2026-06-10" || history[len(history)-1].Date != "2026-06-15" {
		t.Errorf("range = [%s, %s], want [2026-06-10, 2026-06-15]", history[0].Date, history[len(history)-1].Date)
	}
	for _, p := range history {
		if p.TotalValue != 6_000_000 {
			t.Errorf("day %s value = %d, want 6000000", p.Date, p.TotalValue)
		}
	}
}

func TestBuildHistoryUsesMostRecentSeriesPrice(t *testing.T) {
	purchase := day(2026, time.June, 1)
	today := day(2026, time.June, 4)
	open := []model.Investment{{
		ID: 1, ItemID: 10, Quantity: 2, PurchasePrice: 100, PurchaseDate: purchase,
	}}
	series := map[int]models.SeriesOutcome{
		10: {ItemID: 10, Points: []models.TimeseriesPoint{
			seriesPoint(day(2026, time.June, 2).Add(6*time.Hour), 150),
			seriesPoint(day(2026, time.June, 3).Add(12*time.Hour), 180),
		}},
	}

	history := BuildHistory(open, series, models.LookbackAllTime, today, purchase)

	want := []int64{200, 300, 360, 360} // fallback, then 150*2, 180*2, carried forward
	if len(history) != len(want) {
		t.Fatalf("got %d days, want %d", len(history), len(want))
	}
	for i, w := range want {
		if history[i].TotalValue != w {
			t.Errorf("day %s value = %d, want %d", history[i].Date, history[i].TotalValue, w)
		}
	}
}

func TestBuildHistoryPositionJoinsOnPurchaseDay(t *testing.T) {
	today := day(2026, time.June, 5)
	open := []model.Investment{
		{ID: 1, ItemID: 10, Quantity: 1, PurchasePrice: 100, PurchaseDate: day(2026, time.June, 1)},
		{ID: 2, ItemID: 20, Quantity: 1, PurchasePrice: 500, PurchaseDate: day(2026, time.June, 4)},
	}

	history := BuildHistory(open, nil, models.LookbackAllTime, today, day(2026, time.June, 1))

	byDate := map[string]int64{}
	for _, p := range history {
		byDate[p.Date] = p.TotalValue
	}
	if byDate["2026-06-03"] != 100 {
		t.Errorf("before second purchase: %d, want 100", byDate["2026-06-03"])
	}
	if byDate["2026-06-04"] != 600 {
		t.Errorf("on second purchase day: %d, want 600", byDate["2026-06-04"])
	}
}

func TestBuildHistoryFailedSeriesDegradesToFallback(t *testing.T) {
	purchase := day(2026, time.June, 1)
	today := day(2026, time.June, 3)
	open := []model.Investment{
		{ID: 1, ItemID: 10, Quantity: 1, PurchasePrice: 100, PurchaseDate: purchase},
		{ID: 2, ItemID: 20, Quantity: 1, PurchasePrice: 1000, PurchaseDate: purchase},
	}
	series := map[int]models.SeriesOutcome{
		10: {ItemID: 10, Points: []models.TimeseriesPoint{seriesPoint(purchase.Add(time.Hour), 200)}},
		20: {ItemID: 20, Err: errors.New("upstream timeout")},
	}

	history := BuildHistory(open, series, models.LookbackAllTime, today, purchase)

	// Item 20's failure must not abort the curve; it contributes its
	// purchase price on every day while item 10 tracks its series.
	for _, p := range history {
		if p.TotalValue != 1200 {
			t.Errorf("day %s value = %d, want 1200", p.Date, p.TotalValue)
		}
	}
}

func TestBuildHistoryNilGapsDoNotResetPrice(t *testing.T) {
	purchase := day(2026, time.June, 1)
	today := day(2026, time.June, 3)
	open := []model.Investment{
		{ID: 1, ItemID: 10, Quantity: 1, PurchasePrice: 100, PurchaseDate: purchase},
	}
	gap := models.TimeseriesPoint{Timestamp: day(2026, time.June, 2).Unix()} // no trades that bucket
	series := map[int]models.SeriesOutcome{
		10: {ItemID: 10, Points: []models.TimeseriesPoint{
			seriesPoint(purchase.Add(time.Hour), 250),
			gap,
		}},
	}

	history := BuildHistory(open, series, models.LookbackAllTime, today, purchase)

	for _, p := range history {
		if p.TotalValue != 250 {
			t.Errorf("day %s value = %d, want 250 (gap must not zero the price)", p.Date, p.TotalValue)
		}
	}
}

func TestBuildHistoryNoPositionsYieldsZeroDays(t *testing.T) {
	today := day(2026, time.June, 3)
	history := BuildHistory(nil, nil, models.LookbackMonth, today, time.Time{})

	if len(history) == 0 {
		t.Fatal("expected one point per day even with no positions")
	}
	for _, p := range history {
		if p.TotalValue != 0 {
			t.Errorf("day %s value = %d, want 0", p.Date, p.TotalValue)
		}
	}
}
