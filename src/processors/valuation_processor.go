package processors

import (
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/models"
)

// Valuate partitions a user's investment records into open and closed
// positions and marks the open ones to the latest observed instant-buy
// prices. It is a pure function of its inputs: the caller-supplied slice
// and map are never mutated, and the partition is total and disjoint:
// every record lands in exactly one bucket, decided solely by the nullity
// of its sell price.
//
// An open position whose item has no usable current price is valued at 0,
// which makes its unrealized P/L the full negative cost basis.
func Valuate(investments []model.Investment, latest map[int]models.LatestPrice) models.PortfolioSummary {
	summary := models.PortfolioSummary{
		OpenPositions:   []models.PositionValue{},
		ClosedPositions: []models.ClosedPositionValue{},
	}

	for _, inv := range investments {
		if inv.IsOpen() {
			var currentPrice int64
			priceKnown := false
			if price, ok := latest[inv.ItemID]; ok && price.High != nil {
				currentPrice = *price.High
				priceKnown = true
			}

			costBasis := inv.PurchasePrice * inv.Quantity
			currentValue := currentPrice * inv.Quantity

			position := models.PositionValue{
				InvestmentID: inv.ID,
				ItemID:       inv.ItemID,
				ItemName:     inv.ItemName,
				Quantity:     inv.Quantity,
				CostBasis:    costBasis,
				CurrentValue: currentValue,
				UnrealizedPL: currentValue - costBasis,
				PriceKnown:   priceKnown,
			}
			summary.OpenPositions = append(summary.OpenPositions, position)
			summary.TotalPortfolioValue += position.CurrentValue
			summary.TotalUnrealizedPL += position.UnrealizedPL
			continue
		}

		// Closed: the sale is locked in. Tax was computed and stored at
		// sale time and is tracked separately, never re-netted here.
		closed := models.ClosedPositionValue{
			InvestmentID: inv.ID,
			ItemID:       inv.ItemID,
			ItemName:     inv.ItemName,
			Quantity:     inv.Quantity,
			RealizedPL:   (*inv.SellPrice - inv.PurchasePrice) * inv.Quantity,
		}
		if inv.TaxPaid != nil {
			closed.TaxPaid = *inv.TaxPaid
		}
		summary.ClosedPositions = append(summary.ClosedPositions, closed)
		summary.TotalRealizedPL += closed.RealizedPL
		summary.TotalTaxPaid += closed.TaxPaid
	}

	return summary
}
