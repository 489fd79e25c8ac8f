package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/models"
	"github.com/username/runefolio/backend/src/processors"
)

type portfolioServiceImpl struct {
	priceService PriceService
	taxRegime    processors.TaxRegime
	reportCache  *cache.Cache
}

func NewPortfolioService(priceService PriceService, taxRegime processors.TaxRegime, reportCache *cache.Cache) PortfolioService {
	return &portfolioServiceImpl{
		priceService: priceService,
		taxRegime:    taxRegime,
		reportCache:  reportCache,
	}
}

func summaryCacheKey(userID int64) string {
	return fmt.Sprintf("summary:%d", userID)
}

func (s *portfolioServiceImpl) GetSummary(userID int64) (*models.PortfolioSummary, error) {
	cacheKey := summaryCacheKey(userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.PortfolioSummary), nil
	}

	investments, err := model.GetInvestmentsByUser(database.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("loading investments for user %d: %w", userID, err)
	}

	// The latest-price snapshot is part of the summary's bootstrap: a
	// failure here is fatal to the view, unlike per-item series fetches.
	latest, err := s.priceService.FetchLatestPrices()
	if err != nil {
		return nil, err
	}

	summary := processors.Valuate(investments, latest)
	s.reportCache.Set(cacheKey, &summary, cache.DefaultExpiration)
	return &summary, nil
}

func (s *portfolioServiceImpl) GetHistory(userID int64, window models.Lookback) ([]models.HistoryPoint, error) {
	investments, err := model.GetInvestmentsByUser(database.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("loading investments for user %d: %w", userID, err)
	}

	var open []model.Investment
	var earliestPurchase time.Time
	itemIDSet := make(map[int]bool)
	for _, inv := range investments {
		// The all-time window spans every record, open or closed.
		if earliestPurchase.IsZero() || inv.PurchaseDate.Before(earliestPurchase) {
			earliestPurchase = inv.PurchaseDate
		}
		if inv.IsOpen() {
			open = append(open, inv)
			itemIDSet[inv.ItemID] = true
		}
	}

	itemIDs := make([]int, 0, len(itemIDSet))
	for id := range itemIDSet {
		itemIDs = append(itemIDs, id)
	}

	// Per-item failures inside the batch degrade those items to their
	// purchase-price fallback; the curve itself always computes.
	outcomes := s.priceService.FetchTimeseriesBatch(itemIDs, models.GranularityCoarse)
	return processors.BuildHistory(open, outcomes, window, time.Now(), earliestPurchase), nil
}

func (s *portfolioServiceImpl) RecordSale(userID, investmentID int64, unitSellPrice int64, sellDate time.Time) (int64, error) {
	inv, err := model.GetInvestmentByID(database.DB, userID, investmentID)
	if err != nil {
		return 0, err
	}
	if !inv.IsOpen() {
		return 0, model.ErrAlreadyClosed
	}

	// Tax is computed once, at sale time, and stored with the record.
	taxPaid := s.taxRegime.Tax(inv.ItemName, unitSellPrice, inv.Quantity)

	if err := model.CloseInvestment(database.DB, userID, investmentID, unitSellPrice, sellDate, taxPaid); err != nil {
		return 0, err
	}

	s.InvalidateUserCache(userID)
	logger.L.Info("Investment closed", "userID", userID, "investmentID", investmentID,
		"sellPrice", unitSellPrice, "taxPaid", taxPaid)
	return taxPaid, nil
}

func (s *portfolioServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(summaryCacheKey(userID))
}
