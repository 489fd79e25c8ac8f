package services

import (
	"errors"
	"time"

	"github.com/username/runefolio/backend/src/models"
)

// Cache lifetimes for the per-user summary report cache.
const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// Define common service errors
var (
	ErrCatalogUnavailable = errors.New("item catalog fetch failed")
	ErrPricesUnavailable  = errors.New("latest prices fetch failed")
	ErrItemNotFound       = errors.New("item not found in catalog")
)

// PriceService is the client contract for the public read-only exchange
// price API. The catalog is loaded once and memoized; latest prices and
// series are point-in-time snapshots with short cache lifetimes.
type PriceService interface {
	// FetchAllItems returns the full item catalog. Fails fast on network
	// error; there is no partial catalog.
	FetchAllItems() ([]models.Item, error)
	// GetItem resolves one catalog entry by ID.
	GetItem(itemID int) (*models.Item, error)
	// FetchLatestPrices returns the most recent observed trade prices for
	// every item, keyed by item ID.
	FetchLatestPrices() (map[int]models.LatestPrice, error)
	// FetchTimeseries returns one item's historical series, ascending by
	// timestamp, at the given granularity. May fail per item.
	FetchTimeseries(itemID int, granularity models.Granularity) ([]models.TimeseriesPoint, error)
	// FetchTimeseriesBatch fans out FetchTimeseries over itemIDs and
	// returns a per-item outcome. Partial success is normal: failed items
	// carry their error, and no failure aborts the batch.
	FetchTimeseriesBatch(itemIDs []int, granularity models.Granularity) map[int]models.SeriesOutcome
}

// PortfolioService owns the user-facing investment computations: buy and
// sell bookkeeping, the valuation summary, and the historical value curve.
type PortfolioService interface {
	GetSummary(userID int64) (*models.PortfolioSummary, error)
	GetHistory(userID int64, window models.Lookback) ([]models.HistoryPoint, error)
	// RecordSale closes an open investment, computing the transaction tax
	// at sale time. The stored tax is never recomputed afterwards.
	RecordSale(userID, investmentID int64, unitSellPrice int64, sellDate time.Time) (taxPaid int64, err error)
	// InvalidateUserCache drops the cached summary after any mutation of
	// the user's records.
	InvalidateUserCache(userID int64)
}
