package services

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/models"
	"golang.org/x/net/publicsuffix"
)

// --- API Response Structs ---

type latestPricesResponse struct {
	Data map[string]models.LatestPrice `json:"data"`
}

type timeseriesResponse struct {
	Data []models.TimeseriesPoint `json:"data"`
}

// --- Service Implementation ---

const (
	catalogCacheKey = "catalog"
	latestCacheKey  = "latest"
)

type priceServiceImpl struct {
	client *resty.Client
	store  *cache.Cache

	mu    sync.Mutex
	index map[int]models.Item // catalog indexed by ID, built on first load
}

func NewPriceService() PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	client := resty.New().
		SetBaseURL(config.Cfg.PricesAPIBaseURL).
		SetHeader("User-Agent", config.Cfg.PricesUserAgent).
		SetTimeout(config.Cfg.PricesHTTPTimeout)
	if jar != nil {
		client.SetCookieJar(jar)
	}

	return &priceServiceImpl{
		client: client,
		store:  cache.New(DefaultCacheExpiration, CacheCleanupInterval),
	}
}

func (s *priceServiceImpl) FetchAllItems() ([]models.Item, error) {
	if cached, found := s.store.Get(catalogCacheKey); found {
		return cached.([]models.Item), nil
	}

	var items []models.Item
	resp, err := s.client.R().
		SetResult(&items).
		Get("/mapping")
	if err != nil {
		logger.L.Error("Catalog fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		logger.L.Error("Catalog fetch returned non-OK status", "status", resp.StatusCode())
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode())
	}

	s.store.Set(catalogCacheKey, items, config.Cfg.CatalogCacheTTL)

	index := make(map[int]models.Item, len(items))
	for _, item := range items {
		index[item.ID] = item
	}
	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	logger.L.Info("Item catalog loaded", "items", len(items))
	return items, nil
}

func (s *priceServiceImpl) GetItem(itemID int) (*models.Item, error) {
	s.mu.Lock()
	index := s.index
	s.mu.Unlock()

	if index == nil {
		if _, err := s.FetchAllItems(); err != nil {
			return nil, err
		}
		s.mu.Lock()
		index = s.index
		s.mu.Unlock()
	}

	item, ok := index[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

func (s *priceServiceImpl) FetchLatestPrices() (map[int]models.LatestPrice, error) {
	if cached, found := s.store.Get(latestCacheKey); found {
		return cached.(map[int]models.LatestPrice), nil
	}

	var payload latestPricesResponse
	resp, err := s.client.R().
		SetResult(&payload).
		Get("/latest")
	if err != nil {
		logger.L.Error("Latest prices fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPricesUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		logger.L.Error("Latest prices fetch returned non-OK status", "status", resp.StatusCode())
		return nil, fmt.Errorf("%w: status %d", ErrPricesUnavailable, resp.StatusCode())
	}

	// The API keys the price map by item ID as a string.
	prices := make(map[int]models.LatestPrice, len(payload.Data))
	for idStr, price := range payload.Data {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			logger.L.Warn("Skipping non-numeric item ID in latest prices", "id", idStr)
			continue
		}
		prices[id] = price
	}

	s.store.Set(latestCacheKey, prices, config.Cfg.LatestCacheTTL)
	return prices, nil
}

func (s *priceServiceImpl) FetchTimeseries(itemID int, granularity models.Granularity) ([]models.TimeseriesPoint, error) {
	cacheKey := fmt.Sprintf("series:%d:%s", itemID, granularity)
	if cached, found := s.store.Get(cacheKey); found {
		return cached.([]models.TimeseriesPoint), nil
	}

	var payload timeseriesResponse
	resp, err := s.client.R().
		SetQueryParam("timestep", string(granularity)).
		SetQueryParam("id", strconv.Itoa(itemID)).
		SetResult(&payload).
		Get("/timeseries")
	if err != nil {
		return nil, fmt.Errorf("timeseries fetch for item %d failed: %w", itemID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("timeseries fetch for item %d returned status %d", itemID, resp.StatusCode())
	}

	points := payload.Data
	// The API already returns ascending series; sorting is cheap and the
	// history builder depends on the ordering.
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	s.store.Set(cacheKey, points, config.Cfg.SeriesCacheTTL)
	return points, nil
}

// FetchTimeseriesBatch fetches each item's series concurrently and
// collects a per-item outcome. A failed item carries its error; the batch
// itself never fails.
func (s *priceServiceImpl) FetchTimeseriesBatch(itemIDs []int, granularity models.Granularity) map[int]models.SeriesOutcome {
	outcomes := make(map[int]models.SeriesOutcome, len(itemIDs))
	if len(itemIDs) == 0 {
		return outcomes
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, itemID := range itemIDs {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			points, err := s.FetchTimeseries(id, granularity)
			if err != nil {
				logger.L.Warn("Timeseries fetch failed, degrading item to fallback", "itemID", id, "error", err)
			}
			mu.Lock()
			outcomes[id] = models.SeriesOutcome{ItemID: id, Points: points, Err: err}
			mu.Unlock()
		}(itemID)
	}
	wg.Wait()
	return outcomes
}
