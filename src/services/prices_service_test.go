package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/models"
)

func newTestPriceService(baseURL string) *priceServiceImpl {
	return &priceServiceImpl{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("User-Agent", "runefolio-test").
			SetTimeout(5 * time.Second),
		store: cache.New(time.Minute, time.Minute),
	}
}

func setupTestConfig(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{
		CatalogCacheTTL: time.Minute,
		LatestCacheTTL:  time.Minute,
		SeriesCacheTTL:  time.Minute,
	}
}

func TestFetchAllItemsAndGetItem(t *testing.T) {
	setupTestConfig(t)
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mapping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":4151,"name":"Abyssal whip","members":true,"limit":70,"value":120001,"highalch":72000},
			{"id":2,"name":"Cannonball","members":true,"limit":11000,"value":5,"highalch":3}]`))
	}))
	defer ts.Close()

	svc := newTestPriceService(ts.URL)

	items, err := svc.FetchAllItems()
	if err != nil {
		t.Fatalf("FetchAllItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	item, err := svc.GetItem(4151)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item.Name != "Abyssal whip" {
		t.Errorf("item name = %q", item.Name)
	}
	if _, err := svc.GetItem(99999); err == nil {
		t.Error("expected error for unknown item")
	}

	// Second call must come from cache.
	if _, err := svc.FetchAllItems(); err != nil {
		t.Fatalf("cached FetchAllItems: %v", err)
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (catalog memoized)", hits)
	}
}

func TestFetchAllItemsFailsFast(t *testing.T) {
	setupTestConfig(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	svc := newTestPriceService(ts.URL)
	if _, err := svc.FetchAllItems(); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestFetchLatestPricesNullsPreserved(t *testing.T) {
	setupTestConfig(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"4151":{"high":1766000,"highTime":1756700000,"low":1758000,"lowTime":1756699000},
			"21034":{"high":null,"highTime":null,"low":12,"lowTime":1756600000}}}`))
	}))
	defer ts.Close()

	svc := newTestPriceService(ts.URL)
	prices, err := svc.FetchLatestPrices()
	if err != nil {
		t.Fatalf("FetchLatestPrices: %v", err)
	}

	whip := prices[4151]
	if whip.High == nil || *whip.High != 1766000 {
		t.Errorf("whip high = %v, want 1766000", whip.High)
	}
	dust := prices[21034]
	if dust.High != nil {
		t.Errorf("null high coerced to %v, must stay nil", *dust.High)
	}
	if dust.Low == nil || *dust.Low != 12 {
		t.Errorf("dust low = %v, want 12", dust.Low)
	}
}

func TestFetchTimeseriesBatchPartialFailure(t *testing.T) {
	setupTestConfig(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "999" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"timestamp":1756680000,"avgHighPrice":100,"avgLowPrice":95,"highPriceVolume":10,"lowPriceVolume":12},
			{"timestamp":1756701600,"avgHighPrice":null,"avgLowPrice":null,"highPriceVolume":0,"lowPriceVolume":0}]}`))
	}))
	defer ts.Close()

	svc := newTestPriceService(ts.URL)
	outcomes := svc.FetchTimeseriesBatch([]int{10, 999}, models.GranularityCoarse)

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[10].Failed() {
		t.Errorf("item 10 should succeed: %v", outcomes[10].Err)
	}
	if len(outcomes[10].Points) != 2 {
		t.Errorf("item 10 points = %d, want 2", len(outcomes[10].Points))
	}
	if outcomes[10].Points[1].AvgHighPrice != nil {
		t.Error("gap bucket's null average must stay nil")
	}
	if !outcomes[999].Failed() {
		t.Error("item 999 should carry its failure")
	}
}
