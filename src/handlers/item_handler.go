package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/models"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

type ItemHandler struct {
	priceService services.PriceService
}

func NewItemHandler(priceService services.PriceService) *ItemHandler {
	return &ItemHandler{priceService: priceService}
}

// itemResponse augments a catalog item with resolved image URLs so the
// frontend never has to know the wiki's naming rules.
type itemResponse struct {
	models.Item
	IconDataURL string `json:"icon_data_url"`
	ImageURL    string `json:"image_url"`
}

func toItemResponse(item models.Item) itemResponse {
	return itemResponse{
		Item:        item,
		IconDataURL: utils.IconDataURL(item.Icon),
		ImageURL:    utils.HighResImageURL(item.Name),
	}
}

// ListItems returns the item catalog, optionally filtered by a
// case-insensitive substring match on the name via ?q=.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	items, err := h.priceService.FetchAllItems()
	if err != nil {
		ctxLogger.Error("ListItems: catalog fetch failed", "error", err)
		utils.SendJSONError(w, "Item catalog is currently unavailable", http.StatusBadGateway)
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	response := make([]itemResponse, 0, len(items))
	for _, item := range items {
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		response = append(response, toItemResponse(item))
	}

	utils.SendJSON(w, response)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	itemID, err := itemIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	item, err := h.priceService.GetItem(itemID)
	if errors.Is(err, services.ErrItemNotFound) {
		utils.SendJSONError(w, "Item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		ctxLogger.Error("GetItem: catalog fetch failed", "itemID", itemID, "error", err)
		utils.SendJSONError(w, "Item catalog is currently unavailable", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, toItemResponse(*item))
}

// LatestPrices proxies the latest instant-buy/instant-sell snapshot.
func (h *ItemHandler) LatestPrices(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	latest, err := h.priceService.FetchLatestPrices()
	if err != nil {
		ctxLogger.Error("LatestPrices: fetch failed", "error", err)
		utils.SendJSONError(w, "Price data is currently unavailable", http.StatusBadGateway)
		return
	}

	// Keys are re-encoded as strings to match the upstream shape.
	response := make(map[string]models.LatestPrice, len(latest))
	for id, price := range latest {
		response[strconv.Itoa(id)] = price
	}

	utils.SendJSON(w, response)
}

// Timeseries proxies a single item's historical price series. The
// granularity defaults to 6h buckets when none is given.
func (h *ItemHandler) Timeseries(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	itemID, err := itemIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}
	granularity, ok := models.ParseGranularity(r.URL.Query().Get("granularity"))
	if !ok {
		utils.SendJSONError(w, "Invalid granularity, expected 5m, 1h or 6h", http.StatusBadRequest)
		return
	}

	points, err := h.priceService.FetchTimeseries(itemID, granularity)
	if err != nil {
		ctxLogger.Error("Timeseries: fetch failed", "itemID", itemID, "granularity", string(granularity), "error", err)
		utils.SendJSONError(w, "Price data is currently unavailable", http.StatusBadGateway)
		return
	}
	if points == nil {
		points = []models.TimeseriesPoint{}
	}

	utils.SendJSON(w, points)
}
