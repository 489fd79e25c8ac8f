package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/models"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

type WatchlistHandler struct {
	priceService services.PriceService
}

func NewWatchlistHandler(priceService services.PriceService) *WatchlistHandler {
	return &WatchlistHandler{priceService: priceService}
}

// watchlistItemResponse is a watchlist row enriched with catalog metadata
// and the latest price snapshot.
type watchlistItemResponse struct {
	ItemID   int                 `json:"item_id"`
	ItemName string              `json:"item_name"`
	Icon     string              `json:"icon"`
	Latest   *models.LatestPrice `json:"latest"`
}

func itemIDFromURL(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "itemID"))
}

func (h *WatchlistHandler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entries, err := model.GetWatchlistByUser(database.DB, userID)
	if err != nil {
		ctxLogger.Error("ListWatchlist: query failed", "error", err)
		utils.SendJSONError(w, "Failed to load watchlist", http.StatusInternalServerError)
		return
	}

	// Price and catalog enrichment is best-effort: the watchlist itself
	// still renders when the exchange API is unreachable.
	latest, latestErr := h.priceService.FetchLatestPrices()
	if latestErr != nil {
		ctxLogger.Warn("ListWatchlist: latest prices unavailable", "error", latestErr)
	}

	response := make([]watchlistItemResponse, 0, len(entries))
	for _, e := range entries {
		row := watchlistItemResponse{ItemID: e.ItemID}
		if item, err := h.priceService.GetItem(e.ItemID); err == nil {
			row.ItemName = item.Name
			row.Icon = utils.IconDataURL(item.Icon)
		}
		if latestErr == nil {
			if price, ok := latest[e.ItemID]; ok {
				p := price
				row.Latest = &p
			}
		}
		response = append(response, row)
	}

	utils.SendJSON(w, response)
}

func (h *WatchlistHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		ItemID int `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID <= 0 {
		utils.SendJSONError(w, "item_id must be positive", http.StatusBadRequest)
		return
	}

	if err := model.AddWatchlistEntry(database.DB, userID, req.ItemID); err != nil {
		ctxLogger.Error("AddToWatchlist: insert failed", "itemID", req.ItemID, "error", err)
		utils.SendJSONError(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Item added to watchlist"})
}

func (h *WatchlistHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	itemID, err := itemIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	err = model.RemoveWatchlistEntry(database.DB, userID, itemID)
	if errors.Is(err, model.ErrNotFound) {
		utils.SendJSONError(w, "Item is not on the watchlist", http.StatusNotFound)
		return
	}
	if err != nil {
		ctxLogger.Error("RemoveFromWatchlist: delete failed", "itemID", itemID, "error", err)
		utils.SendJSONError(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{"message": "Item removed from watchlist"})
}

// WatchlistPrices returns a short recent price series per watched item,
// used for the dashboard sparklines. Items whose series fetch failed are
// reported with an empty series rather than failing the whole response.
func (h *WatchlistHandler) WatchlistPrices(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entries, err := model.GetWatchlistByUser(database.DB, userID)
	if err != nil {
		ctxLogger.Error("WatchlistPrices: query failed", "error", err)
		utils.SendJSONError(w, "Failed to load watchlist", http.StatusInternalServerError)
		return
	}

	itemIDs := make([]int, 0, len(entries))
	for _, e := range entries {
		itemIDs = append(itemIDs, e.ItemID)
	}

	outcomes := h.priceService.FetchTimeseriesBatch(itemIDs, models.GranularityMedium)

	type sparkline struct {
		ItemID int                      `json:"item_id"`
		Points []models.TimeseriesPoint `json:"points"`
	}
	response := make([]sparkline, 0, len(itemIDs))
	for _, id := range itemIDs {
		line := sparkline{ItemID: id, Points: []models.TimeseriesPoint{}}
		if outcome, ok := outcomes[id]; ok && !outcome.Failed() {
			line.Points = outcome.Points
		}
		response = append(response, line)
	}

	utils.SendJSON(w, response)
}
