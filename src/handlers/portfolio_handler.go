package handlers

import (
	"net/http"

	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/models"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

type PortfolioHandler struct {
	portfolioService services.PortfolioService
}

func NewPortfolioHandler(portfolioService services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// GetSummary returns the live valuation of the user's portfolio: every
// open position marked to the latest price plus realized totals for
// closed ones.
func (h *PortfolioHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	summary, err := h.portfolioService.GetSummary(userID)
	if err != nil {
		ctxLogger.Error("GetSummary: valuation failed", "error", err)
		utils.SendJSONError(w, "Price data is currently unavailable", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, summary)
}

// GetHistory returns the daily value series of the user's open positions
// over the requested lookback window (1m, 3m, 1y or all).
func (h *PortfolioHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	window, ok := models.ParseLookback(r.URL.Query().Get("window"))
	if !ok {
		utils.SendJSONError(w, "Invalid window, expected 1m, 3m, 1y or all", http.StatusBadRequest)
		return
	}

	history, err := h.portfolioService.GetHistory(userID, window)
	if err != nil {
		ctxLogger.Error("GetHistory: history build failed", "window", string(window), "error", err)
		utils.SendJSONError(w, "Failed to build portfolio history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []models.HistoryPoint{}
	}

	utils.SendJSON(w, history)
}
