package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/processors"
	"github.com/username/runefolio/backend/src/security/validation"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

type InvestmentHandler struct {
	priceService     services.PriceService
	portfolioService services.PortfolioService
}

func NewInvestmentHandler(priceService services.PriceService, portfolioService services.PortfolioService) *InvestmentHandler {
	return &InvestmentHandler{
		priceService:     priceService,
		portfolioService: portfolioService,
	}
}

// parsePriceField accepts either a plain integer or the exchange shorthand
// ("100k", "2.5m") for a price field.
func parsePriceField(raw string) (int64, bool) {
	return processors.ParsePrice(raw)
}

func parseDateField(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func investmentIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *InvestmentHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	investments, err := model.GetInvestmentsByUser(database.DB, userID)
	if err != nil {
		ctxLogger.Error("ListInvestments: query failed", "error", err)
		utils.SendJSONError(w, "Failed to load investments", http.StatusInternalServerError)
		return
	}
	if investments == nil {
		investments = []model.Investment{}
	}
	utils.SendJSON(w, investments)
}

func (h *InvestmentHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		ItemID        int    `json:"item_id"`
		ItemName      string `json:"item_name"`
		Quantity      int64  `json:"quantity"`
		PurchasePrice string `json:"purchase_price"`
		PurchaseDate  string `json:"purchase_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	req.ItemName = validation.SanitizeText(strings.TrimSpace(req.ItemName))
	if err := validation.ValidateStringNotEmpty(req.ItemName, "item_name"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(req.ItemName, validation.MaxItemNameLength, "item_name"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ItemID <= 0 {
		utils.SendJSONError(w, "item_id must be positive", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositive(req.Quantity, "quantity"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	purchasePrice, ok := parsePriceField(req.PurchasePrice)
	if !ok {
		utils.SendJSONError(w, "Invalid purchase price", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositive(purchasePrice, "purchase_price"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	purchaseDate, err := parseDateField(req.PurchaseDate)
	if err != nil {
		utils.SendJSONError(w, "Invalid purchase date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	// Canonicalize the item name from the catalog when possible; the
	// submitted name is kept as a fallback so trades can still be logged
	// while the mapping endpoint is down.
	if item, err := h.priceService.GetItem(req.ItemID); err == nil {
		req.ItemName = item.Name
	}

	inv := &model.Investment{
		UserID:        userID,
		ItemID:        req.ItemID,
		ItemName:      req.ItemName,
		Quantity:      req.Quantity,
		PurchasePrice: purchasePrice,
		PurchaseDate:  purchaseDate,
	}
	if err := model.CreateInvestment(database.DB, inv); err != nil {
		ctxLogger.Error("CreateInvestment: insert failed", "error", err)
		utils.SendJSONError(w, "Failed to create investment", http.StatusInternalServerError)
		return
	}
	h.portfolioService.InvalidateUserCache(userID)

	ctxLogger.Info("Investment created", "investmentID", inv.ID, "itemID", inv.ItemID, "quantity", inv.Quantity)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inv)
}

func (h *InvestmentHandler) SellInvestment(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	investmentID, err := investmentIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid investment ID", http.StatusBadRequest)
		return
	}

	var req struct {
		SellPrice string `json:"sell_price"`
		SellDate  string `json:"sell_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	sellPrice, ok := parsePriceField(req.SellPrice)
	if !ok {
		utils.SendJSONError(w, "Invalid sell price", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositive(sellPrice, "sell_price"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sellDate, err := parseDateField(req.SellDate)
	if err != nil {
		utils.SendJSONError(w, "Invalid sell date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	taxPaid, err := h.portfolioService.RecordSale(userID, investmentID, sellPrice, sellDate)
	switch {
	case errors.Is(err, model.ErrNotFound):
		utils.SendJSONError(w, "Investment not found", http.StatusNotFound)
		return
	case errors.Is(err, model.ErrAlreadyClosed):
		utils.SendJSONError(w, "Investment is already closed", http.StatusConflict)
		return
	case err != nil:
		ctxLogger.Error("SellInvestment: failed to record sale", "investmentID", investmentID, "error", err)
		utils.SendJSONError(w, "Failed to record sale", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]int64{"tax_paid": taxPaid})
}

func (h *InvestmentHandler) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	investmentID, err := investmentIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid investment ID", http.StatusBadRequest)
		return
	}

	err = model.DeleteInvestment(database.DB, userID, investmentID)
	if errors.Is(err, model.ErrNotFound) {
		utils.SendJSONError(w, "Investment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		ctxLogger.Error("DeleteInvestment: delete failed", "investmentID", investmentID, "error", err)
		utils.SendJSONError(w, "Failed to delete investment", http.StatusInternalServerError)
		return
	}
	h.portfolioService.InvalidateUserCache(userID)

	utils.SendJSON(w, map[string]string{"message": "Investment deleted"})
}

// DeleteAllInvestments wipes the user's whole trade log.
func (h *InvestmentHandler) DeleteAllInvestments(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	deleted, err := model.DeleteInvestmentsByUser(database.DB, userID)
	if err != nil {
		ctxLogger.Error("DeleteAllInvestments: delete failed", "error", err)
		utils.SendJSONError(w, "Failed to delete investments", http.StatusInternalServerError)
		return
	}
	h.portfolioService.InvalidateUserCache(userID)

	ctxLogger.Info("All investments deleted", "count", deleted)
	utils.SendJSON(w, map[string]int64{"deleted": deleted})
}
