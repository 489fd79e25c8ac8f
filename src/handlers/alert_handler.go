package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/processors"
	"github.com/username/runefolio/backend/src/security/validation"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

type AlertHandler struct {
	priceService services.PriceService
}

func NewAlertHandler(priceService services.PriceService) *AlertHandler {
	return &AlertHandler{priceService: priceService}
}

// alertResponse is a stored alert plus its evaluation against the latest
// instant-buy price. Triggered is nil when the price is unknown.
type alertResponse struct {
	model.PriceAlert
	CurrentPrice *int64 `json:"current_price"`
	Triggered    *bool  `json:"triggered"`
}

func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	alerts, err := model.GetAlertsByUser(database.DB, userID)
	if err != nil {
		ctxLogger.Error("ListAlerts: query failed", "error", err)
		utils.SendJSONError(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}

	latest, latestErr := h.priceService.FetchLatestPrices()
	if latestErr != nil {
		ctxLogger.Warn("ListAlerts: latest prices unavailable", "error", latestErr)
	}

	response := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		row := alertResponse{PriceAlert: a}
		if latestErr == nil {
			if price, ok := latest[a.ItemID]; ok && price.High != nil {
				current := *price.High
				triggered := false
				switch a.Condition {
				case model.AlertConditionAbove:
					triggered = current >= a.TargetPrice
				case model.AlertConditionBelow:
					triggered = current <= a.TargetPrice
				}
				row.CurrentPrice = &current
				row.Triggered = &triggered
			}
		}
		response = append(response, row)
	}

	utils.SendJSON(w, response)
}

func (h *AlertHandler) UpsertAlert(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		ItemID      int    `json:"item_id"`
		TargetPrice string `json:"target_price"`
		Condition   string `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.ItemID <= 0 {
		utils.SendJSONError(w, "item_id must be positive", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateAlertCondition(req.Condition); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	targetPrice, ok := processors.ParsePrice(req.TargetPrice)
	if !ok {
		utils.SendJSONError(w, "Invalid target price", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositive(targetPrice, "target_price"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	alert := &model.PriceAlert{
		UserID:      userID,
		ItemID:      req.ItemID,
		TargetPrice: targetPrice,
		Condition:   req.Condition,
	}
	if err := model.UpsertAlert(database.DB, alert); err != nil {
		ctxLogger.Error("UpsertAlert: upsert failed", "itemID", req.ItemID, "error", err)
		utils.SendJSONError(w, "Failed to save alert", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{"message": "Alert saved"})
}

func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
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

	err = model.DeleteAlert(database.DB, userID, itemID)
	if errors.Is(err, model.ErrNotFound) {
		utils.SendJSONError(w, "Alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		ctxLogger.Error("DeleteAlert: delete failed", "itemID", itemID, "error", err)
		utils.SendJSONError(w, "Failed to delete alert", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{"message": "Alert deleted"})
}
