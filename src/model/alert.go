package model

import (
	"database/sql"
	"time"
)

// Alert conditions. An alert fires when the latest instant-buy price
// crosses the target in the given direction; evaluation happens in the
// service layer, this package only stores the rules.
const (
	AlertConditionAbove = "above"
	AlertConditionBelow = "below"
)

type PriceAlert struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ItemID      int       `json:"item_id"`
	TargetPrice int64     `json:"target_price"`
	Condition   string    `json:"condition"`
	CreatedAt   time.Time `json:"created_at"`
}

func GetAlertsByUser(db *sql.DB, userID int64) ([]PriceAlert, error) {
	rows, err := db.Query(`SELECT id, user_id, item_id, target_price, condition, created_at
		FROM price_alerts WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []PriceAlert
	for rows.Next() {
		var a PriceAlert
		if err := rows.Scan(&a.ID, &a.UserID, &a.ItemID, &a.TargetPrice, &a.Condition, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// UpsertAlert sets the alert for (user, item). One alert per item: a newer
// alert replaces the older one.
func UpsertAlert(db *sql.DB, a *PriceAlert) error {
	_, err := db.Exec(`
		INSERT INTO price_alerts (user_id, item_id, target_price, condition)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET
			target_price = excluded.target_price,
			condition = excluded.condition,
			created_at = CURRENT_TIMESTAMP`,
		a.UserID, a.ItemID, a.TargetPrice, a.Condition)
	return err
}

func DeleteAlert(db *sql.DB, userID int64, itemID int) error {
	res, err := db.Exec(`DELETE FROM price_alerts WHERE user_id = ? AND item_id = ?`, userID, itemID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
