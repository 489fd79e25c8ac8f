package model

import (
	"database/sql"
	"time"
)

type WatchlistEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemID    int       `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GetWatchlistByUser returns the user's watched item IDs, oldest first.
func GetWatchlistByUser(db *sql.DB, userID int64) ([]WatchlistEntry, error) {
	rows, err := db.Query(`SELECT id, user_id, item_id, created_at FROM watchlist
		WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddWatchlistEntry inserts the (user, item) pair. Re-adding an already
// watched item is a no-op thanks to the unique constraint.
func AddWatchlistEntry(db *sql.DB, userID int64, itemID int) error {
	_, err := db.Exec(`INSERT INTO watchlist (user_id, item_id) VALUES (?, ?)
		ON CONFLICT(user_id, item_id) DO NOTHING`, userID, itemID)
	return err
}

func RemoveWatchlistEntry(db *sql.DB, userID int64, itemID int) error {
	res, err := db.Exec(`DELETE FROM watchlist WHERE user_id = ? AND item_id = ?`, userID, itemID)
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
