package model

import (
	"database/sql"
	"errors"
	"time"
)

// ErrAlreadyClosed is returned when a sale is recorded against an
// investment whose sell fields are already set.
var ErrAlreadyClosed = errors.New("investment is already closed")

// ErrNotFound is returned when a record does not exist or does not
// belong to the requesting user.
var ErrNotFound = errors.New("investment not found")

// Investment is one buy (and optionally its matching sale) of an exchange
// item. A record is open if and only if SellPrice is nil; SellPrice,
// SellDate and TaxPaid are set together, exactly once, by CloseInvestment.
// Closed records are immutable apart from deletion.
type Investment struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ItemID        int        `json:"item_id"`
	ItemName      string     `json:"item_name"`
	Quantity      int64      `json:"quantity"`
	PurchasePrice int64      `json:"purchase_price"` // per unit
	PurchaseDate  time.Time  `json:"purchase_date"`
	SellPrice     *int64     `json:"sell_price"` // per unit
	SellDate      *time.Time `json:"sell_date"`
	TaxPaid       *int64     `json:"tax_paid"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsOpen reports whether the position has not been sold yet.
func (inv *Investment) IsOpen() bool {
	return inv.SellPrice == nil
}

func CreateInvestment(db *sql.DB, inv *Investment) error {
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	res, err := db.Exec(`
		INSERT INTO investments (user_id, item_id, item_name, quantity, purchase_price, purchase_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.ItemID, inv.ItemName, inv.Quantity, inv.PurchasePrice, inv.PurchaseDate,
		inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = id
	return nil
}

const investmentColumns = `id, user_id, item_id, item_name, quantity, purchase_price, purchase_date,
	sell_price, sell_date, tax_paid, created_at, updated_at`

func scanInvestment(scanner interface {
	Scan(dest ...interface{}) error
}) (*Investment, error) {
	var inv Investment
	var sellPrice, taxPaid sql.NullInt64
	var sellDate sql.NullTime

	err := scanner.Scan(
		&inv.ID, &inv.UserID, &inv.ItemID, &inv.ItemName, &inv.Quantity,
		&inv.PurchasePrice, &inv.PurchaseDate,
		&sellPrice, &sellDate, &taxPaid,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sellPrice.Valid {
		inv.SellPrice = &sellPrice.Int64
	}
	if sellDate.Valid {
		inv.SellDate = &sellDate.Time
	}
	if taxPaid.Valid {
		inv.TaxPaid = &taxPaid.Int64
	}
	return &inv, nil
}

// GetInvestmentsByUser lists all of a user's investment records, open and
// closed, ordered by purchase date descending.
func GetInvestmentsByUser(db *sql.DB, userID int64) ([]Investment, error) {
	rows, err := db.Query(`SELECT `+investmentColumns+` FROM investments
		WHERE user_id = ? ORDER BY purchase_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var investments []Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, *inv)
	}
	return investments, rows.Err()
}

func GetInvestmentByID(db *sql.DB, userID, investmentID int64) (*Investment, error) {
	row := db.QueryRow(`SELECT `+investmentColumns+` FROM investments
		WHERE id = ? AND user_id = ?`, investmentID, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

// CloseInvestment records the sale of an open position. The guard on
// sell_price IS NULL makes the open-to-closed transition happen at most
// once even under concurrent requests.
func CloseInvestment(db *sql.DB, userID, investmentID int64, sellPrice int64, sellDate time.Time, taxPaid int64) error {
	res, err := db.Exec(`
		UPDATE investments
		SET sell_price = ?, sell_date = ?, tax_paid = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND sell_price IS NULL`,
		sellPrice, sellDate, taxPaid, investmentID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish "not yours / missing" from "already closed".
		if _, err := GetInvestmentByID(db, userID, investmentID); err != nil {
			return err
		}
		return ErrAlreadyClosed
	}
	return nil
}

func DeleteInvestment(db *sql.DB, userID, investmentID int64) error {
	res, err := db.Exec(`DELETE FROM investments WHERE id = ? AND user_id = ?`, investmentID, userID)
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

// DeleteInvestmentsByUser removes every record the user owns and returns
// the number of deleted rows.
func DeleteInvestmentsByUser(db *sql.DB, userID int64) (int64, error) {
	res, err := db.Exec(`DELETE FROM investments WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
