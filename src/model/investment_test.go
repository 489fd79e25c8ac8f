package model

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		login_count INTEGER NOT NULL DEFAULT 0,
		last_login_at TIMESTAMP,
		last_login_ip TEXT,
		totp_secret TEXT,
		totp_enabled BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE investments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		purchase_price INTEGER NOT NULL CHECK (purchase_price > 0),
		purchase_date TIMESTAMP NOT NULL,
		sell_price INTEGER,
		sell_date TIMESTAMP,
		tax_paid INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func createTestInvestment(t *testing.T, db *sql.DB, userID int64) *Investment {
	t.Helper()
	inv := &Investment{
		UserID:        userID,
		ItemID:        4151,
		ItemName:      "Abyssal whip",
		Quantity:      10,
		PurchasePrice: 1_500_000,
		PurchaseDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := CreateInvestment(db, inv); err != nil {
		t.Fatalf("CreateInvestment failed: %v", err)
	}
	return inv
}

func TestCloseInvestmentExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	inv := createTestInvestment(t, db, 1)

	sellDate := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if err := CloseInvestment(db, 1, inv.ID, 1_600_000, sellDate, 320_000); err != nil {
		t.Fatalf("first CloseInvestment failed: %v", err)
	}

	closed, err := GetInvestmentByID(db, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID failed: %v", err)
	}
	if closed.IsOpen() {
		t.Error("investment is still open after close")
	}
	if closed.SellPrice == nil || *closed.SellPrice != 1_600_000 {
		t.Errorf("SellPrice = %v, want 1600000", closed.SellPrice)
	}
	if closed.SellDate == nil || !closed.SellDate.Equal(sellDate) {
		t.Errorf("SellDate = %v, want %v", closed.SellDate, sellDate)
	}
	if closed.TaxPaid == nil || *closed.TaxPaid != 320_000 {
		t.Errorf("TaxPaid = %v, want 320000", closed.TaxPaid)
	}

	// A second close must not alter the record.
	err = CloseInvestment(db, 1, inv.ID, 2_000_000, sellDate.AddDate(0, 0, 1), 400_000)
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second CloseInvestment error = %v, want ErrAlreadyClosed", err)
	}

	again, err := GetInvestmentByID(db, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID failed: %v", err)
	}
	if *again.SellPrice != 1_600_000 || *again.TaxPaid != 320_000 || !again.SellDate.Equal(sellDate) {
		t.Errorf("sell fields changed on rejected close: price=%d tax=%d date=%v",
			*again.SellPrice, *again.TaxPaid, again.SellDate)
	}
}

func TestCloseInvestmentOwnership(t *testing.T) {
	db := newTestDB(t)
	inv := createTestInvestment(t, db, 1)

	// Another user cannot close the record, and the attempt must not be
	// reported as "already closed".
	err := CloseInvestment(db, 2, inv.ID, 1_600_000, time.Now(), 320_000)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user CloseInvestment error = %v, want ErrNotFound", err)
	}

	still, err := GetInvestmentByID(db, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID failed: %v", err)
	}
	if !still.IsOpen() {
		t.Error("investment was closed by a different user")
	}
}

func TestCloseInvestmentMissing(t *testing.T) {
	db := newTestDB(t)

	err := CloseInvestment(db, 1, 999, 1_600_000, time.Now(), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CloseInvestment on missing record error = %v, want ErrNotFound", err)
	}
}

func TestInvestmentRoundTrip(t *testing.T) {
	db := newTestDB(t)

	open := createTestInvestment(t, db, 1)
	closedSrc := createTestInvestment(t, db, 1)
	sellDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if err := CloseInvestment(db, 1, closedSrc.ID, 900_000, sellDate, 180_000); err != nil {
		t.Fatalf("CloseInvestment failed: %v", err)
	}

	investments, err := GetInvestmentsByUser(db, 1)
	if err != nil {
		t.Fatalf("GetInvestmentsByUser failed: %v", err)
	}
	if len(investments) != 2 {
		t.Fatalf("got %d investments, want 2", len(investments))
	}

	byID := map[int64]Investment{}
	for _, inv := range investments {
		byID[inv.ID] = inv
	}
	got := byID[open.ID]
	if !got.IsOpen() || got.Quantity != 10 || got.PurchasePrice != 1_500_000 {
		t.Errorf("open record round-trip mismatch: %+v", got)
	}
	got = byID[closedSrc.ID]
	if got.IsOpen() || *got.SellPrice != 900_000 || *got.TaxPaid != 180_000 {
		t.Errorf("closed record round-trip mismatch: %+v", got)
	}
}
