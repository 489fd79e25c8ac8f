package model

import (
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	LoginCount  int       `json:"login_count"`
	LastLoginAt NullTime  `json:"last_login_at"`
	LastLoginIP string    `json:"last_login_ip"`
	TotpSecret  string    `json:"-"`
	TotpEnabled bool      `json:"totp_enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsAdmin     bool      `json:"is_admin"`
}

// NullTime is an alias for sql.NullTime for better JSON handling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

func (u *User) CreateUser(db *sql.DB) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
	INSERT INTO users (username, email, password, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Username, u.Email, u.Password, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var lastLoginIP, totpSecret sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Password,
		&user.LoginCount, &lastLoginAt, &lastLoginIP,
		&totpSecret, &user.TotpEnabled,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = NullTime(lastLoginAt)
	user.LastLoginIP = lastLoginIP.String
	user.TotpSecret = totpSecret.String
	return &user, nil
}

const userColumns = `id, username, email, password, login_count, last_login_at, last_login_ip,
	totp_secret, totp_enabled, created_at, updated_at`

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateUserTotpSecret stores a pending TOTP secret for the user. The
// secret only becomes active once EnableUserTotp is called after a
// successful code validation.
func UpdateUserTotpSecret(db *sql.DB, userID int64, secret string) error {
	_, err := db.Exec(`UPDATE users SET totp_secret = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, secret, userID)
	return err
}

// UpdateUserPassword replaces the stored bcrypt hash. Session revocation
// is the caller's job.
func UpdateUserPassword(db *sql.DB, userID int64, hashedPassword string) error {
	_, err := db.Exec(`UPDATE users SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hashedPassword, userID)
	return err
}

// UpdateUserLoginInfo bumps the login counter and records when and from
// where the user last signed in.
func UpdateUserLoginInfo(db *sql.DB, userID int64, clientIP string) error {
	_, err := db.Exec(`UPDATE users
		SET login_count = login_count + 1, last_login_at = ?, last_login_ip = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, time.Now(), clientIP, userID)
	return err
}

func EnableUserTotp(db *sql.DB, userID int64) error {
	_, err := db.Exec(`UPDATE users SET totp_enabled = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

// DeleteUser removes the user row; sessions, investments, watchlist
// entries and alerts go with it through ON DELETE CASCADE.
func DeleteUser(db *sql.DB, userID int64) error {
	_, err := db.Exec(`DELETE FROM users WHERE id = ?`, userID)
	return err
}
