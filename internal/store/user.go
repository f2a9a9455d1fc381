package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mveldt/clipnotes/internal/model"
)

type UserStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserStore(db *sql.DB, dialect Dialect) *UserStore {
	return &UserStore{db: db, dialect: dialect}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var cipher []byte
	err := scanner.Scan(&u.ID, &u.PlatformUserID, &u.Email, &u.DisplayName, &cipher, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.TokenCipher = cipher
	return &u, nil
}

const userCols = `id, platform_user_id, email, display_name, token_cipher, created_at, updated_at`

func (s *UserStore) Create(platformUserID, email, displayName string) (*model.User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		s.dialect.Rebind(`INSERT INTO users (`+userCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, platformUserID, email, displayName, []byte(nil), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(s.dialect.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByPlatformID(platformUserID string) (*model.User, error) {
	row := s.db.QueryRow(
		s.dialect.Rebind(`SELECT `+userCols+` FROM users WHERE platform_user_id = ?`),
		platformUserID,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by platform id: %w", err)
	}
	return u, nil
}

// UpdateProfile refreshes the identity fields reported by the platform.
func (s *UserStore) UpdateProfile(id, email, displayName string) (*model.User, error) {
	_, err := s.db.Exec(
		s.dialect.Rebind(`UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?`),
		email, displayName, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

// SetTokenCipher stores the encrypted platform access token for the user.
func (s *UserStore) SetTokenCipher(id string, cipher []byte) error {
	_, err := s.db.Exec(
		s.dialect.Rebind(`UPDATE users SET token_cipher = ?, updated_at = ? WHERE id = ?`),
		cipher, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set token cipher: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id string) error {
	_, err := s.db.Exec(s.dialect.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
