package model

import "time"

type User struct {
	ID             string    `json:"id"`
	PlatformUserID string    `json:"platform_user_id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	TokenCipher    []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
