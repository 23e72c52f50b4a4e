package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthToken is one outstanding access/refresh pair for a user. Rows are keyed
// by token value: rotation rewrites the row matched by its refresh token and
// logout deletes the row matched by its access token, so concurrent mutations
// never read-modify-write a shared list.
type AuthToken struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"-"`
	AccessToken  string    `gorm:"uniqueIndex;not null" json:"-"`
	RefreshToken string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t *AuthToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
