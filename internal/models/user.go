package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role separates regular shoppers from staff accounts.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AuthProvider records which credential path created the account.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// OTPPurpose tags a one-time code with the transition it authorises, so a
// code issued for one flow can never be consumed by another.
type OTPPurpose string

const (
	OTPPurposeVerifyEmail   OTPPurpose = "verify_email"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
	OTPPurposeEmailChange   OTPPurpose = "email_change"
)

// User is the durable identity record. At most one one-time code is live per
// user; issuing a new one overwrites the previous code in a single update.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`

	Role          Role         `gorm:"default:user" json:"role"`
	AuthProvider  AuthProvider `gorm:"default:local" json:"-"`
	EmailVerified bool         `gorm:"default:false" json:"email_verified"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`

	// PendingEmail holds the requested address during an email change until
	// its ownership is proven.
	PendingEmail string `json:"-"`

	OTPCode      string     `json:"-"`
	OTPPurpose   OTPPurpose `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	Tokens []AuthToken `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasPasswordLogin reports whether the account carries a password the user
// chose, as opposed to the unusable placeholder set on federated accounts.
func (u *User) HasPasswordLogin() bool {
	return u.AuthProvider == ProviderLocal
}
