package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/crypto"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/metrics"
)

// DefaultOTPTTL is the fallback lifetime of a one-time code.
const DefaultOTPTTL = 10 * time.Minute

// otpExpiryLeeway tolerates small clock differences when checking expiry.
const otpExpiryLeeway = 5 * time.Second

// ErrOTPUserNotFound indicates the target identity does not exist or is deactivated.
var ErrOTPUserNotFound = errors.New("otp: user not found")

// OTPConfig describes tunable behaviour for the OTPService.
type OTPConfig struct {
	TTL   time.Duration
	Clock func() time.Time
}

// OTPService issues and consumes the purpose-tagged one-time codes attached
// to identities. A user holds at most one live code; issuing overwrites any
// prior code and consuming clears it, each as a single conditional update so
// concurrent requests can never both succeed.
type OTPService struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewOTPService constructs an OTP issuer backed by the provided database.
func NewOTPService(db *gorm.DB, cfg OTPConfig) (*OTPService, error) {
	if db == nil {
		return nil, errors.New("otp service: db is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &OTPService{db: db, ttl: ttl, now: clock}, nil
}

// TTLMinutes reports the code lifetime in whole minutes for email copy.
func (s *OTPService) TTLMinutes() int {
	minutes := int(s.ttl / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Issue generates a fresh six digit code for the user and stores it together
// with its purpose and expiry, replacing any previously live code.
func (s *OTPService) Issue(ctx context.Context, userID string, purpose models.OTPPurpose) (string, error) {
	return s.IssueWith(ctx, userID, purpose, nil)
}

// IssueWith behaves like Issue but applies additional column updates in the
// same statement, so a flow can bind extra state (e.g. a pending email) to
// the code atomically.
func (s *OTPService) IssueWith(ctx context.Context, userID string, purpose models.OTPPurpose, extra map[string]any) (string, error) {
	code, err := crypto.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("otp service: generate code: %w", err)
	}

	updates := map[string]any{
		"otp_code":       code,
		"otp_purpose":    purpose,
		"otp_expires_at": s.now().Add(s.ttl),
	}
	for column, value := range extra {
		updates[column] = value
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Updates(updates)
	if result.Error != nil {
		return "", fmt.Errorf("otp service: store code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrOTPUserNotFound
	}

	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()

	return code, nil
}

// Consume validates the supplied code against the stored one and, when it
// matches, clears it and applies the transition columns in the same
// statement. Consumption is never a standalone side effect: the state change
// the code authorises lands in the same update, and of two racing calls only
// one can observe an affected row.
func (s *OTPService) Consume(ctx context.Context, userID string, purpose models.OTPPurpose, code string, transition map[string]any) (bool, error) {
	if code == "" {
		return false, nil
	}

	updates := map[string]any{
		"otp_code":       "",
		"otp_purpose":    "",
		"otp_expires_at": nil,
	}
	for column, value := range transition {
		updates[column] = value
	}

	cutoff := s.now().Add(-otpExpiryLeeway)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_active = ? AND otp_code = ? AND otp_purpose = ? AND otp_expires_at >= ?",
			userID, true, code, purpose, cutoff).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("otp service: consume code: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}
