package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/metrics"
)

var (
	// ErrTokenNotFound indicates that no outstanding pair matches the supplied token.
	ErrTokenNotFound = errors.New("token: not found")
	// ErrTokenInvalid is returned when a refresh token fails its signature or expiry check.
	ErrTokenInvalid = errors.New("token: invalid")
)

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenConfig describes tunable behaviour for the TokenService.
type TokenConfig struct {
	Clock func() time.Time
}

// TokenService manages the set of outstanding token pairs per user. Access
// tokens are stateless; the stored rows exist so refresh and logout can
// revoke a pair, and every mutation is a single statement keyed by token
// value.
type TokenService struct {
	db  *gorm.DB
	jwt *JWTService
	now func() time.Time
}

// NewTokenService constructs a token manager backed by the provided database and JWT service.
func NewTokenService(db *gorm.DB, jwtService *JWTService, cfg TokenConfig) (*TokenService, error) {
	if db == nil {
		return nil, errors.New("token service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("token service: jwt service is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &TokenService{db: db, jwt: jwtService, now: clock}, nil
}

// Issue mints a fresh access/refresh pair for the user and records it.
func (s *TokenService) Issue(ctx context.Context, userID string) (TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("token service: generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("token service: generate refresh token: %w", err)
	}

	record := &models.AuthToken{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("token service: create token record: %w", err)
	}

	metrics.ActiveTokens.Inc()

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate exchanges a refresh token for a new pair. Refresh tokens are single
// use: the row matched by the old token is rewritten in one conditional
// update, so of two concurrent calls with the same token exactly one
// succeeds and the other sees ErrTokenNotFound.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	if refreshToken == "" {
		return TokenPair{}, "", ErrTokenInvalid
	}

	if err := s.jwt.ValidateRefreshToken(refreshToken); err != nil {
		return TokenPair{}, "", ErrTokenInvalid
	}

	var record models.AuthToken
	err := s.db.WithContext(ctx).Take(&record, "refresh_token = ?", refreshToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, "", ErrTokenNotFound
	}
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("token service: find token record: %w", err)
	}

	newAccess, err := s.jwt.GenerateAccessToken(record.UserID)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("token service: generate access token: %w", err)
	}
	newRefresh, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("token service: generate refresh token: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.AuthToken{}).
		Where("refresh_token = ?", refreshToken).
		Updates(map[string]any{
			"access_token":  newAccess,
			"refresh_token": newRefresh,
			"created_at":    s.now(),
		})
	if result.Error != nil {
		return TokenPair{}, "", fmt.Errorf("token service: rotate token record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// A concurrent rotation already spent this token.
		return TokenPair{}, "", ErrTokenNotFound
	}

	return TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, record.UserID, nil
}

// Revoke removes the pair whose access token matches. Revoking an
// already-absent token is not an error.
func (s *TokenService) Revoke(ctx context.Context, userID, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND access_token = ?", userID, accessToken).
		Delete(&models.AuthToken{})
	if result.Error != nil {
		return fmt.Errorf("token service: revoke token record: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveTokens.Sub(float64(result.RowsAffected))
	}

	return nil
}

// RevokeAll removes every outstanding pair belonging to a user.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.AuthToken{})
	if result.Error != nil {
		return fmt.Errorf("token service: revoke user tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveTokens.Sub(float64(result.RowsAffected))
	}

	return nil
}

// CleanupExpired deletes pairs whose refresh token lifetime has elapsed.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := s.now().Add(-s.jwt.RefreshTokenTTL())

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuthToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("token service: cleanup expired tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveTokens.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}
