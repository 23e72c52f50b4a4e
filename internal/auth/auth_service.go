package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/crypto"
	appErrors "github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/logger"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/mail"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/metrics"
)

const emailDispatchTimeout = 15 * time.Second

// AuthConfig describes tunable behaviour for the AuthService.
type AuthConfig struct {
	Clock func() time.Time
}

// AuthService sequences the credential store, hasher, OTP issuer, token
// service and federation verifier into the account flows. It is stateless
// between requests; every guard failure comes back as a typed AppError and
// only infrastructure faults propagate as plain errors.
type AuthService struct {
	db     *gorm.DB
	otp    *OTPService
	tokens *TokenService
	google IdentityVerifier
	mailer mail.Mailer
	now    func() time.Time
	log    *zap.Logger
}

// NewAuthService constructs the orchestrator. The Google verifier and mailer
// are optional; flows that need an absent collaborator fail with a typed
// error or skip delivery respectively.
func NewAuthService(db *gorm.DB, otp *OTPService, tokens *TokenService, google IdentityVerifier, mailer mail.Mailer, cfg AuthConfig) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if otp == nil {
		return nil, errors.New("auth service: otp service is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &AuthService{
		db:     db,
		otp:    otp,
		tokens: tokens,
		google: google,
		mailer: mailer,
		now:    clock,
		log:    logger.WithModule("auth"),
	}, nil
}

// NormaliseEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput captures the details required to create a local account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates an unverified identity, hashes the password and dispatches
// a verification code to the supplied address.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := NormaliseEmail(input.Email)

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Password:     hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         models.RoleUser,
		AuthProvider: models.ProviderLocal,
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, appErrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	code, err := s.otp.Issue(ctx, user.ID, models.OTPPurposeVerifyEmail)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue verification code: %w", err)
	}
	s.dispatch(mail.VerificationMessage(user.Email, code, s.otp.TTLMinutes()))

	return user, nil
}

// VerifyEmail consumes a verification code and flips the identity to verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	ok, err := s.otp.Consume(ctx, user.ID, models.OTPPurposeVerifyEmail, code, map[string]any{
		"email_verified": true,
	})
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.ErrInvalidOrExpiredOTP
	}

	return nil
}

// ResendVerification reissues the registration code for a not yet verified
// identity.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return appErrors.NewBadRequest("email is already verified")
	}

	code, err := s.otp.Issue(ctx, user.ID, models.OTPPurposeVerifyEmail)
	if err != nil {
		return err
	}
	s.dispatch(mail.VerificationMessage(user.Email, code, s.otp.TTLMinutes()))

	return nil
}

// Login authenticates an email/password pair and mints a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the address is registered.
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrUnverifiedUser
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return user, pair, nil
}

// SendLoginOTP issues a one-time sign-in code for a verified identity.
func (s *AuthService) SendLoginOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.EmailVerified {
		return appErrors.ErrUnverifiedUser
	}

	code, err := s.otp.Issue(ctx, user.ID, models.OTPPurposeLogin)
	if err != nil {
		return err
	}
	s.dispatch(mail.LoginCodeMessage(user.Email, code, s.otp.TTLMinutes()))

	return nil
}

// LoginWithOTP consumes a sign-in code and mints a token pair.
func (s *AuthService) LoginWithOTP(ctx context.Context, email, code string) (*models.User, TokenPair, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("otp", "failure").Inc()
		return nil, TokenPair{}, err
	}
	if !user.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("otp", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrUnverifiedUser
	}

	ok, err := s.otp.Consume(ctx, user.ID, models.OTPPurposeLogin, code, nil)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !ok {
		metrics.AuthAttempts.WithLabelValues("otp", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrInvalidOrExpiredOTP
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("otp", "success").Inc()
	return user, pair, nil
}

// GoogleSignIn verifies a Google identity token, creates or reuses the
// matching identity and mints a token pair. An address already registered
// with a user-chosen password is never silently linked.
func (s *AuthService) GoogleSignIn(ctx context.Context, providerToken string) (*models.User, TokenPair, error) {
	if s.google == nil {
		return nil, TokenPair{}, appErrors.ErrInternalServer.WithInternal(errors.New("google sign-in is not configured"))
	}

	claims, err := s.google.Verify(ctx, providerToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrInvalidOrExpiredToken.WithInternal(err)
	}

	user, err := s.resolveFederatedIdentity(ctx, claims)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		return nil, TokenPair{}, err
	}

	if !user.EmailVerified {
		// The provider could not assert ownership of the address, so the
		// identity exists but may not obtain tokens until it is verified.
		code, issueErr := s.otp.Issue(ctx, user.ID, models.OTPPurposeVerifyEmail)
		if issueErr == nil {
			s.dispatch(mail.VerificationMessage(user.Email, code, s.otp.TTLMinutes()))
		}
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		return nil, TokenPair{}, appErrors.ErrUnverifiedUser
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("google", "success").Inc()
	return user, pair, nil
}

func (s *AuthService) resolveFederatedIdentity(ctx context.Context, claims *GoogleClaims) (*models.User, error) {
	email := NormaliseEmail(claims.Email)

	var user models.User
	err := s.db.WithContext(ctx).
		Take(&user, "email = ? AND is_active = ?", email, true).Error
	if err == nil {
		if user.HasPasswordLogin() {
			return nil, appErrors.ErrRequiresPasswordLogin
		}

		updates := map[string]any{}
		if !user.EmailVerified && claims.EmailVerified {
			updates["email_verified"] = true
			user.EmailVerified = true
		}
		if claims.Picture != "" && claims.Picture != user.Avatar {
			updates["avatar"] = claims.Picture
			user.Avatar = claims.Picture
		}
		if len(updates) > 0 {
			if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("auth service: update federated user: %w", err)
			}
		}

		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("auth service: find federated user: %w", err)
	}

	placeholder, err := crypto.UnusablePassword()
	if err != nil {
		return nil, fmt.Errorf("auth service: placeholder password: %w", err)
	}

	created := &models.User{
		Email:         email,
		Password:      placeholder,
		FirstName:     strings.TrimSpace(claims.GivenName),
		LastName:      strings.TrimSpace(claims.FamilyName),
		Avatar:        claims.Picture,
		Role:          models.RoleUser,
		AuthProvider:  models.ProviderGoogle,
		EmailVerified: claims.EmailVerified,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent sign-in for the same address.
			return nil, appErrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("auth service: create federated user: %w", err)
	}

	return created, nil
}

// ForgotPassword issues a password reset code for an account with a password
// credential.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.HasPasswordLogin() {
		return appErrors.ErrFederatedAccount
	}

	code, err := s.otp.Issue(ctx, user.ID, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}
	s.dispatch(mail.PasswordResetMessage(user.Email, code, s.otp.TTLMinutes()))

	return nil
}

// ResetPassword consumes a reset code and replaces the password hash in the
// same update.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	ok, err := s.otp.Consume(ctx, user.ID, models.OTPPurposePasswordReset, code, map[string]any{
		"password": hashed,
	})
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.ErrInvalidOrExpiredOTP
	}

	return nil
}

// Refresh rotates a refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	pair, userID, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenInvalid) {
			metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
			return TokenPair{}, appErrors.ErrInvalidOrExpiredToken
		}
		return TokenPair{}, err
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		// Deactivated since the pair was issued; drop the rotated pair.
		_ = s.tokens.Revoke(ctx, userID, pair.AccessToken)
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return TokenPair{}, appErrors.ErrInvalidOrExpiredToken
	}

	metrics.AuthAttempts.WithLabelValues("refresh", "success").Inc()
	return pair, nil
}

// Logout removes the pair matching the presented access token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID, accessToken string) error {
	return s.tokens.Revoke(ctx, userID, accessToken)
}

// GetUser loads an active identity by id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ? AND is_active = ?", userID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}
	return &user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Password, currentPassword) {
		return appErrors.ErrInvalidCredentials
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("auth service: update password: %w", err)
	}

	return nil
}

// RequestEmailChange binds a pending address to the account and sends a
// confirmation code to that new address, proving its ownership before the
// switch lands.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	email := NormaliseEmail(newEmail)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return fmt.Errorf("auth service: check email availability: %w", err)
	}
	if count > 0 {
		return appErrors.ErrEmailAlreadyRegistered
	}

	code, err := s.otp.IssueWith(ctx, userID, models.OTPPurposeEmailChange, map[string]any{
		"pending_email": email,
	})
	if err != nil {
		if errors.Is(err, ErrOTPUserNotFound) {
			return appErrors.ErrNotFound
		}
		return err
	}
	s.dispatch(mail.EmailChangeMessage(email, code, s.otp.TTLMinutes()))

	return nil
}

// ConfirmEmailChange consumes the confirmation code and replaces the address
// in the same update. The new address was verified by receiving the code, so
// the identity stays verified.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID, newEmail, code string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	email := NormaliseEmail(newEmail)
	if user.PendingEmail == "" || user.PendingEmail != email {
		return appErrors.ErrInvalidOrExpiredOTP
	}

	ok, err := s.otp.Consume(ctx, userID, models.OTPPurposeEmailChange, code, map[string]any{
		"email":          email,
		"pending_email":  "",
		"email_verified": true,
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return appErrors.ErrEmailAlreadyRegistered
		}
		return err
	}
	if !ok {
		return appErrors.ErrInvalidOrExpiredOTP
	}

	return nil
}

// findByEmail loads an active identity by its normalised address.
func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Take(&user, "email = ? AND is_active = ?", NormaliseEmail(email), true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find user by email: %w", err)
	}
	return &user, nil
}

// dispatch sends an email without blocking the state transition that
// produced it. Delivery failures are logged; the user can always request a
// new code.
func (s *AuthService) dispatch(msg mail.Message) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailDispatchTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("email delivery failed",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
	}()
}
