package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/database/testutil"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

type apiFixture struct {
	db     *gorm.DB
	router *gin.Engine
	clock  *testutil.Clock
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		Issuer:          "techno-trades",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
	})
	require.NoError(t, err)

	otpSvc, err := iauth.NewOTPService(db, iauth.OTPConfig{TTL: 10 * time.Minute, Clock: clock.Now})
	require.NoError(t, err)

	tokenSvc, err := iauth.NewTokenService(db, jwtSvc, iauth.TokenConfig{})
	require.NoError(t, err)

	authSvc, err := iauth.NewAuthService(db, otpSvc, tokenSvc, nil, nil, iauth.AuthConfig{Clock: clock.Now})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, authSvc)
	require.NoError(t, err)

	return &apiFixture{db: db, router: router, clock: clock}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var envelope response.Response
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func (f *apiFixture) storedOTP(t *testing.T, email string) string {
	t.Helper()

	var user models.User
	require.NoError(t, f.db.Take(&user, "email = ?", email).Error)
	require.NotEmpty(t, user.OTPCode)
	return user.OTPCode
}

func (f *apiFixture) registerAndVerify(t *testing.T, email, password string) {
	t.Helper()

	w, _ := f.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/auth/verify-email", gin.H{
		"email": email,
		"otp":   f.storedOTP(t, email),
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func dataField(t *testing.T, envelope response.Response, key string) any {
	t.Helper()

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", envelope.Data)
	value, ok := data[key]
	require.True(t, ok, "missing %q in %v", key, data)
	return value
}

func tokensFrom(t *testing.T, envelope response.Response) (string, string) {
	t.Helper()

	tokens, ok := dataField(t, envelope, "tokens").(map[string]any)
	require.True(t, ok)
	access, _ := tokens["access_token"].(string)
	refresh, _ := tokens["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestHealthEndpoint(t *testing.T) {
	f := setupAPI(t)

	w, envelope := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", dataField(t, envelope, "status"))
}

func TestRegisterValidation(t *testing.T) {
	f := setupAPI(t)

	w, envelope := f.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "not-an-email",
		"password":  "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.False(t, envelope.Success)
	require.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestRegisterLoginLifecycle(t *testing.T) {
	f := setupAPI(t)

	// Register; unverified login is refused.
	w, _ := f.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "flow@example.com",
		"password":  "orig-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, envelope := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "flow@example.com",
		"password": "orig-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNVERIFIED_USER", envelope.Error.Code)

	// Verify, then login succeeds and sets both cookies.
	w, _ = f.do(t, http.MethodPost, "/api/auth/verify-email", gin.H{
		"email": "flow@example.com",
		"otp":   f.storedOTP(t, "flow@example.com"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "flow@example.com",
		"password": "orig-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	access, refresh := tokensFrom(t, envelope)

	cookies := map[string]*http.Cookie{}
	for _, cookie := range w.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")
	require.True(t, cookies["refresh_token"].HttpOnly)
	require.Equal(t, "/api/auth/refresh", cookies["refresh_token"].Path)

	// The access token opens protected routes.
	w, envelope = f.do(t, http.MethodGet, "/api/auth/validate", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, w.Code)
	user, ok := dataField(t, envelope, "user").(map[string]any)
	require.True(t, ok)
	require.Equal(t, "flow@example.com", user["email"])

	// Refresh via body rotates the pair; the old refresh token dies.
	w, envelope = f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusCreated, w.Code)
	newAccess, newRefresh := tokensFrom(t, envelope)
	require.NotEqual(t, access, newAccess)

	w, envelope = f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_OR_EXPIRED_TOKEN", envelope.Error.Code)

	// Logout revokes the current pair.
	w, _ = f.do(t, http.MethodGet, "/api/auth/logout", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+newAccess)
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": newRefresh})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshViaCookie(t *testing.T) {
	f := setupAPI(t)
	f.registerAndVerify(t, "cookie-flow@example.com", "orig-password")

	w, envelope := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "cookie-flow@example.com",
		"password": "orig-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	_, refresh := tokensFrom(t, envelope)

	w, envelope = f.do(t, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tokensFrom(t, envelope)
}

func TestRefreshWithoutToken(t *testing.T) {
	f := setupAPI(t)

	w, envelope := f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_OR_EXPIRED_TOKEN", envelope.Error.Code)
}

func TestOTPLoginEndpoints(t *testing.T) {
	f := setupAPI(t)
	f.registerAndVerify(t, "otp-api@example.com", "orig-password")

	w, _ := f.do(t, http.MethodGet, "/api/auth/send-login-otp?email=otp-api@example.com", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, envelope := f.do(t, http.MethodPost, "/api/auth/login-with-otp", gin.H{
		"email": "otp-api@example.com",
		"otp":   f.storedOTP(t, "otp-api@example.com"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tokensFrom(t, envelope)
}

func TestPasswordResetEndpoints(t *testing.T) {
	f := setupAPI(t)
	f.registerAndVerify(t, "reset-api@example.com", "orig-password")

	w, _ := f.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "reset-api@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/auth/set-new-password", gin.H{
		"email":    "reset-api@example.com",
		"otp":      f.storedOTP(t, "reset-api@example.com"),
		"password": "fresh-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "reset-api@example.com",
		"password": "fresh-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	f := setupAPI(t)
	f.registerAndVerify(t, "profile@example.com", "orig-password")

	w, envelope := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "profile@example.com",
		"password": "orig-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	access, _ := tokensFrom(t, envelope)
	authed := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	// Password change.
	w, _ = f.do(t, http.MethodPatch, "/api/users/update-my-password", gin.H{
		"currentPassword": "orig-password",
		"newPassword":     "rotated-password",
	}, authed)
	require.Equal(t, http.StatusOK, w.Code)

	// Email change round trip.
	w, _ = f.do(t, http.MethodGet, "/api/users/send-email-change-otp?newEmail=renamed@example.com", nil, authed)
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope = f.do(t, http.MethodPatch, "/api/users/update-my-email", gin.H{
		"newEmail": "renamed@example.com",
		"otp":      f.storedOTP(t, "profile@example.com"),
	}, authed)
	require.Equal(t, http.StatusOK, w.Code)
	user, ok := dataField(t, envelope, "user").(map[string]any)
	require.True(t, ok)
	require.Equal(t, "renamed@example.com", user["email"])

	w, _ = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "renamed@example.com",
		"password": "rotated-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestUserListRequiresAdmin(t *testing.T) {
	f := setupAPI(t)
	f.registerAndVerify(t, "plain@example.com", "orig-password")

	w, envelope := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "plain@example.com",
		"password": "orig-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	access, _ := tokensFrom(t, envelope)

	w, _ = f.do(t, http.MethodGet, "/api/users", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Promote and retry.
	require.NoError(t, f.db.Model(&models.User{}).
		Where("email = ?", "plain@example.com").
		Update("role", models.RoleAdmin).Error)

	w, envelope = f.do(t, http.MethodGet, "/api/users", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, w.Code)
	users, ok := dataField(t, envelope, "users").([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	f := setupAPI(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/logout"},
		{http.MethodGet, "/api/auth/validate"},
		{http.MethodPatch, "/api/users/update-my-password"},
		{http.MethodGet, "/api/users/send-email-change-otp"},
		{http.MethodPatch, "/api/users/update-my-email"},
		{http.MethodGet, "/api/users"},
	}

	for _, route := range paths {
		w, _ := f.do(t, route.method, route.path, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestAuthRouteRateLimit(t *testing.T) {
	f := setupAPI(t)

	var lastCode int
	for i := 0; i <= authRateLimit; i++ {
		w, _ := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
			"email":    fmt.Sprintf("limited-%d@example.com", i),
			"password": "whatever-password",
		})
		lastCode = w.Code
	}
	require.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestGoogleSignInUnconfiguredVerifier(t *testing.T) {
	f := setupAPI(t)

	w, envelope := f.do(t, http.MethodPost, "/api/auth/google", gin.H{"credential": "some-token"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "INTERNAL_SERVER_ERROR", envelope.Error.Code)
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(nil, nil, nil)
	require.Error(t, err)
}
