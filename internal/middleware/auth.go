package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

const (
	CtxUserIDKey      = "userID"
	CtxAccessTokenKey = "accessToken"

	// AccessTokenCookie is the HTTP-only cookie carrying the access token for
	// browser clients that do not set an Authorization header.
	AccessTokenCookie = "access_token"
)

// Auth enforces access token authentication using the supplied JWT service.
// The token is taken from the Authorization header or, failing that, the
// access token cookie. Verification is stateless: signature and expiry only.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractAccessToken(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrInvalidOrExpiredToken)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxAccessTokenKey, token)

		c.Next()
	}
}

// ExtractAccessToken pulls the raw access token from the request without
// validating it.
func ExtractAccessToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}

	cookie, err := c.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie)
}

// UserID returns the authenticated user id placed by Auth.
func UserID(c *gin.Context) string {
	value, ok := c.Get(CtxUserIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

// AccessToken returns the raw bearer token placed by Auth.
func AccessToken(c *gin.Context) string {
	value, ok := c.Get(CtxAccessTokenKey)
	if !ok {
		return ""
	}
	token, _ := value.(string)
	return token
}
