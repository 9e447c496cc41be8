package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/auth"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestID"
	claimsKey    = "claims"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString(requestIDKey),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}

func CORS(allowedOrigins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "x-audit-mode", RequestIDHeader)
	config.ExposeHeaders = []string{RequestIDHeader}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}

// RequireAuth verifies the bearer token, or the session cookie when
// cookieName is set and no Authorization header was sent. A missing
// credential is 401 and a rejected one 403.
func RequireAuth(verifier auth.Verifier, cookieName string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := credential(c, cookieName)
		if err != nil {
			abortWithError(c, logger, apperrors.Unauthenticated("Token de autenticação ausente"))
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				abortWithError(c, logger, apperrors.Unauthenticated("Token inválido"))
				return
			}
			abortWithError(c, logger, apperrors.Forbidden("Token inválido", err))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func credential(c *gin.Context, cookieName string) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" || cookieName == "" {
		return auth.BearerToken(header)
	}
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return "", auth.ErrMissingToken
	}
	return token, nil
}

func currentUser(c *gin.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey)
	user, _ := claims.(*auth.Claims)
	return user
}

// SessionGuard protects the owner panel pages. Anonymous panel requests go to
// the login page with the original path as redirect target; signed-in users
// visiting the login page go to the panel. A cookie that fails verification
// is cleared.
func SessionGuard(verifier auth.Verifier, cookieName string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticated := false
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			claims, err := verifier.Verify(c.Request.Context(), token)
			if err == nil {
				authenticated = true
				c.Set(claimsKey, claims)
			} else {
				logger.WithError(err).Info("Clearing invalid session cookie")
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(cookieName, "", -1, "/", "", c.Request.TLS != nil, true)
			}
		}

		path := c.Request.URL.Path
		isLogin := path == "/login" || strings.HasPrefix(path, "/login/")

		switch {
		case isLogin && authenticated:
			c.Redirect(http.StatusFound, "/painel")
			c.Abort()
		case !isLogin && !authenticated:
			c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
		default:
			c.Next()
		}
	}
}
