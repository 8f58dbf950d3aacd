package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// WALLET_KEY holds the wallet address of the authenticated caller
	WALLET_KEY contextKey = "wallet"
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("unsupported authorization type: %s", strings.ToLower(parts[0]))
	}

	return strings.TrimSpace(parts[1]), nil
}

// Auth returns a gin middleware that requires a wallet JWT and stores the wallet in the context
func Auth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		var wallet string
		if err == nil {
			wallet, err = verifier.VerifyToken(token)
		}
		if err != nil {
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.ErrorResponse{
				Error: apierrors.NewUnauthorizedError("Authentication failed", err.Error()),
			})
			return
		}

		logger.Debug("JWT authentication successful",
			zap.String("path", c.Request.URL.Path),
			zap.String("wallet", wallet),
		)
		c.Set(string(WALLET_KEY), wallet)

		c.Next()
	}
}

// Wallet returns the authenticated wallet address, empty when the route is public
func Wallet(c *gin.Context) string {
	return c.GetString(string(WALLET_KEY))
}
