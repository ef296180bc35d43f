// Package middleware guards the operator routes of the kiosk API.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kiosk-lottery/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bearerSchema = "Bearer "
	operatorRole = "operator"
)

var (
	ErrInvalidPIN   = errors.New("PIN 错误")
	ErrAuthDisabled = errors.New("operator PIN is not configured")
)

// HashPIN returns the bcrypt hash to put in Operator.PINHash.
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("PIN must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash PIN: %w", err)
	}
	return string(hash), nil
}

// OperatorAuth issues and checks operator tokens.
// With no PIN hash configured every request is allowed.
type OperatorAuth struct {
	pinHash []byte
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewOperatorAuth builds the guard from the operator settings.
func NewOperatorAuth(cfg config.OperatorConfig) *OperatorAuth {
	secret := cfg.JWTSecret
	if secret == "" && cfg.PINHash != "" {
		// Tokens then only survive until restart.
		secret = uuid.NewString()
		logger.Warning("Operator.JWTSecret not set, using a per-process secret")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &OperatorAuth{
		pinHash: []byte(cfg.PINHash),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Enabled reports whether a PIN hash is configured.
func (a *OperatorAuth) Enabled() bool {
	return len(a.pinHash) > 0
}

// Login checks pin and returns a signed token with its expiry.
func (a *OperatorAuth) Login(pin string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.pinHash, []byte(pin)); err != nil {
		return "", time.Time{}, ErrInvalidPIN
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   operatorRole,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

func (a *OperatorAuth) verify(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject != operatorRole {
		return errors.New("invalid token claims")
	}
	return nil
}

// RequireOperator aborts with 401 unless the request carries a valid operator token.
func (a *OperatorAuth) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要管理员授权"})
			return
		}

		if err := a.verify(authHeader[len(bearerSchema):]); err != nil {
			logger.Infof("operator token rejected for %s %s: %v", c.Request.Method, c.FullPath(), err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "授权已过期"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "授权无效"})
			}
			return
		}
		c.Next()
	}
}
