package http

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"live-quiz-service/internal/domain"
)

const adminEmailKey = "adminEmail"

// AdminClaims is the token payload issued to admins; Email identifies the owner
// of games.
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateAdminToken checks an HMAC-signed token and returns its claims.
func ValidateAdminToken(tokenString, secret string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AdminAuth requires a valid bearer token and stores the admin email on the context.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, domain.ErrUnauthenticated)
			return
		}
		claims, err := ValidateAdminToken(parts[1], secret)
		if err != nil {
			abortWithError(c, domain.ErrUnauthenticated)
			return
		}
		c.Set(adminEmailKey, claims.Email)
		c.Next()
	}
}

func adminEmail(c *gin.Context) string {
	return c.GetString(adminEmailKey)
}
