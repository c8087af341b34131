package middlewares

import (
	"fmt"
	"rentals/src/models"
	"rentals/src/types"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// IssueToken signs an access token for user. Tokens are issued by the
// identity service in production, this is used for local sessions and tests.
func IssueToken(secret []byte, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Username: user.Email,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
