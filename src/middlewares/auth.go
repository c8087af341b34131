package middlewares

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"rentals/src/models"
	"rentals/src/types"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware accepts HS256 bearer tokens whose subject is a known user id
// and stores the caller as "id" and "role" on the request context.
func AuthMiddleware(secret []byte, users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || reqToken == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing bearer token"})
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !tkn.Valid {
			if err != nil {
				log.Printf("token error: %s\n", err.Error())
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}

		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || uid == 0 {
			log.Printf("error parsing claims: subject %q\n", claims.Subject)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}
		user, err := users.FindUser(ctx.Request.Context(), uint(uid))
		if err != nil || user.ID != uint(uid) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unknown user"})
			return
		}
		role := user.Role
		if role == "" {
			role = types.ROLE_GUEST
		}
		ctx.Set("id", user.ID)
		ctx.Set("email", user.Email)
		ctx.Set("role", role)
		ctx.Next()
	}
}

// CurrentActor reads the caller stored by AuthMiddleware.
func CurrentActor(ctx *gin.Context) types.Actor {
	actor := types.Actor{ID: ctx.GetUint("id")}
	if role, ok := ctx.Get("role"); ok {
		actor.Role, _ = role.(types.Role)
	}
	return actor
}
