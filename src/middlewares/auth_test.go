package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentals/src/models"
	"rentals/src/repository/memory"
	"rentals/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	users := memory.NewUserStore(models.User{ID: 7, Email: "ana@example.com", Role: types.ROLE_ADMIN})
	r := gin.New()
	r.Use(SecureHeaders)
	r.GET("/me", AuthMiddleware(testSecret, users), func(ctx *gin.Context) {
		actor := CurrentActor(ctx)
		ctx.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()

	token, err := IssueToken(testSecret, &models.User{ID: 7, Email: "ana@example.com"}, time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"admin"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := authRouter()

	expired, err := IssueToken(testSecret, &models.User{ID: 7}, -time.Minute)
	require.NoError(t, err)
	forged, err := IssueToken([]byte("other-secret"), &models.User{ID: 7}, time.Hour)
	require.NoError(t, err)
	unknown, err := IssueToken(testSecret, &models.User{ID: 8}, time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"expired": "Bearer " + expired,
		"forged":  "Bearer " + forged,
		"unknown": "Bearer " + unknown,
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}
