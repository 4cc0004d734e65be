package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"journal-workflow-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter(roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(NewJWTIdentityProvider(testSecret)))
	handlers := []gin.HandlerFunc{}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.JSON(http.StatusOK, actor)
	})
	router.GET("/whoami", handlers...)
	return router
}

func call(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareResolvesActor(t *testing.T) {
	token, err := GenerateToken(testSecret, models.Actor{
		UserID: "editor-1",
		Roles:  []models.Role{models.RoleEditor, models.RoleReviewer},
	}, "ed@example.org")
	require.NoError(t, err)

	rec := call(newAuthRouter(), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	var actor models.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actor))
	assert.Equal(t, "editor-1", actor.UserID)
	assert.Equal(t, []models.Role{models.RoleEditor, models.RoleReviewer}, actor.Roles)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	wrongKey, err := GenerateToken("other-secret", models.Actor{UserID: "u-1"}, "")
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noUser, err := GenerateToken(testSecret, models.Actor{}, "")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Token abc",
		"garbage":    "Bearer abc.def.ghi",
		"wrong key":  "Bearer " + wrongKey,
		"expired":    "Bearer " + expiredToken,
		"no user":    "Bearer " + noUser,
	} {
		rec := call(newAuthRouter(), header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestJWTIdentityProviderDropsUnknownRoles(t *testing.T) {
	claims := Claims{UserID: "u-1", Roles: []string{"author", "superuser"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	actor, err := NewJWTIdentityProvider(testSecret).Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAuthor}, actor.Roles)

	_, err = NewJWTIdentityProvider("").Resolve(token)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	adminToken, err := GenerateToken(testSecret, models.Actor{UserID: "a-1", Roles: []models.Role{models.RoleAdmin}}, "")
	require.NoError(t, err)
	authorToken, err := GenerateToken(testSecret, models.Actor{UserID: "u-1", Roles: []models.Role{models.RoleAuthor}}, "")
	require.NoError(t, err)

	router := newAuthRouter(models.RoleEditor)
	assert.Equal(t, http.StatusOK, call(router, "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusForbidden, call(router, "Bearer "+authorToken).Code)
}
