package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trafficguard/backend/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := issueToken(user)
	require.NoError(t, err)
	return token
}

func protectedRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append(middleware, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"userID": currentUserID(c),
				"role":   currentRole(c),
			},
		})
	})
	r.GET("/protected", chain...)
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 42, Email: "officer@example.com", Role: models.RolePolice}
	token := signToken(t, user)

	claims, err := parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "officer@example.com", claims.Email)
	assert.Equal(t, models.RolePolice, claims.Role)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	require.NoError(t, err)

	_, err = parseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = parseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	r := protectedRouter(AuthMiddleware())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	r := protectedRouter(AuthMiddleware())

	for _, header := range []string{"garbage", "Basic abc", "Bearer", "Bearer bad.token.here"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	r := protectedRouter(AuthMiddleware())
	token := signToken(t, &models.User{ID: 7, Email: "a@b.c", Role: models.RolePublic})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":7`)
}

func TestOptionalAuthAnonymousPasses(t *testing.T) {
	r := protectedRouter(OptionalAuth())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":0`)
}

func TestOptionalAuthInvalidTokenTreatedAsAnonymous(t *testing.T) {
	r := protectedRouter(OptionalAuth())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":0`)
}

func TestOptionalAuthValidTokenPopulatesContext(t *testing.T) {
	r := protectedRouter(OptionalAuth())
	token := signToken(t, &models.User{ID: 11, Email: "x@y.z", Role: models.RoleAdmin})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":11`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter(AuthMiddleware(), RequireRole(models.RolePolice, models.RoleAdmin))

	tests := []struct {
		role models.Role
		want int
	}{
		{models.RolePublic, http.StatusForbidden},
		{models.RolePolice, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token := signToken(t, &models.User{ID: 1, Role: tt.role})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	// RequireRole behind OptionalAuth: anonymous callers have no role
	r := protectedRouter(OptionalAuth(), RequireRole(models.RoleAdmin))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
