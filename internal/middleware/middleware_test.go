package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/service"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/resource", handlers...)
	return router
}

func get(router *gin.Engine, path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestJWTAndRoles(t *testing.T) {
	validator := staticValidator{
		"hod":   {UserID: "HOD1", Role: models.RoleHOD},
		"fac":   {UserID: "FAC1", Role: models.RoleFaculty},
		"bogus": {UserID: "X", Role: models.UserRole("JANITOR")},
	}
	router := newRouter(JWT(validator), RequireRoles(models.RoleHOD, models.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", ""))
	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", "Basic hod"))
	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", "Bearer "))
	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", "Bearer nope"))
	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", "Bearer bogus"))
	assert.Equal(t, http.StatusForbidden, get(router, "/resource", "Bearer fac"))
	assert.Equal(t, http.StatusOK, get(router, "/resource", "bearer hod"))
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, get(router, "/resource", ""))
}

func TestMetricsLabelsRouteTemplates(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(metrics, "/health"))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, get(router, "/items/1", ""))
	require.Equal(t, http.StatusOK, get(router, "/items/2", ""))
	require.Equal(t, http.StatusOK, get(router, "/health", ""))
	require.Equal(t, http.StatusNotFound, get(router, "/missing", ""))

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)
}
