package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/middleware"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/service"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// departmentParam resolves :dept, writing the error response when it is unknown.
func departmentParam(c *gin.Context) (models.Department, bool) {
	dept, err := service.ParseDepartment(c.Param("dept"))
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return dept, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
