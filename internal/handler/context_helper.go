package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/statuscore/incident-registry/internal/middleware"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
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

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return id, nil
}

// multiQuery gathers a repeatable query parameter, additionally
// splitting each occurrence on commas. ?level=L4&level=L5 and
// ?level=L4,L5 are equivalent.
func multiQuery(c *gin.Context, name string) []string {
	var values []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	return values
}
