package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/statuscore/incident-registry/internal/choices"
	"github.com/statuscore/incident-registry/pkg/response"
)

// ChoicesHandler exposes the shared choice-set configuration so clients
// can render the same options the API validates against.
type ChoicesHandler struct {
	registry *choices.Registry
}

// NewChoicesHandler constructs a choices handler.
func NewChoicesHandler(registry *choices.Registry) *ChoicesHandler {
	return &ChoicesHandler{registry: registry}
}

// List godoc
// @Summary Incident choice sets
// @Tags Config
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config/choices [get]
func (h *ChoicesHandler) List(c *gin.Context) {
	fields := []string{
		choices.FieldLevels,
		choices.FieldScopes,
		choices.FieldTypes,
		choices.FieldStatuses,
		choices.FieldImpactOptions,
		choices.FieldTimeFormats,
		choices.FieldDetectionSources,
		choices.FieldUpdateTypes,
		choices.FieldImpactedLocations,
		choices.FieldImpactedParties,
	}
	payload := make(map[string][]choices.Choice, len(fields))
	for _, field := range fields {
		payload[field] = h.registry.ChoicesFor(field)
	}
	response.JSON(c, http.StatusOK, payload, nil)
}
