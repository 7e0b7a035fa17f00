package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	"github.com/statuscore/incident-registry/internal/service"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
	"github.com/statuscore/incident-registry/pkg/response"
)

// IncidentHandler handles the incident endpoints.
type IncidentHandler struct {
	service *service.IncidentService
	updates *service.UpdateService
	exports *service.ExportService
}

// NewIncidentHandler constructs an incident handler. The export service
// is optional; nil disables the export endpoint.
func NewIncidentHandler(svc *service.IncidentService, updates *service.UpdateService, exports *service.ExportService) *IncidentHandler {
	return &IncidentHandler{service: svc, updates: updates, exports: exports}
}

func buildIncidentFilter(c *gin.Context) models.IncidentFilter {
	filter := models.IncidentFilter{
		Levels:            multiQuery(c, "level"),
		Scopes:            multiQuery(c, "scope"),
		Statuses:          multiQuery(c, "status"),
		Types:             multiQuery(c, "incident_type"),
		DetectionSources:  multiQuery(c, "detection_source"),
		ReportingOrgs:     multiQuery(c, "reporting_org"),
		Commanders:        multiQuery(c, "incident_commander"),
		ImpactedAssets:    multiQuery(c, "impacted_assets"),
		ImpactedAreas:     multiQuery(c, "impacted_areas"),
		ImpactedLocations: multiQuery(c, "impacted_locations"),
		ImpactedParties:   multiQuery(c, "impacted_parties"),
		Search:            strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param level query []string false "Severity levels (repeatable or comma-separated)"
// @Param scope query []string false "Scopes"
// @Param status query []string false "Statuses"
// @Param incident_type query []string false "Incident types"
// @Param detection_source query []string false "Detection sources"
// @Param reporting_org query []string false "Reporting organisations"
// @Param incident_commander query []string false "Incident commanders"
// @Param impacted_locations query []string false "Impacted locations"
// @Param impacted_parties query []string false "Impacted parties"
// @Param impacted_assets query []string false "Impacted assets"
// @Param impacted_areas query []string false "Impacted areas"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	summaries, pagination, err := h.service.List(c.Request.Context(), buildIncidentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, pagination)
}

// Get godoc
// @Summary Get incident by id
// @Tags Incidents
// @Produce json
// @Param id path int true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Replace godoc
// @Summary Replace incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [put]
func (h *IncidentHandler) Replace(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Replace(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Patch godoc
// @Summary Partially update incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Param payload body dto.UpdateIncidentRequest true "Partial incident payload"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [patch]
func (h *IncidentHandler) Patch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete incident
// @Tags Incidents
// @Produce json
// @Param id path int true "Incident ID"
// @Success 204
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Update incident status
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Param payload body dto.StatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/update_status [post]
func (h *IncidentHandler) UpdateStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidStatus.Code, http.StatusBadRequest, "status is required"))
		return
	}
	detail, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Timeline godoc
// @Summary Incident timeline
// @Tags Incidents
// @Produce json
// @Param id path int true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/timeline [get]
func (h *IncidentHandler) Timeline(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	timeline, err := h.service.Timeline(c.Request.Context(), id, time.Now)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timeline, nil)
}

// Statistics godoc
// @Summary Incident statistics
// @Tags Incidents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /incidents/statistics [get]
func (h *IncidentHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), buildIncidentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Critical godoc
// @Summary List critical incidents
// @Tags Incidents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /incidents/critical [get]
func (h *IncidentHandler) Critical(c *gin.Context) {
	summaries, err := h.service.Critical(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// ListUpdates godoc
// @Summary List incident updates
// @Tags Incidents
// @Produce json
// @Param id path int true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/updates [get]
func (h *IncidentHandler) ListUpdates(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	updates, err := h.updates.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updates, nil)
}

// CreateUpdate godoc
// @Summary Post incident update
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Param payload body dto.UpdateEntryRequest true "Update payload"
// @Success 201 {object} response.Envelope
// @Router /incidents/{id}/updates [post]
func (h *IncidentHandler) CreateUpdate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	update, err := h.updates.Append(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, update)
}

// Export godoc
// @Summary Export incident list
// @Tags Incidents
// @Produce text/csv
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /incidents/export [get]
func (h *IncidentHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	filter := buildIncidentFilter(c)
	if c.Query("limit") == "" {
		filter.PageSize = 0
	}
	artifact, err := h.exports.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, artifact.Filename, artifact.ContentType, artifact.Data)
}
