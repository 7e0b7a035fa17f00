package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/choices"
	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
)

type incidentRepository interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error)
	FindByID(ctx context.Context, id int64) (*models.Incident, error)
	Create(ctx context.Context, incident *models.Incident, documents []models.IncidentDocument) error
	Update(ctx context.Context, incident *models.Incident) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	ReplaceDocuments(ctx context.Context, incidentID int64, documents []models.IncidentDocument) error
	Delete(ctx context.Context, id int64) error
	GroupedCounts(ctx context.Context, filter models.IncidentFilter) ([]models.StatisticsCell, error)
	Critical(ctx context.Context) ([]models.Incident, error)
}

type incidentDocumentLoader interface {
	ListByIncident(ctx context.Context, incidentID int64) ([]models.IncidentDocument, error)
}

type incidentUpdateLoader interface {
	ListByIncident(ctx context.Context, incidentID int64) ([]models.IncidentUpdate, error)
}

type statisticsCache interface {
	Get(ctx context.Context, filter models.IncidentFilter) (*models.Statistics, bool)
	Set(ctx context.Context, filter models.IncidentFilter, stats *models.Statistics)
}

// IncidentService implements the incident use-cases: CRUD, status
// transition, timeline, statistics, and the critical list.
type IncidentService struct {
	repo      incidentRepository
	documents incidentDocumentLoader
	updates   incidentUpdateLoader
	registry  *choices.Registry
	cache     statisticsCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the incident service. The cache is
// optional; nil disables statistics caching.
func NewIncidentService(repo incidentRepository, documents incidentDocumentLoader, updates incidentUpdateLoader, registry *choices.Registry, cache statisticsCache, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{
		repo:      repo,
		documents: documents,
		updates:   updates,
		registry:  registry,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// validateRules runs the cross-field business rules over a fully mapped
// incident. Rules are order-independent; every violation is reported on
// its own field.
func (s *IncidentService) validateRules(incident *models.Incident) *appErrors.Error {
	fields := map[string][]string{}
	addError := func(field, message string) {
		fields[field] = append(fields[field], message)
	}

	if incident.StartedAt == nil {
		addError("started_at", "Started at time is required.")
	}
	if incident.DetectedAt == nil {
		addError("detected_at", "Detected at time is required.")
	}
	if incident.StartedAt != nil && incident.DetectedAt != nil && incident.DetectedAt.Before(*incident.StartedAt) {
		addError("detected_at", "Detected at time cannot be before started at time.")
	}

	if incident.Level == models.LevelL5 {
		if !incident.L5Confirmation {
			addError("l5_confirmation", "L5 incident confirmation is required for L5 incidents.")
		}
		if (incident.Scope == models.ScopeMedium || incident.Scope == models.ScopeHigh) && !incident.MitigationPolicyAcknowledgment {
			addError("mitigation_policy_acknowledgment", "Mitigation policy acknowledgment is required for L5 Medium/High incidents.")
		}
	}

	enumFields := []struct {
		name   string
		value  string
		config string
	}{
		{"level", incident.Level, choices.FieldLevels},
		{"scope", incident.Scope, choices.FieldScopes},
		{"status", incident.Status, choices.FieldStatuses},
		{"incident_type", incident.IncidentType, choices.FieldTypes},
		{"detection_source", incident.DetectionSource, choices.FieldDetectionSources},
		{"time_format", incident.TimeFormat, choices.FieldTimeFormats},
		{"safety_compliance", incident.SafetyCompliance, choices.FieldImpactOptions},
		{"security_privacy", incident.SecurityPrivacy, choices.FieldImpactOptions},
		{"data_quality", incident.DataQuality, choices.FieldImpactOptions},
		{"psd2_impact", incident.PSD2Impact, choices.FieldImpactOptions},
	}
	for _, field := range enumFields {
		if field.value == "" {
			continue
		}
		if !s.registry.IsValid(field.config, field.value) {
			addError(field.name, fmt.Sprintf("%q is not a valid choice.", field.value))
		}
	}

	if len(fields) > 0 {
		return appErrors.Validation(fields)
	}
	return nil
}

// surviving filters out document stubs missing a title or url.
func surviving(stubs []dto.DocumentStub) []models.IncidentDocument {
	documents := make([]models.IncidentDocument, 0, len(stubs))
	for _, stub := range stubs {
		if stub.Title == "" || stub.URL == "" {
			continue
		}
		documents = append(documents, models.IncidentDocument{Title: stub.Title, URL: stub.URL})
	}
	return documents
}

func actorID(claims *models.JWTClaims) *string {
	if claims == nil {
		return nil
	}
	if claims.Email != "" {
		email := claims.Email
		return &email
	}
	if claims.UserID != "" {
		id := claims.UserID
		return &id
	}
	return nil
}

// List returns summary projections plus pagination metadata.
func (s *IncidentService) List(ctx context.Context, filter models.IncidentFilter) ([]models.IncidentSummary, *models.Pagination, error) {
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}

	summaries := make([]models.IncidentSummary, 0, len(incidents))
	for _, incident := range incidents {
		summaries = append(summaries, models.NewIncidentSummary(incident))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return summaries, pagination, nil
}

// Get returns the full detail projection for one incident.
func (s *IncidentService) Get(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return s.detail(ctx, *incident)
}

func (s *IncidentService) detail(ctx context.Context, incident models.Incident) (*models.IncidentDetail, error) {
	documents, err := s.documents.ListByIncident(ctx, incident.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident documents")
	}
	updates, err := s.updates.ListByIncident(ctx, incident.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident updates")
	}
	return models.NewIncidentDetail(incident, documents, updates), nil
}

// Create validates and persists a new incident together with the
// surviving related-document stubs.
func (s *IncidentService) Create(ctx context.Context, req dto.CreateIncidentRequest, claims *models.JWTClaims) (*models.IncidentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	incident := req.ToModel()
	incident.CreatedBy = actorID(claims)

	if err := s.validateRules(&incident); err != nil {
		return nil, err
	}

	documents := surviving(req.RelatedDocuments)
	if err := s.repo.Create(ctx, &incident, documents); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}

	s.logger.Info("incident created",
		zap.Int64("incident_id", incident.ID),
		zap.String("level", incident.Level),
		zap.String("scope", incident.Scope))

	return models.NewIncidentDetail(incident, documents, nil), nil
}

// Replace applies the full write contract over an existing incident
// (PUT semantics).
func (s *IncidentService) Replace(ctx context.Context, id int64, req dto.CreateIncidentRequest) (*models.IncidentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	incident := req.ToModel()
	incident.ID = existing.ID
	incident.CreatedAt = existing.CreatedAt
	incident.CreatedBy = existing.CreatedBy
	if req.Status == "" {
		incident.Status = existing.Status
	}

	if err := s.validateRules(&incident); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}

	if req.RelatedDocuments != nil {
		if err := s.repo.ReplaceDocuments(ctx, id, surviving(req.RelatedDocuments)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace incident documents")
		}
	}

	return s.detail(ctx, incident)
}

// Update applies only the supplied fields (PATCH semantics). A supplied
// related-document list replaces the stored set wholesale.
func (s *IncidentService) Update(ctx context.Context, id int64, req dto.UpdateIncidentRequest) (*models.IncidentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	incident := *existing
	req.ApplyTo(&incident)

	if err := s.validateRules(&incident); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}

	if req.RelatedDocuments != nil {
		if err := s.repo.ReplaceDocuments(ctx, id, surviving(*req.RelatedDocuments)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace incident documents")
		}
	}

	return s.detail(ctx, incident)
}

// Delete removes the incident and its children.
func (s *IncidentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete incident")
	}
	s.logger.Info("incident deleted", zap.Int64("incident_id", id))
	return nil
}

// UpdateStatus overwrites the status after a membership check. No
// transition graph is enforced; any configured status may follow any
// other.
func (s *IncidentService) UpdateStatus(ctx context.Context, id int64, status string) (*models.IncidentDetail, error) {
	if !s.registry.IsValid(choices.FieldStatuses, status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "Invalid status value")
	}

	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident status")
	}

	incident.Status = status
	return s.detail(ctx, *incident)
}

// Timeline computes the timing view for one incident. now is injected
// for testability.
func (s *IncidentService) Timeline(ctx context.Context, id int64, now func() time.Time) (*models.Timeline, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	timeline := &models.Timeline{
		StartedAt:  incident.StartedAt,
		DetectedAt: incident.DetectedAt,
		CreatedAt:  incident.CreatedAt,
		UpdatedAt:  incident.UpdatedAt,
	}

	if incident.StartedAt != nil && incident.DetectedAt != nil {
		seconds := incident.DetectedAt.Sub(*incident.StartedAt).Seconds()
		timeline.TimeToDetection = &seconds
	}
	if incident.StartedAt != nil {
		seconds := now().Sub(*incident.StartedAt).Seconds()
		timeline.TimeSinceStarted = &seconds
	}

	return timeline, nil
}

// Statistics aggregates counts over the filtered scope, serving from
// the cache when enabled.
func (s *IncidentService) Statistics(ctx context.Context, filter models.IncidentFilter) (*models.Statistics, error) {
	if s.cache != nil {
		if stats, ok := s.cache.Get(ctx, filter); ok {
			return stats, nil
		}
	}

	cells, err := s.repo.GroupedCounts(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}

	stats := &models.Statistics{
		ByLevel:  map[string]int{},
		ByScope:  map[string]int{},
		ByStatus: map[string]int{},
	}
	for _, level := range s.registry.Levels() {
		stats.ByLevel[level] = 0
	}
	for _, scope := range s.registry.Scopes() {
		stats.ByScope[scope] = 0
	}
	for _, status := range s.registry.Statuses() {
		stats.ByStatus[status] = 0
	}

	for _, cell := range cells {
		stats.TotalIncidents += cell.Count
		if _, ok := stats.ByLevel[cell.Level]; ok {
			stats.ByLevel[cell.Level] += cell.Count
		}
		if _, ok := stats.ByScope[cell.Scope]; ok {
			stats.ByScope[cell.Scope] += cell.Count
		}
		if _, ok := stats.ByStatus[cell.Status]; ok {
			stats.ByStatus[cell.Status] += cell.Count
		}
		if cell.Level == models.LevelL5 && cell.Scope == models.ScopeHigh {
			stats.L5HighIncidents += cell.Count
		}
		if cell.Level == models.LevelL5 && (cell.Scope == models.ScopeMedium || cell.Scope == models.ScopeHigh) {
			stats.CriticalIncidents += cell.Count
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, filter, stats)
	}
	return stats, nil
}

// Critical lists L5 Medium/High incidents as summaries, newest first.
func (s *IncidentService) Critical(ctx context.Context) ([]models.IncidentSummary, error) {
	incidents, err := s.repo.Critical(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list critical incidents")
	}
	summaries := make([]models.IncidentSummary, 0, len(incidents))
	for _, incident := range incidents {
		summaries = append(summaries, models.NewIncidentSummary(incident))
	}
	return summaries, nil
}
