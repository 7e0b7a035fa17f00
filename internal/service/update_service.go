package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/choices"
	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
)

type incidentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Incident, error)
}

type updateRepository interface {
	ListByIncident(ctx context.Context, incidentID int64) ([]models.IncidentUpdate, error)
	Create(ctx context.Context, update *models.IncidentUpdate) error
}

// UpdateService manages the per-incident update log.
type UpdateService struct {
	incidents incidentLookup
	repo      updateRepository
	registry  *choices.Registry
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUpdateService constructs the update-log service.
func NewUpdateService(incidents incidentLookup, repo updateRepository, registry *choices.Registry, validate *validator.Validate, logger *zap.Logger) *UpdateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateService{
		incidents: incidents,
		repo:      repo,
		registry:  registry,
		validator: validate,
		logger:    logger,
	}
}

func (s *UpdateService) requireIncident(ctx context.Context, incidentID int64) error {
	if _, err := s.incidents.FindByID(ctx, incidentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return nil
}

// List returns the incident's update log, newest first.
func (s *UpdateService) List(ctx context.Context, incidentID int64) ([]models.IncidentUpdate, error) {
	if err := s.requireIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	updates, err := s.repo.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incident updates")
	}
	if updates == nil {
		updates = []models.IncidentUpdate{}
	}
	return updates, nil
}

// Append posts one new update to the incident's log. Author is the
// caller-supplied email; created_by is the authenticated actor or nil.
func (s *UpdateService) Append(ctx context.Context, incidentID int64, req dto.UpdateEntryRequest, claims *models.JWTClaims) (*models.IncidentUpdate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	updateType := req.UpdateType
	if updateType == "" {
		updateType = models.UpdateTypeDefault
	}
	if !s.registry.IsValid(choices.FieldUpdateTypes, updateType) {
		return nil, appErrors.FieldError("update_type", "\""+updateType+"\" is not a valid choice.")
	}

	if err := s.requireIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	update := &models.IncidentUpdate{
		IncidentID: incidentID,
		Content:    req.Content,
		Author:     req.Author,
		UpdateType: updateType,
		CreatedBy:  actorID(claims),
	}
	if err := s.repo.Create(ctx, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident update")
	}

	s.logger.Info("incident update posted",
		zap.Int64("incident_id", incidentID),
		zap.String("update_type", updateType))

	return update, nil
}
