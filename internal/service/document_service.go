package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
)

type documentRepository interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.IncidentDocument, error)
	FindByID(ctx context.Context, id int64) (*models.IncidentDocument, error)
	Create(ctx context.Context, document *models.IncidentDocument) error
	Update(ctx context.Context, document *models.IncidentDocument) error
	Delete(ctx context.Context, id int64) error
}

// DocumentService handles the standalone document CRUD surface.
type DocumentService struct {
	incidents incidentLookup
	repo      documentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(incidents incidentLookup, repo documentRepository, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{incidents: incidents, repo: repo, validator: validate, logger: logger}
}

// List returns documents, optionally scoped to one incident and a
// title/url search term, oldest first.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.IncidentDocument, error) {
	documents, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	if documents == nil {
		documents = []models.IncidentDocument{}
	}
	return documents, nil
}

// Get fetches one document.
func (s *DocumentService) Get(ctx context.Context, id int64) (*models.IncidentDocument, error) {
	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return document, nil
}

// Create attaches a new document to an existing incident.
func (s *DocumentService) Create(ctx context.Context, req dto.DocumentRequest) (*models.IncidentDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	if _, err := s.incidents.FindByID(ctx, req.IncidentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	document := &models.IncidentDocument{
		IncidentID: req.IncidentID,
		Title:      req.Title,
		URL:        req.URL,
	}
	if err := s.repo.Create(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}
	return document, nil
}

// Update modifies an existing document's title and url. The parent
// incident cannot be changed.
func (s *DocumentService) Update(ctx context.Context, id int64, req dto.DocumentRequest) (*models.IncidentDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	document.Title = req.Title
	document.URL = req.URL
	if err := s.repo.Update(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	return document, nil
}

// Patch applies only the supplied fields to an existing document.
func (s *DocumentService) Patch(ctx context.Context, id int64, req dto.DocumentPatchRequest) (*models.IncidentDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if req.Title != nil {
		document.Title = *req.Title
	}
	if req.URL != nil {
		document.URL = *req.URL
	}
	if err := s.repo.Update(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	return document, nil
}

// Delete removes a document.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	return nil
}
