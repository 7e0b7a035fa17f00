package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/statuscore/incident-registry/internal/models"
)

// DocumentRepository manages persistence for incident documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// List returns documents matching the filter, oldest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.IncidentDocument, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.IncidentID != 0 {
		args = append(args, filter.IncidentID)
		conditions = append(conditions, fmt.Sprintf("incident_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(url) LIKE $%d)", n, n))
	}

	query := fmt.Sprintf(`SELECT id, incident_id, title, url, created_at FROM incident_documents
		WHERE %s ORDER BY created_at ASC, id ASC`, strings.Join(conditions, " AND "))

	var documents []models.IncidentDocument
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, fmt.Errorf("list incident documents: %w", err)
	}
	return documents, nil
}

// ListByIncident returns an incident's documents, oldest first.
func (r *DocumentRepository) ListByIncident(ctx context.Context, incidentID int64) ([]models.IncidentDocument, error) {
	return r.List(ctx, models.DocumentFilter{IncidentID: incidentID})
}

// FindByID fetches a single document.
func (r *DocumentRepository) FindByID(ctx context.Context, id int64) (*models.IncidentDocument, error) {
	const query = `SELECT id, incident_id, title, url, created_at FROM incident_documents WHERE id = $1`
	var document models.IncidentDocument
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		return nil, err
	}
	return &document, nil
}

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, document *models.IncidentDocument) error {
	document.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO incident_documents (incident_id, title, url, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &document.ID, query,
		document.IncidentID, document.Title, document.URL, document.CreatedAt); err != nil {
		return fmt.Errorf("create incident document: %w", err)
	}
	return nil
}

// Update modifies a document's title and url.
func (r *DocumentRepository) Update(ctx context.Context, document *models.IncidentDocument) error {
	const query = `UPDATE incident_documents SET title = $2, url = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, document.ID, document.Title, document.URL); err != nil {
		return fmt.Errorf("update incident document: %w", err)
	}
	return nil
}

// Delete removes a document.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM incident_documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete incident document: %w", err)
	}
	return nil
}
