package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/statuscore/incident-registry/internal/models"
)

// UpdateRepository manages persistence for incident update-log entries.
type UpdateRepository struct {
	db *sqlx.DB
}

// NewUpdateRepository constructs an UpdateRepository.
func NewUpdateRepository(db *sqlx.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// ListByIncident returns an incident's update log, newest first.
func (r *UpdateRepository) ListByIncident(ctx context.Context, incidentID int64) ([]models.IncidentUpdate, error) {
	const query = `SELECT id, incident_id, content, author, update_type, created_at, updated_at, created_by
		FROM incident_updates WHERE incident_id = $1 ORDER BY created_at DESC, id DESC`

	var updates []models.IncidentUpdate
	if err := r.db.SelectContext(ctx, &updates, query, incidentID); err != nil {
		return nil, fmt.Errorf("list incident updates: %w", err)
	}
	return updates, nil
}

// Create appends an entry to the incident's update log.
func (r *UpdateRepository) Create(ctx context.Context, update *models.IncidentUpdate) error {
	now := time.Now().UTC()
	update.CreatedAt = now
	update.UpdatedAt = now
	const query = `INSERT INTO incident_updates (incident_id, content, author, update_type, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &update.ID, query,
		update.IncidentID, update.Content, update.Author, update.UpdateType,
		update.CreatedAt, update.UpdatedAt, update.CreatedBy); err != nil {
		return fmt.Errorf("create incident update: %w", err)
	}
	return nil
}
