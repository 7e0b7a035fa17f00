package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/statuscore/incident-registry/internal/models"
)

const incidentColumns = `id, title, description, level, scope,
	safety_compliance, security_privacy, data_quality, psd2_impact,
	started_at, detected_at, time_format, detection_source, incident_type,
	impacted_locations, impacted_parties, impacted_assets, impacted_areas,
	incident_commander, reporting_org, estimated_time_to_mitigation,
	first_detected_in, additional_subscribers, safety_compliance_document_url,
	l5_confirmation, mitigation_policy_acknowledgment, send_email_notifications,
	status, created_at, updated_at, created_by`

// IncidentRepository manages persistence for incident records and their
// attached documents and updates.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs an IncidentRepository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// buildWhere translates the filter into a WHERE clause. Values repeated
// within one field are OR-combined (= ANY / JSONB ?|); distinct fields
// are AND-combined.
func buildWhere(filter models.IncidentFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	equalityFields := []struct {
		column string
		values []string
	}{
		{"level", filter.Levels},
		{"scope", filter.Scopes},
		{"status", filter.Statuses},
		{"incident_type", filter.Types},
		{"detection_source", filter.DetectionSources},
		{"reporting_org", filter.ReportingOrgs},
		{"incident_commander", filter.Commanders},
	}
	for _, field := range equalityFields {
		if len(field.values) == 0 {
			continue
		}
		args = append(args, pq.Array(field.values))
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", field.column, len(args)))
	}

	containmentFields := []struct {
		column string
		values []string
	}{
		{"impacted_locations", filter.ImpactedLocations},
		{"impacted_parties", filter.ImpactedParties},
		{"impacted_assets", filter.ImpactedAssets},
		{"impacted_areas", filter.ImpactedAreas},
	}
	for _, field := range containmentFields {
		if len(field.values) == 0 {
			continue
		}
		args = append(args, pq.Array(field.values))
		conditions = append(conditions, fmt.Sprintf("%s ?| $%d", field.column, len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(incident_commander) LIKE $%d OR LOWER(reporting_org) LIKE $%d)",
			n, n, n, n))
	}

	return strings.Join(conditions, " AND "), args
}

// List returns incidents matching the filter plus the total match count.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error) {
	where, args := buildWhere(filter)

	allowedSorts := map[string]string{
		"created_at":  "created_at",
		"started_at":  "started_at",
		"detected_at": "detected_at",
		"level":       "level",
		"scope":       "scope",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM incidents WHERE %s ORDER BY %s %s, id %s LIMIT %d OFFSET %d",
		incidentColumns, where, column, order, order, size, offset)

	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM incidents WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return incidents, total, nil
}

// FindByID fetches one incident row.
func (r *IncidentRepository) FindByID(ctx context.Context, id int64) (*models.Incident, error) {
	query := fmt.Sprintf("SELECT %s FROM incidents WHERE id = $1", incidentColumns)
	var incident models.Incident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Create inserts an incident and its surviving document stubs within a
// single transaction.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident, documents []models.IncidentDocument) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create incident: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now

	const insertQuery = `INSERT INTO incidents (title, description, level, scope,
		safety_compliance, security_privacy, data_quality, psd2_impact,
		started_at, detected_at, time_format, detection_source, incident_type,
		impacted_locations, impacted_parties, impacted_assets, impacted_areas,
		incident_commander, reporting_org, estimated_time_to_mitigation,
		first_detected_in, additional_subscribers, safety_compliance_document_url,
		l5_confirmation, mitigation_policy_acknowledgment, send_email_notifications,
		status, created_at, updated_at, created_by)
		VALUES (:title, :description, :level, :scope,
		:safety_compliance, :security_privacy, :data_quality, :psd2_impact,
		:started_at, :detected_at, :time_format, :detection_source, :incident_type,
		:impacted_locations, :impacted_parties, :impacted_assets, :impacted_areas,
		:incident_commander, :reporting_org, :estimated_time_to_mitigation,
		:first_detected_in, :additional_subscribers, :safety_compliance_document_url,
		:l5_confirmation, :mitigation_policy_acknowledgment, :send_email_notifications,
		:status, :created_at, :updated_at, :created_by)
		RETURNING id`

	rows, err := tx.NamedQuery(insertQuery, incident)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	if rows.Next() {
		if err = rows.Scan(&incident.ID); err != nil {
			rows.Close()
			return fmt.Errorf("scan incident id: %w", err)
		}
	}
	if err = rows.Close(); err != nil {
		return fmt.Errorf("close insert rows: %w", err)
	}

	for i := range documents {
		documents[i].IncidentID = incident.ID
		documents[i].CreatedAt = now
		const docQuery = `INSERT INTO incident_documents (incident_id, title, url, created_at)
			VALUES ($1, $2, $3, $4) RETURNING id`
		if err = tx.GetContext(ctx, &documents[i].ID, docQuery,
			documents[i].IncidentID, documents[i].Title, documents[i].URL, documents[i].CreatedAt); err != nil {
			return fmt.Errorf("create incident document: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create incident: %w", err)
	}
	return nil
}

// Update persists every mutable field of the incident. created_at and
// created_by are write-once and never touched here.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	incident.UpdatedAt = time.Now().UTC()
	const query = `UPDATE incidents SET title = :title, description = :description,
		level = :level, scope = :scope,
		safety_compliance = :safety_compliance, security_privacy = :security_privacy,
		data_quality = :data_quality, psd2_impact = :psd2_impact,
		started_at = :started_at, detected_at = :detected_at,
		time_format = :time_format, detection_source = :detection_source,
		incident_type = :incident_type,
		impacted_locations = :impacted_locations, impacted_parties = :impacted_parties,
		impacted_assets = :impacted_assets, impacted_areas = :impacted_areas,
		incident_commander = :incident_commander, reporting_org = :reporting_org,
		estimated_time_to_mitigation = :estimated_time_to_mitigation,
		first_detected_in = :first_detected_in,
		additional_subscribers = :additional_subscribers,
		safety_compliance_document_url = :safety_compliance_document_url,
		l5_confirmation = :l5_confirmation,
		mitigation_policy_acknowledgment = :mitigation_policy_acknowledgment,
		send_email_notifications = :send_email_notifications,
		status = :status, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status column only.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE incidents SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}
	return nil
}

// ReplaceDocuments swaps the incident's full document set atomically.
func (r *IncidentRepository) ReplaceDocuments(ctx context.Context, incidentID int64, documents []models.IncidentDocument) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace documents: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM incident_documents WHERE incident_id = $1`, incidentID); err != nil {
		return fmt.Errorf("delete incident documents: %w", err)
	}

	now := time.Now().UTC()
	for i := range documents {
		documents[i].IncidentID = incidentID
		documents[i].CreatedAt = now
		const query = `INSERT INTO incident_documents (incident_id, title, url, created_at)
			VALUES ($1, $2, $3, $4) RETURNING id`
		if err = tx.GetContext(ctx, &documents[i].ID, query,
			incidentID, documents[i].Title, documents[i].URL, documents[i].CreatedAt); err != nil {
			return fmt.Errorf("insert incident document: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace documents: %w", err)
	}
	return nil
}

// Delete removes the incident and cascades to its documents and updates
// in one transaction.
func (r *IncidentRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete incident: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM incident_updates WHERE incident_id = $1`, id); err != nil {
		return fmt.Errorf("delete incident updates: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM incident_documents WHERE incident_id = $1`, id); err != nil {
		return fmt.Errorf("delete incident documents: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete incident: %w", err)
	}
	return nil
}

// statRow is one cell of the grouped statistics scan.
type statRow struct {
	Level  string `db:"level"`
	Scope  string `db:"scope"`
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// GroupedCounts returns per (level, scope, status) counts within the
// filtered scope. The service folds these into the statistics payload.
func (r *IncidentRepository) GroupedCounts(ctx context.Context, filter models.IncidentFilter) ([]models.StatisticsCell, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT level, scope, status, COUNT(*) AS count FROM incidents WHERE %s GROUP BY level, scope, status`, where)

	var rows []statRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("incident statistics: %w", err)
	}

	cells := make([]models.StatisticsCell, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, models.StatisticsCell{
			Level:  row.Level,
			Scope:  row.Scope,
			Status: row.Status,
			Count:  row.Count,
		})
	}
	return cells, nil
}

// Critical lists L5 Medium/High incidents, newest first.
func (r *IncidentRepository) Critical(ctx context.Context) ([]models.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents
		WHERE level = $1 AND scope = ANY($2)
		ORDER BY created_at DESC, id DESC`, incidentColumns)

	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, query,
		models.LevelL5, pq.Array([]string{models.ScopeMedium, models.ScopeHigh})); err != nil {
		return nil, fmt.Errorf("list critical incidents: %w", err)
	}
	return incidents, nil
}
