package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statuscore/incident-registry/internal/choices"
	"github.com/statuscore/incident-registry/internal/models"
)

const testSharedConfig = `{
  "incident": {
    "levels": [
      {"value": "L2", "label": "L2"},
      {"value": "L3", "label": "L3"},
      {"value": "L4", "label": "L4"},
      {"value": "L5", "label": "L5"}
    ],
    "scopes": [
      {"value": "Low", "label": "Low"},
      {"value": "Medium", "label": "Medium"},
      {"value": "High", "label": "High"}
    ],
    "types": [
      {"value": "Planned", "label": "Planned"},
      {"value": "Outage", "label": "Outage"},
      {"value": "External", "label": "External"},
      {"value": "Test", "label": "Test"}
    ],
    "statuses": [
      {"value": "reported", "label": "Reported"},
      {"value": "mitigating", "label": "Mitigating"},
      {"value": "resolved", "label": "Resolved"},
      {"value": "postmortem", "label": "Postmortem"},
      {"value": "closed", "label": "Closed"}
    ],
    "impactOptions": [
      {"value": "None", "label": "None"},
      {"value": "Low", "label": "Low"},
      {"value": "Medium", "label": "Medium"},
      {"value": "High", "label": "High"},
      {"value": "Critical", "label": "Critical"}
    ],
    "timeFormats": [
      {"value": "Local Time", "label": "Local Time"},
      {"value": "UTC", "label": "UTC"}
    ],
    "detectionSources": [
      {"value": "Manual", "label": "Manual"},
      {"value": "Monitoring", "label": "Monitoring"},
      {"value": "Customer", "label": "Customer"},
      {"value": "Partner", "label": "Partner"}
    ],
    "updateTypes": [
      {"value": "update", "label": "Update"},
      {"value": "mitigation", "label": "Mitigation"},
      {"value": "resolution", "label": "Resolution"},
      {"value": "note", "label": "Note"}
    ],
    "impactedLocations": [
      {"value": "EU", "label": "EU"},
      {"value": "US", "label": "US"},
      {"value": "APAC", "label": "APAC"},
      {"value": "Global", "label": "Global"}
    ],
    "impactedParties": [
      {"value": "Customers", "label": "Customers"},
      {"value": "Merchants", "label": "Merchants"},
      {"value": "Partners", "label": "Partners"},
      {"value": "Internal", "label": "Internal"}
    ]
  }
}`

func newTestRegistry(t *testing.T) *choices.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared-config.json")
	require.NoError(t, os.WriteFile(path, []byte(testSharedConfig), 0o600))
	registry, err := choices.Load(path)
	require.NoError(t, err)
	return registry
}

// stubIncidentRepo is a hand-rolled incidentRepository double.
type stubIncidentRepo struct {
	incidents map[int64]models.Incident

	listItems  []models.Incident
	listTotal  int
	listErr    error
	lastFilter models.IncidentFilter

	created     *models.Incident
	createdDocs []models.IncidentDocument
	updated     *models.Incident

	statusCalls  []string
	replacedDocs []models.IncidentDocument
	replaceCalls int
	deleted      []int64

	cells      []models.StatisticsCell
	groupCalls int
	critical   []models.Incident
}

func newStubIncidentRepo() *stubIncidentRepo {
	return &stubIncidentRepo{incidents: map[int64]models.Incident{}}
}

func (r *stubIncidentRepo) List(_ context.Context, filter models.IncidentFilter) ([]models.Incident, int, error) {
	r.lastFilter = filter
	return r.listItems, r.listTotal, r.listErr
}

func (r *stubIncidentRepo) FindByID(_ context.Context, id int64) (*models.Incident, error) {
	incident, ok := r.incidents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := incident
	return &copied, nil
}

func (r *stubIncidentRepo) Create(_ context.Context, incident *models.Incident, documents []models.IncidentDocument) error {
	incident.ID = 42
	r.created = incident
	r.createdDocs = documents
	return nil
}

func (r *stubIncidentRepo) Update(_ context.Context, incident *models.Incident) error {
	r.updated = incident
	r.incidents[incident.ID] = *incident
	return nil
}

func (r *stubIncidentRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	r.statusCalls = append(r.statusCalls, status)
	incident := r.incidents[id]
	incident.Status = status
	r.incidents[id] = incident
	return nil
}

func (r *stubIncidentRepo) ReplaceDocuments(_ context.Context, _ int64, documents []models.IncidentDocument) error {
	r.replaceCalls++
	r.replacedDocs = documents
	return nil
}

func (r *stubIncidentRepo) Delete(_ context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	delete(r.incidents, id)
	return nil
}

func (r *stubIncidentRepo) GroupedCounts(_ context.Context, _ models.IncidentFilter) ([]models.StatisticsCell, error) {
	r.groupCalls++
	return r.cells, nil
}

func (r *stubIncidentRepo) Critical(_ context.Context) ([]models.Incident, error) {
	return r.critical, nil
}

type stubDocumentLoader struct {
	documents []models.IncidentDocument
}

func (l *stubDocumentLoader) ListByIncident(_ context.Context, _ int64) ([]models.IncidentDocument, error) {
	return l.documents, nil
}

type stubUpdateLoader struct {
	updates []models.IncidentUpdate
}

func (l *stubUpdateLoader) ListByIncident(_ context.Context, _ int64) ([]models.IncidentUpdate, error) {
	return l.updates, nil
}

type stubStatsCache struct {
	stored *models.Statistics
	hits   int
	sets   int
}

func (c *stubStatsCache) Get(_ context.Context, _ models.IncidentFilter) (*models.Statistics, bool) {
	if c.stored == nil {
		return nil, false
	}
	c.hits++
	return c.stored, true
}

func (c *stubStatsCache) Set(_ context.Context, _ models.IncidentFilter, stats *models.Statistics) {
	c.sets++
	c.stored = stats
}
