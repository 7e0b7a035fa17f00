package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
)

func newIncidentService(t *testing.T, repo *stubIncidentRepo) *IncidentService {
	t.Helper()
	return NewIncidentService(repo, &stubDocumentLoader{}, &stubUpdateLoader{}, newTestRegistry(t), nil, nil, zap.NewNop())
}

func timePtr(t time.Time) *time.Time { return &t }

func validCreateRequest() dto.CreateIncidentRequest {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	detected := started.Add(5 * time.Minute)
	return dto.CreateIncidentRequest{
		Title:      "Payments latency spike",
		Level:      "L3",
		Scope:      "Low",
		StartedAt:  &started,
		DetectedAt: &detected,
	}
}

func TestIncidentServiceCreateAppliesDefaults(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newIncidentService(t, repo)

	detail, err := svc.Create(context.Background(), validCreateRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, "reported", detail.Status)
	assert.Equal(t, "Local Time", detail.TimeFormat)
	assert.Equal(t, "Manual", detail.DetectionSource)
	assert.Equal(t, "Planned", detail.IncidentType)
	assert.Equal(t, "unknown", detail.EstimatedTimeToMitigation)
	assert.True(t, detail.SendEmailNotifications)
	assert.Nil(t, detail.CreatedBy)
	require.NotNil(t, repo.created)
	assert.Equal(t, int64(42), detail.ID)
}

func TestIncidentServiceCreateValidationRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateIncidentRequest)
		field  string
	}{
		{
			name:   "missing started_at",
			mutate: func(r *dto.CreateIncidentRequest) { r.StartedAt = nil },
			field:  "started_at",
		},
		{
			name:   "missing detected_at",
			mutate: func(r *dto.CreateIncidentRequest) { r.DetectedAt = nil },
			field:  "detected_at",
		},
		{
			name: "detected before started",
			mutate: func(r *dto.CreateIncidentRequest) {
				r.DetectedAt = timePtr(r.StartedAt.Add(-time.Minute))
			},
			field: "detected_at",
		},
		{
			name: "l5 low without confirmation",
			mutate: func(r *dto.CreateIncidentRequest) {
				r.Level = "L5"
				r.Scope = "Low"
			},
			field: "l5_confirmation",
		},
		{
			name: "l5 medium without policy acknowledgment",
			mutate: func(r *dto.CreateIncidentRequest) {
				r.Level = "L5"
				r.Scope = "Medium"
				r.L5Confirmation = true
			},
			field: "mitigation_policy_acknowledgment",
		},
		{
			name: "l5 high without policy acknowledgment",
			mutate: func(r *dto.CreateIncidentRequest) {
				r.Level = "L5"
				r.Scope = "High"
				r.L5Confirmation = true
			},
			field: "mitigation_policy_acknowledgment",
		},
		{
			name:   "unknown level",
			mutate: func(r *dto.CreateIncidentRequest) { r.Level = "L9" },
			field:  "level",
		},
		{
			name:   "unknown impact option",
			mutate: func(r *dto.CreateIncidentRequest) { r.SafetyCompliance = "Severe" },
			field:  "safety_compliance",
		},
		{
			name:   "unknown status",
			mutate: func(r *dto.CreateIncidentRequest) { r.Status = "archived" },
			field:  "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubIncidentRepo()
			svc := newIncidentService(t, repo)

			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req, nil)
			require.Error(t, err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
			assert.Nil(t, repo.created)
		})
	}
}

func TestIncidentServiceCreateAcceptsSevereNonL5(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newIncidentService(t, repo)

	req := validCreateRequest()
	req.Level = "L4"
	req.Scope = "High"

	_, err := svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
}

func TestIncidentServiceCreateAcceptsConfirmedL5(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newIncidentService(t, repo)

	req := validCreateRequest()
	req.Level = "L5"
	req.Scope = "High"
	req.L5Confirmation = true
	req.MitigationPolicyAcknowledgment = true

	detail, err := svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, detail.IsL5High)
	assert.True(t, detail.RequiresMitigationPolicy)
}

func TestIncidentServiceCreateDropsIncompleteDocumentStubs(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newIncidentService(t, repo)

	req := validCreateRequest()
	req.RelatedDocuments = []dto.DocumentStub{
		{Title: "Runbook", URL: "https://wiki.internal/runbook"},
		{Title: "Missing url"},
		{URL: "https://wiki.internal/orphan"},
	}

	detail, err := svc.Create(context.Background(), req, nil)
	require.NoError(t, err)

	require.Len(t, repo.createdDocs, 1)
	assert.Equal(t, "Runbook", repo.createdDocs[0].Title)
	require.Len(t, detail.Documents, 1)
}

func TestIncidentServiceCreateRecordsActor(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newIncidentService(t, repo)

	claims := &models.JWTClaims{UserID: "u-17", Email: "oncall@example.com"}
	detail, err := svc.Create(context.Background(), validCreateRequest(), claims)
	require.NoError(t, err)

	require.NotNil(t, detail.CreatedBy)
	assert.Equal(t, "oncall@example.com", *detail.CreatedBy)
}

func TestIncidentServiceReplaceKeepsStatusWhenOmitted(t *testing.T) {
	repo := newStubIncidentRepo()
	createdBy := "reporter@example.com"
	createdAt := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	repo.incidents[7] = models.Incident{
		ID:        7,
		Title:     "Old title",
		Level:     "L3",
		Scope:     "Low",
		Status:    "mitigating",
		CreatedAt: createdAt,
		CreatedBy: &createdBy,
	}
	svc := newIncidentService(t, repo)

	detail, err := svc.Replace(context.Background(), 7, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "mitigating", detail.Status)
	assert.Equal(t, createdAt, detail.CreatedAt)
	require.NotNil(t, detail.CreatedBy)
	assert.Equal(t, createdBy, *detail.CreatedBy)
	assert.Equal(t, "Payments latency spike", detail.Title)
}

func TestIncidentServicePatchLeavesUnsetFieldsAlone(t *testing.T) {
	repo := newStubIncidentRepo()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	detected := started.Add(time.Minute)
	repo.incidents[7] = models.Incident{
		ID:         7,
		Title:      "Old title",
		Level:      "L4",
		Scope:      "Medium",
		Status:     "reported",
		TimeFormat: "UTC",
		StartedAt:  &started,
		DetectedAt: &detected,
	}
	svc := newIncidentService(t, repo)

	title := "Renamed incident"
	detail, err := svc.Update(context.Background(), 7, dto.UpdateIncidentRequest{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Renamed incident", detail.Title)
	assert.Equal(t, "L4", detail.Level)
	assert.Equal(t, "Medium", detail.Scope)
	assert.Equal(t, "UTC", detail.TimeFormat)
	assert.Zero(t, repo.replaceCalls)
}

func TestIncidentServicePatchEnforcesRulesOnMergedState(t *testing.T) {
	repo := newStubIncidentRepo()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	detected := started.Add(time.Minute)
	repo.incidents[7] = models.Incident{
		ID:         7,
		Title:      "Old title",
		Level:      "L4",
		Scope:      "Medium",
		Status:     "reported",
		StartedAt:  &started,
		DetectedAt: &detected,
	}
	svc := newIncidentService(t, repo)

	level := "L5"
	_, err := svc.Update(context.Background(), 7, dto.UpdateIncidentRequest{Level: &level})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Fields, "l5_confirmation")
	assert.Contains(t, appErr.Fields, "mitigation_policy_acknowledgment")
	assert.Nil(t, repo.updated)
}

func TestIncidentServiceUpdateStatusRejectsUnknownValue(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.incidents[7] = models.Incident{ID: 7, Status: "reported"}
	svc := newIncidentService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), 7, "escalated")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErr.Code)
	assert.Empty(t, repo.statusCalls)
	assert.Equal(t, "reported", repo.incidents[7].Status)
}

func TestIncidentServiceUpdateStatusOverwrites(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.incidents[7] = models.Incident{ID: 7, Status: "reported"}
	svc := newIncidentService(t, repo)

	detail, err := svc.UpdateStatus(context.Background(), 7, "resolved")
	require.NoError(t, err)

	assert.Equal(t, "resolved", detail.Status)
	assert.Equal(t, []string{"resolved"}, repo.statusCalls)
}

func TestIncidentServiceGetNotFound(t *testing.T) {
	svc := newIncidentService(t, newStubIncidentRepo())

	_, err := svc.Get(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIncidentServiceTimeline(t *testing.T) {
	repo := newStubIncidentRepo()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	detected := started.Add(5 * time.Minute)
	repo.incidents[7] = models.Incident{ID: 7, StartedAt: &started, DetectedAt: &detected}
	svc := newIncidentService(t, repo)

	now := func() time.Time { return started.Add(time.Hour) }
	timeline, err := svc.Timeline(context.Background(), 7, now)
	require.NoError(t, err)

	require.NotNil(t, timeline.TimeToDetection)
	assert.Equal(t, 300.0, *timeline.TimeToDetection)
	require.NotNil(t, timeline.TimeSinceStarted)
	assert.Equal(t, 3600.0, *timeline.TimeSinceStarted)
}

func TestIncidentServiceTimelineMissingTimes(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.incidents[7] = models.Incident{ID: 7}
	svc := newIncidentService(t, repo)

	timeline, err := svc.Timeline(context.Background(), 7, time.Now)
	require.NoError(t, err)

	assert.Nil(t, timeline.TimeToDetection)
	assert.Nil(t, timeline.TimeSinceStarted)
}

func TestIncidentServiceStatisticsFoldsGroupedCounts(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.cells = []models.StatisticsCell{
		{Level: "L3", Scope: "Low", Status: "reported", Count: 4},
		{Level: "L5", Scope: "High", Status: "mitigating", Count: 2},
		{Level: "L5", Scope: "Medium", Status: "resolved", Count: 1},
	}
	svc := newIncidentService(t, repo)

	stats, err := svc.Statistics(context.Background(), models.IncidentFilter{})
	require.NoError(t, err)

	assert.Equal(t, 7, stats.TotalIncidents)
	assert.Equal(t, 4, stats.ByLevel["L3"])
	assert.Equal(t, 3, stats.ByLevel["L5"])
	assert.Equal(t, 0, stats.ByLevel["L2"])
	assert.Equal(t, 2, stats.ByScope["High"])
	assert.Equal(t, 2, stats.ByStatus["mitigating"])
	assert.Equal(t, 0, stats.ByStatus["closed"])
	assert.Equal(t, 2, stats.L5HighIncidents)
	assert.Equal(t, 3, stats.CriticalIncidents)
}

func TestIncidentServiceStatisticsServedFromCache(t *testing.T) {
	repo := newStubIncidentRepo()
	cache := &stubStatsCache{stored: &models.Statistics{TotalIncidents: 9}}
	svc := NewIncidentService(repo, &stubDocumentLoader{}, &stubUpdateLoader{}, newTestRegistry(t), cache, nil, zap.NewNop())

	stats, err := svc.Statistics(context.Background(), models.IncidentFilter{Levels: []string{"L5"}})
	require.NoError(t, err)

	assert.Equal(t, 9, stats.TotalIncidents)
	assert.Zero(t, repo.groupCalls)
	assert.Equal(t, 1, cache.hits)
}

func TestIncidentServiceStatisticsPopulatesCache(t *testing.T) {
	repo := newStubIncidentRepo()
	cache := &stubStatsCache{}
	svc := NewIncidentService(repo, &stubDocumentLoader{}, &stubUpdateLoader{}, newTestRegistry(t), cache, nil, zap.NewNop())

	_, err := svc.Statistics(context.Background(), models.IncidentFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.groupCalls)
	assert.Equal(t, 1, cache.sets)
	require.NotNil(t, cache.stored)
}

func TestIncidentServiceListPaginationDefaults(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.listItems = []models.Incident{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	repo.listTotal = 31
	svc := newIncidentService(t, repo)

	summaries, pagination, err := svc.List(context.Background(), models.IncidentFilter{})
	require.NoError(t, err)

	assert.Len(t, summaries, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 31, pagination.TotalCount)
}

func TestIncidentServiceCritical(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.critical = []models.Incident{
		{ID: 3, Level: "L5", Scope: "High", Title: "db down"},
		{ID: 2, Level: "L5", Scope: "Medium", Title: "api degraded"},
	}
	svc := newIncidentService(t, repo)

	summaries, err := svc.Critical(context.Background())
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].IsL5High)
	assert.False(t, summaries[1].IsL5High)
}

func TestIncidentServiceDelete(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.incidents[7] = models.Incident{ID: 7}
	svc := newIncidentService(t, repo)

	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.Equal(t, []int64{7}, repo.deleted)

	err := svc.Delete(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
