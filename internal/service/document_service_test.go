package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/dto"
	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
)

type stubDocumentRepo struct {
	documents map[int64]models.IncidentDocument
	listed    []models.IncidentDocument
	created   *models.IncidentDocument
	updated   *models.IncidentDocument
	deleted   []int64
}

func newStubDocumentRepo() *stubDocumentRepo {
	return &stubDocumentRepo{documents: map[int64]models.IncidentDocument{}}
}

func (r *stubDocumentRepo) List(_ context.Context, _ models.DocumentFilter) ([]models.IncidentDocument, error) {
	return r.listed, nil
}

func (r *stubDocumentRepo) FindByID(_ context.Context, id int64) (*models.IncidentDocument, error) {
	document, ok := r.documents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := document
	return &copied, nil
}

func (r *stubDocumentRepo) Create(_ context.Context, document *models.IncidentDocument) error {
	document.ID = 11
	r.created = document
	return nil
}

func (r *stubDocumentRepo) Update(_ context.Context, document *models.IncidentDocument) error {
	r.updated = document
	r.documents[document.ID] = *document
	return nil
}

func (r *stubDocumentRepo) Delete(_ context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	delete(r.documents, id)
	return nil
}

func TestDocumentServiceCreate(t *testing.T) {
	incidents := newStubIncidentRepo()
	incidents.incidents[7] = models.Incident{ID: 7}
	repo := newStubDocumentRepo()
	svc := NewDocumentService(incidents, repo, nil, zap.NewNop())

	document, err := svc.Create(context.Background(), dto.DocumentRequest{
		IncidentID: 7,
		Title:      "Postmortem",
		URL:        "https://wiki.internal/postmortem",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(11), document.ID)
	assert.Equal(t, int64(7), document.IncidentID)
	require.NotNil(t, repo.created)
}

func TestDocumentServiceCreateUnknownIncident(t *testing.T) {
	svc := NewDocumentService(newStubIncidentRepo(), newStubDocumentRepo(), nil, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.DocumentRequest{
		IncidentID: 404,
		Title:      "Postmortem",
		URL:        "https://wiki.internal/postmortem",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceCreateRejectsBadURL(t *testing.T) {
	incidents := newStubIncidentRepo()
	incidents.incidents[7] = models.Incident{ID: 7}
	svc := NewDocumentService(incidents, newStubDocumentRepo(), nil, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.DocumentRequest{
		IncidentID: 7,
		Title:      "Postmortem",
		URL:        "not a url",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUpdateKeepsParent(t *testing.T) {
	repo := newStubDocumentRepo()
	repo.documents[11] = models.IncidentDocument{ID: 11, IncidentID: 7, Title: "Old", URL: "https://old.example.com"}
	svc := NewDocumentService(newStubIncidentRepo(), repo, nil, zap.NewNop())

	document, err := svc.Update(context.Background(), 11, dto.DocumentRequest{
		IncidentID: 99,
		Title:      "New",
		URL:        "https://new.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "New", document.Title)
	assert.Equal(t, int64(7), document.IncidentID)
}

func TestDocumentServicePatchAppliesOnlySuppliedFields(t *testing.T) {
	repo := newStubDocumentRepo()
	repo.documents[11] = models.IncidentDocument{ID: 11, IncidentID: 7, Title: "Old", URL: "https://old.example.com"}
	svc := NewDocumentService(newStubIncidentRepo(), repo, nil, zap.NewNop())

	title := "Renamed"
	document, err := svc.Patch(context.Background(), 11, dto.DocumentPatchRequest{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", document.Title)
	assert.Equal(t, "https://old.example.com", document.URL)
	assert.Equal(t, int64(7), document.IncidentID)
}

func TestDocumentServicePatchRejectsBadURL(t *testing.T) {
	repo := newStubDocumentRepo()
	repo.documents[11] = models.IncidentDocument{ID: 11, IncidentID: 7, Title: "Old", URL: "https://old.example.com"}
	svc := NewDocumentService(newStubIncidentRepo(), repo, nil, zap.NewNop())

	bad := "not a url"
	_, err := svc.Patch(context.Background(), 11, dto.DocumentPatchRequest{URL: &bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestDocumentServiceDeleteNotFound(t *testing.T) {
	svc := NewDocumentService(newStubIncidentRepo(), newStubDocumentRepo(), nil, zap.NewNop())

	err := svc.Delete(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceListNeverNil(t *testing.T) {
	svc := NewDocumentService(newStubIncidentRepo(), newStubDocumentRepo(), nil, zap.NewNop())

	documents, err := svc.List(context.Background(), models.DocumentFilter{})
	require.NoError(t, err)
	require.NotNil(t, documents)
	assert.Empty(t, documents)
}
