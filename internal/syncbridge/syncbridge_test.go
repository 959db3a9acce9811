package syncbridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

type fakeStore struct {
	core.Store

	works          map[string]*models.InstrumentWork
	expressions    map[string]*models.InstrumentExpression
	manifestations map[string]*models.InstrumentManifestation
	jurisdictions  map[string]*models.Jurisdiction
	authorities    map[string]*models.IssuingAuthority
	units          map[string]*models.LegalUnit
	files          map[string][]models.FileAsset
	jobs           map[string]*models.SyncJob
	due            []models.SyncJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		works:          map[string]*models.InstrumentWork{},
		expressions:    map[string]*models.InstrumentExpression{},
		manifestations: map[string]*models.InstrumentManifestation{},
		jurisdictions:  map[string]*models.Jurisdiction{},
		authorities:    map[string]*models.IssuingAuthority{},
		units:          map[string]*models.LegalUnit{},
		files:          map[string][]models.FileAsset{},
		jobs:           map[string]*models.SyncJob{},
	}
}

func lookup[T any](m map[string]*T, id string) (*T, error) {
	if v, ok := m[id]; ok {
		return v, nil
	}
	return nil, core.ErrNotFound
}

func (s *fakeStore) GetWork(_ context.Context, id string) (*models.InstrumentWork, error) {
	return lookup(s.works, id)
}

func (s *fakeStore) GetExpression(_ context.Context, id string) (*models.InstrumentExpression, error) {
	return lookup(s.expressions, id)
}

func (s *fakeStore) GetManifestation(_ context.Context, id string) (*models.InstrumentManifestation, error) {
	return lookup(s.manifestations, id)
}

func (s *fakeStore) GetJurisdiction(_ context.Context, id string) (*models.Jurisdiction, error) {
	return lookup(s.jurisdictions, id)
}

func (s *fakeStore) GetAuthority(_ context.Context, id string) (*models.IssuingAuthority, error) {
	return lookup(s.authorities, id)
}

func (s *fakeStore) GetUnit(_ context.Context, id string) (*models.LegalUnit, error) {
	return lookup(s.units, id)
}

func (s *fakeStore) ListFilesByManifestation(_ context.Context, id string) ([]models.FileAsset, error) {
	return s.files[id], nil
}

func (s *fakeStore) DueSyncJobs(_ context.Context, _ time.Time, _ int) ([]models.SyncJob, error) {
	return s.due, nil
}

func (s *fakeStore) UpdateSyncJob(_ context.Context, j *models.SyncJob) error {
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func seedDocument(s *fakeStore) {
	s.jurisdictions["jur-1"] = &models.Jurisdiction{ID: "jur-1", Name: "ملی", Code: "IR", IsActive: true}
	s.authorities["auth-1"] = &models.IssuingAuthority{ID: "auth-1", Name: "مجلس شورای اسلامی", Code: "PARL", JurisdictionID: "jur-1", IsActive: true}
	s.works["work-1"] = &models.InstrumentWork{
		ID: "work-1", TitleOfficial: "قانون مدنی", DocType: models.DocTypeLaw,
		JurisdictionID: "jur-1", AuthorityID: "auth-1", LocalSlug: "ghanun-madani",
	}
	s.expressions["expr-1"] = &models.InstrumentExpression{
		ID: "expr-1", WorkID: "work-1", Language: "fa",
		ConsolidationLevel: models.ConsolidationBase,
		ExpressionDate:     time.Date(1928, 5, 8, 0, 0, 0, 0, time.UTC),
	}
	s.manifestations["man-1"] = &models.InstrumentManifestation{
		ID: "man-1", ExprID: "expr-1",
		PublicationDate: time.Date(1928, 5, 20, 0, 0, 0, 0, time.UTC),
		RepealStatus:    models.RepealInForce,
	}
}

type fakeObjects struct{}

func (fakeObjects) UploadFile(context.Context, string, string, []byte, string) (string, error) {
	return "", errors.New("not implemented")
}
func (fakeObjects) DeleteFile(context.Context, string, string) error { return nil }
func (fakeObjects) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + bucket + "/" + key + "?sig=abc", nil
}

func TestDocumentPayloadNestsRelatedEntities(t *testing.T) {
	store := newFakeStore()
	seedDocument(store)
	store.files["man-1"] = []models.FileAsset{{
		ID: "file-1", ManifestationID: "man-1", Bucket: "qanun-files",
		ObjectKey: "man-1/gazette.pdf", OriginalFilename: "gazette.pdf",
		ContentType: "application/pdf", SizeBytes: 1024, SHA256: strings.Repeat("a", 64),
	}}

	b := NewPayloadBuilder(store, fakeObjects{}, time.Hour)
	payload, err := b.Build(context.Background(), &models.SyncJob{JobType: models.SyncDocument, TargetID: "man-1"})
	require.NoError(t, err)

	assert.Equal(t, "document", payload["type"])
	work := payload["work"].(map[string]any)
	assert.Equal(t, "قانون مدنی", work["title_official"])
	expr := payload["expression"].(map[string]any)
	assert.Equal(t, "1928-05-08", expr["expression_date"])
	man := payload["manifestation"].(map[string]any)
	assert.Nil(t, man["in_force_to"])

	files := payload["files"].([]map[string]any)
	require.Len(t, files, 1)
	assert.Equal(t, "https://files.example.com/qanun-files/man-1/gazette.pdf?sig=abc", files[0]["download_url"])
}

func TestUnitPayload(t *testing.T) {
	store := newFakeStore()
	store.units["unit-1"] = &models.LegalUnit{
		ID: "unit-1", ExprID: "expr-1", UnitType: models.UnitArticle,
		Label: "ماده ۱۰", Number: "10", PathLabel: "فصل اول > ماده ۱۰",
		Content: "متن ماده", ELIFragment: "art_10",
	}

	b := NewPayloadBuilder(store, nil, time.Hour)
	payload, err := b.Build(context.Background(), &models.SyncJob{JobType: models.SyncUnit, TargetID: "unit-1"})
	require.NoError(t, err)

	unit := payload["unit"].(map[string]any)
	assert.Equal(t, "فصل اول > ماده ۱۰", unit["path_label"])
	assert.Equal(t, "متن ماده", unit["content"])
}

func TestBuildUnknownJobType(t *testing.T) {
	b := NewPayloadBuilder(newFakeStore(), nil, time.Hour)
	_, err := b.Build(context.Background(), &models.SyncJob{JobType: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sync job type")
}

func TestClientPushSendsTokenAndRawPersian(t *testing.T) {
	var gotToken string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Bridge-Token")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		assert.Equal(t, "/sync/import", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	err := c.Push(context.Background(), map[string]any{
		"title": "قانون مدنی",
		"note":  "اصلاحی <۱۳۷۰> & الحاقی",
	})
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotToken)
	assert.Contains(t, gotBody, "قانون مدنی")
	assert.NotContains(t, gotBody, `\u0642`)
	// HTML escaping is off, so angle brackets and ampersands stay literal.
	assert.Contains(t, gotBody, "<۱۳۷۰> &")
}

func TestClientPushNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong")
	err := c.Push(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "bad token")
}

func TestWorkerDeliverSuccess(t *testing.T) {
	store := newFakeStore()
	store.units["unit-1"] = &models.LegalUnit{ID: "unit-1", ExprID: "expr-1", UnitType: models.UnitArticle}
	store.due = []models.SyncJob{{
		ID: "job-1", JobType: models.SyncUnit, TargetID: "unit-1",
		Status: models.SyncPending, MaxRetries: 3,
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWorker(store, NewPayloadBuilder(store, nil, time.Hour), NewClient(srv.URL, "t"), logger.NewNop(), time.Second)
	w.RunOnce(context.Background())

	job := store.jobs["job-1"]
	require.NotNil(t, job)
	assert.Equal(t, models.SyncSuccess, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestWorkerDeliverFailureSchedulesRetry(t *testing.T) {
	store := newFakeStore()
	store.units["unit-1"] = &models.LegalUnit{ID: "unit-1", ExprID: "expr-1", UnitType: models.UnitArticle}
	store.due = []models.SyncJob{{
		ID: "job-1", JobType: models.SyncUnit, TargetID: "unit-1",
		Status: models.SyncPending, MaxRetries: 3,
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewWorker(store, NewPayloadBuilder(store, nil, time.Hour), NewClient(srv.URL, "t"), logger.NewNop(), time.Second)
	w.RunOnce(context.Background())

	job := store.jobs["job-1"]
	require.NotNil(t, job)
	assert.Equal(t, models.SyncError, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	require.NotNil(t, job.NextRetryAt)
	assert.Contains(t, job.LastError, "503")
}

func TestWorkerBuildFailureCountsAsError(t *testing.T) {
	store := newFakeStore()
	store.due = []models.SyncJob{{
		ID: "job-1", JobType: models.SyncUnit, TargetID: "missing",
		Status: models.SyncPending, MaxRetries: 3,
	}}

	w := NewWorker(store, NewPayloadBuilder(store, nil, time.Hour), NewClient("http://127.0.0.1:0", "t"), logger.NewNop(), time.Second)
	w.RunOnce(context.Background())

	job := store.jobs["job-1"]
	require.NotNil(t, job)
	assert.Equal(t, models.SyncError, job.Status)
	assert.Contains(t, job.LastError, "not found")
}
