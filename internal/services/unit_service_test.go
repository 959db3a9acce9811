package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

type fakeStore struct {
	core.Store

	expressions map[string]*models.InstrumentExpression
	units       map[string]*models.LegalUnit
	chunkCounts map[string]int
	deleted     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expressions: map[string]*models.InstrumentExpression{},
		units:       map[string]*models.LegalUnit{},
		chunkCounts: map[string]int{},
	}
}

func (s *fakeStore) GetExpression(_ context.Context, id string) (*models.InstrumentExpression, error) {
	if e, ok := s.expressions[id]; ok {
		return e, nil
	}
	return nil, core.ErrNotFound
}

func (s *fakeStore) GetUnit(_ context.Context, id string) (*models.LegalUnit, error) {
	if u, ok := s.units[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (s *fakeStore) CreateUnit(_ context.Context, u *models.LegalUnit) error {
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateUnit(_ context.Context, u *models.LegalUnit) error {
	if _, ok := s.units[u.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteUnit(_ context.Context, id string) error {
	if _, ok := s.units[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.units, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) CountChunksByUnit(_ context.Context, id string) (int, error) {
	return s.chunkCounts[id], nil
}

type schedulerRecorder struct {
	saved   []string
	changed []bool
	created []bool
	deleted []string
}

func (r *schedulerRecorder) UnitSaved(u *models.LegalUnit, created, contentChanged bool) {
	r.saved = append(r.saved, u.ID)
	r.created = append(r.created, created)
	r.changed = append(r.changed, contentChanged)
}

func (r *schedulerRecorder) ExpressionCreated(_ context.Context, exprID string) {}

func (r *schedulerRecorder) UnitDeleted(unitID string, chunkCount int) {
	r.deleted = append(r.deleted, unitID)
}

func seedExpression(s *fakeStore) {
	s.expressions["expr-1"] = &models.InstrumentExpression{ID: "expr-1", WorkID: "work-1"}
}

func TestCreateUnitComputesPathLabel(t *testing.T) {
	store := newFakeStore()
	seedExpression(store)
	rec := &schedulerRecorder{}
	svc := NewUnitService(store, rec)

	chapter, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitChapter, Label: "فصل اول",
	})
	require.NoError(t, err)
	assert.Equal(t, "فصل اول", chapter.PathLabel)

	article, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", ParentID: chapter.ID, UnitType: models.UnitArticle, Label: "ماده ۱",
	})
	require.NoError(t, err)
	assert.Equal(t, "فصل اول > ماده ۱", article.PathLabel)

	note, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", ParentID: article.ID, UnitType: models.UnitNote, Label: "تبصره",
	})
	require.NoError(t, err)
	assert.Equal(t, "فصل اول > ماده ۱ > تبصره", note.PathLabel)
}

func TestCreateUnitNotifiesScheduler(t *testing.T) {
	store := newFakeStore()
	seedExpression(store)
	rec := &schedulerRecorder{}
	svc := NewUnitService(store, rec)

	u, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitArticle, Label: "ماده ۱", Content: "متن",
	})
	require.NoError(t, err)
	require.Len(t, rec.saved, 1)
	assert.Equal(t, u.ID, rec.saved[0])
	assert.True(t, rec.created[0])
}

func TestUpdateUnitDetectsContentChange(t *testing.T) {
	store := newFakeStore()
	seedExpression(store)
	rec := &schedulerRecorder{}
	svc := NewUnitService(store, rec)

	u, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitArticle, Label: "ماده ۱", Content: "متن قدیم",
	})
	require.NoError(t, err)

	// Metadata-only edit.
	u.OrderIndex = 5
	_, err = svc.Update(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, rec.changed[len(rec.changed)-1])

	// Content edit.
	u.Content = "متن جدید"
	_, err = svc.Update(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, rec.changed[len(rec.changed)-1])
}

func TestUpdateUnitRecomputesPathLabelOnReparent(t *testing.T) {
	store := newFakeStore()
	seedExpression(store)
	svc := NewUnitService(store, &schedulerRecorder{})

	a, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitChapter, Label: "فصل اول",
	})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitChapter, Label: "فصل دوم",
	})
	require.NoError(t, err)
	art, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", ParentID: a.ID, UnitType: models.UnitArticle, Label: "ماده ۳",
	})
	require.NoError(t, err)

	art.ParentID = b.ID
	updated, err := svc.Update(context.Background(), art)
	require.NoError(t, err)
	assert.Equal(t, "فصل دوم > ماده ۳", updated.PathLabel)
}

func TestDeleteUnitReportsChunkCount(t *testing.T) {
	store := newFakeStore()
	seedExpression(store)
	rec := &schedulerRecorder{}
	svc := NewUnitService(store, rec)

	u, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "expr-1", UnitType: models.UnitArticle, Label: "ماده ۱", Content: "متن",
	})
	require.NoError(t, err)
	store.chunkCounts[u.ID] = 4

	require.NoError(t, svc.Delete(context.Background(), u.ID))
	assert.Equal(t, []string{u.ID}, store.deleted)
	assert.Equal(t, []string{u.ID}, rec.deleted)
}

func TestCreateUnitRejectsMissingExpression(t *testing.T) {
	svc := NewUnitService(newFakeStore(), &schedulerRecorder{})
	_, err := svc.Create(context.Background(), &models.LegalUnit{
		ExprID: "missing", UnitType: models.UnitArticle, Label: "ماده ۱",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
