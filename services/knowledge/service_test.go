package knowledge

import (
	"context"
	"testing"

	"github.com/bscm/assistant-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRepo struct {
	listed        bool
	searched      bool
	gotKeyword    string
	gotAnswers    bool
	gotCategory   models.KnowledgeCategory
	searchResults []*models.KnowledgeEntry
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	return nil, nil
}

func (f *fakeRepo) ListByCategory(ctx context.Context, category models.KnowledgeCategory) ([]*models.KnowledgeEntry, error) {
	f.listed = true
	f.gotCategory = category
	return f.searchResults, nil
}

func (f *fakeRepo) SearchByKeyword(ctx context.Context, category models.KnowledgeCategory, keyword string, searchAnswers bool) ([]*models.KnowledgeEntry, error) {
	f.searched = true
	f.gotCategory = category
	f.gotKeyword = keyword
	f.gotAnswers = searchAnswers
	return f.searchResults, nil
}

func (f *fakeRepo) ListMissingEmbeddings(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float64) error {
	return nil
}

func TestBrowseListsWithoutKeyword(t *testing.T) {
	repo := &fakeRepo{searchResults: []*models.KnowledgeEntry{{ID: 1}}}
	svc := NewService(repo, zaptest.NewLogger(t))

	entries, err := svc.Browse(context.Background(), models.CategoryBasicKnowledge, "   ", false)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, repo.listed)
	assert.False(t, repo.searched)
	assert.Equal(t, models.CategoryBasicKnowledge, repo.gotCategory)
}

func TestBrowseSearchesWithKeyword(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, zaptest.NewLogger(t))

	_, err := svc.Browse(context.Background(), models.CategoryCaseStudy, " 症状 ", true)

	require.NoError(t, err)
	assert.True(t, repo.searched)
	assert.False(t, repo.listed)
	assert.Equal(t, "症状", repo.gotKeyword)
	assert.True(t, repo.gotAnswers)
}

func TestBrowseRejectsInvalidCategory(t *testing.T) {
	svc := NewService(&fakeRepo{}, zaptest.NewLogger(t))

	_, err := svc.Browse(context.Background(), models.KnowledgeCategory("bogus"), "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid knowledge category")
}
