package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type navSubjectsStub struct {
	levels   []models.Level
	terms    map[string][]models.Term
	subjects map[string][]models.Subject
	byID     map[string]*models.Subject
}

func (s *navSubjectsStub) ListLevels(ctx context.Context) ([]models.Level, error) {
	return s.levels, nil
}

func (s *navSubjectsStub) ListTermsByLevel(ctx context.Context, levelID string) ([]models.Term, error) {
	return s.terms[levelID], nil
}

func (s *navSubjectsStub) ListSubjects(ctx context.Context, levelID, termID string) ([]models.Subject, error) {
	return s.subjects[levelID+"/"+termID], nil
}

func (s *navSubjectsStub) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	return s.byID[id], nil
}

type navTaxonomyStub struct {
	sections map[string][]models.Section
	cards    map[string][]models.Card
}

func (s *navTaxonomyStub) ListSubjectSections(ctx context.Context, subjectID string) ([]models.Section, error) {
	return s.sections[subjectID], nil
}

func (s *navTaxonomyStub) ListCards(ctx context.Context, sectionID string, includeDisabled bool) ([]models.Card, error) {
	return s.cards[sectionID], nil
}

type navMaterialsStub struct {
	counts map[string]int
	rows   []dto.MaterialLeaf
}

func (s *navMaterialsStub) CountForCard(ctx context.Context, subjectID, sectionID, cardID string) (int, error) {
	return s.counts[cardID], nil
}

func (s *navMaterialsStub) ListLeaf(ctx context.Context, subjectID, sectionID, cardID string, limit int) ([]dto.MaterialLeaf, error) {
	return s.rows, nil
}

type navTermResStub struct {
	kinds  []string
	latest *models.TermResource
}

func (s *navTermResStub) ListKinds(ctx context.Context, levelID, termID string) ([]string, error) {
	return s.kinds, nil
}

func (s *navTermResStub) GetLatest(ctx context.Context, levelID, termID, kind string) (*models.TermResource, error) {
	return s.latest, nil
}

type navMetricsRecorder struct {
	hits   int
	misses int
	depths []int
}

func (r *navMetricsRecorder) ObserveNavCache(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *navMetricsRecorder) ObserveNavDepth(depth int) {
	r.depths = append(r.depths, depth)
}

type navFixture struct {
	subjects      *navSubjectsStub
	taxonomy      *navTaxonomyStub
	materials     *navMaterialsStub
	termResources *navTermResStub
	stack         *NavStackService
	metrics       *navMetricsRecorder
	cfg           config.NavConfig
}

func newNavFixture() *navFixture {
	return &navFixture{
		subjects: &navSubjectsStub{
			levels: []models.Level{
				{ID: "level-1", Name: "السنة الأولى", SortOrder: 1},
				{ID: "level-2", Name: "السنة الثانية", SortOrder: 2},
			},
			terms: map[string][]models.Term{
				"level-1": {{ID: "term-1", Name: "الفصل الأول"}},
			},
			subjects: map[string][]models.Subject{
				"level-1/term-1": {{ID: "subj-1", Code: "ANAT101", Name: "تشريح"}},
			},
			byID: map[string]*models.Subject{
				"subj-1": {ID: "subj-1", Name: "تشريح", SectionsMode: models.SectionsTheoryOnly},
			},
		},
		taxonomy: &navTaxonomyStub{
			sections: map[string][]models.Section{
				"subj-1": {
					{ID: "sec-theory", Key: "theory", LabelAR: "نظري"},
					{ID: "sec-lab", Key: "lab", LabelAR: "عملي"},
				},
			},
			cards: map[string][]models.Card{
				"sec-theory": {
					{ID: "card-lectures", Key: "lectures", LabelAR: "المحاضرات"},
					{ID: "card-exams", Key: "exams", LabelAR: "الاختبارات", ShowWhenEmpty: true},
				},
			},
		},
		materials:     &navMaterialsStub{counts: map[string]int{"card-lectures": 3}},
		termResources: &navTermResStub{},
		stack:         NewNavStackService(0, nil),
		metrics:       &navMetricsRecorder{},
	}
}

func (f *navFixture) service() *NavigationService {
	return NewNavigationService(
		f.subjects, f.taxonomy, f.materials, f.termResources,
		f.stack, nil, f.metrics, f.cfg, nil,
	)
}

func navAdmin() *models.Admin {
	return &models.Admin{ID: "admin-1", Role: models.RoleAdmin}
}

func TestViewRootListsLevels(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	resp, err := svc.View(context.Background(), "sess-1", navAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 2)
	require.Equal(t, "level-1", resp.Nodes[0].Key)
	require.Equal(t, dto.NodeLevel, resp.Nodes[0].Kind)
	require.Empty(t, resp.Breadcrumb)
}

func TestViewRootHonorsLevelScope(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	admin := navAdmin()
	admin.LevelScope = "level-2"

	resp, err := svc.View(context.Background(), "sess-1", admin)
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	require.Equal(t, "level-2", resp.Nodes[0].Key)
}

func TestNavigateEnterLevelListsTerms(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	resp, err := svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-1", Action: dto.NavEnter, ChildKey: "level-1",
	}, navAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	require.Equal(t, "term-1", resp.Nodes[0].Key)
	require.Equal(t, []string{"السنة الأولى"}, resp.Breadcrumb)
}

func TestNavigateEnterUnknownChild(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	_, err := svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-1", Action: dto.NavEnter, ChildKey: "level-9",
	}, navAdmin())
	require.Error(t, err)
	fromErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, fromErr.Code)
}

func TestTermChildrenIncludeResourceTiles(t *testing.T) {
	f := newNavFixture()
	f.termResources.kinds = []string{"study_plan"}
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	resp := enter(t, svc, "sess-1", "term-1")

	require.Len(t, resp.Nodes, 2)
	require.Equal(t, "subj-1", resp.Nodes[0].Key)
	require.Equal(t, dto.NodeResource, resp.Nodes[1].Kind)
	require.True(t, resp.Nodes[1].Leaf)
}

func TestSectionsModeFiltersSections(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	enter(t, svc, "sess-1", "term-1")
	resp := enter(t, svc, "sess-1", "subj-1")

	// theory_only hides the lab section even though it is enabled.
	require.Len(t, resp.Nodes, 1)
	require.Equal(t, "sec-theory", resp.Nodes[0].Key)
}

func TestAutoSkipCollapsesSingleSection(t *testing.T) {
	f := newNavFixture()
	f.cfg.AutoSkip = true
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	enter(t, svc, "sess-1", "term-1")
	resp := enter(t, svc, "sess-1", "subj-1")

	// Only one section passes the mode filter, so entering the subject
	// lands directly on its card list.
	require.Equal(t, []string{"السنة الأولى", "الفصل الأول", "تشريح", "نظري"}, resp.Breadcrumb)
	require.Len(t, resp.Nodes, 2)
	require.Equal(t, dto.NodeCard, resp.Nodes[0].Kind)
}

func TestEmptyCardsHiddenUnlessFlagged(t *testing.T) {
	f := newNavFixture()
	f.materials.counts = map[string]int{"card-lectures": 0}
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	enter(t, svc, "sess-1", "term-1")
	enter(t, svc, "sess-1", "subj-1")
	resp := enter(t, svc, "sess-1", "sec-theory")

	require.Len(t, resp.Nodes, 1)
	require.Equal(t, "card-exams", resp.Nodes[0].Key)
}

func TestCardLeafListsMaterials(t *testing.T) {
	f := newNavFixture()
	f.materials.rows = []dto.MaterialLeaf{
		{ID: "mat-1", Title: "محاضرة 1", LectureNo: 1},
		{ID: "mat-2", Title: "محاضرة 2", LectureNo: 2},
	}
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	enter(t, svc, "sess-1", "term-1")
	enter(t, svc, "sess-1", "subj-1")
	enter(t, svc, "sess-1", "sec-theory")
	resp := enter(t, svc, "sess-1", "card-lectures")

	require.NotNil(t, resp.Leaf)
	require.Len(t, resp.Leaf.Materials, 2)
	require.Empty(t, resp.Nodes)
}

func TestResourceLeafReturnsLatest(t *testing.T) {
	f := newNavFixture()
	f.termResources.kinds = []string{"attendance"}
	f.termResources.latest = &models.TermResource{
		ID: "res-1", Kind: "attendance", StorageChatID: -100500, StorageMsgID: 42,
	}
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	enter(t, svc, "sess-1", "term-1")
	resp := enter(t, svc, "sess-1", "attendance")

	require.NotNil(t, resp.Leaf)
	require.NotNil(t, resp.Leaf.TermResource)
	require.Equal(t, "res-1", resp.Leaf.TermResource.ID)
	require.Equal(t, int64(42), resp.Leaf.TermResource.StorageMsgID)
}

func TestNavigateBackAndReset(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	enter(t, svc, "sess-1", "level-1")
	resp, err := svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-1", Action: dto.NavBack,
	}, navAdmin())
	require.NoError(t, err)
	require.Empty(t, resp.Breadcrumb)

	// Back at root stays at root.
	resp, err = svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-1", Action: dto.NavBack,
	}, navAdmin())
	require.NoError(t, err)
	require.Empty(t, resp.Breadcrumb)

	enter(t, svc, "sess-1", "level-1")
	resp, err = svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-1", Action: dto.NavReset,
	}, navAdmin())
	require.NoError(t, err)
	require.Empty(t, resp.Breadcrumb)
	require.Len(t, resp.Nodes, 2)
}

func enter(t *testing.T, svc *NavigationService, sessionID, key string) *dto.NavigateResponse {
	t.Helper()
	resp, err := svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: sessionID, Action: dto.NavEnter, ChildKey: key,
	}, navAdmin())
	require.NoError(t, err)
	return resp
}

func TestNavigateRecordsPathDepth(t *testing.T) {
	f := newNavFixture()
	svc := f.service()

	_, err := svc.View(context.Background(), "sess-depth", navAdmin())
	require.NoError(t, err)

	_, err = svc.Navigate(context.Background(), dto.NavigateRequest{
		SessionID: "sess-depth", Action: dto.NavEnter, ChildKey: "level-1",
	}, navAdmin())
	require.NoError(t, err)

	require.Len(t, f.metrics.depths, 2)
	require.Equal(t, f.metrics.depths[0]+1, f.metrics.depths[1])
}
