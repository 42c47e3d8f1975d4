package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type stubSubjectStore struct {
	groups   map[int64]*models.Group
	bindings map[int64]*models.TopicBinding
	subjects map[string]*models.Subject
}

func (s *stubSubjectStore) GetGroupByChat(ctx context.Context, chatID int64) (*models.Group, error) {
	return s.groups[chatID], nil
}

func (s *stubSubjectStore) GetTopicBinding(ctx context.Context, chatID, topicID int64) (*models.TopicBinding, error) {
	return s.bindings[topicID], nil
}

func (s *stubSubjectStore) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	return s.subjects[id], nil
}

func (s *stubSubjectStore) GetOrCreateYear(ctx context.Context, name string) (string, error) {
	return "year-" + name, nil
}

func (s *stubSubjectStore) GetOrCreateLecturer(ctx context.Context, name string) (string, error) {
	return "lect-" + name, nil
}

type stubMaterialStore struct {
	existing    *models.Material
	createErr   error
	raceWinner  *models.Material
	created     *models.Material
	createdRec  *models.IngestionRecord
	shadow      *models.Material
	softDeleted []string
	findCalls   int
}

func (s *stubMaterialStore) FindDuplicate(ctx context.Context, fingerprint string, scope models.MaterialScope) (*models.Material, error) {
	s.findCalls++
	if s.existing != nil {
		return s.existing, nil
	}
	// The race winner only becomes visible on the retry after a failed
	// insert, mimicking a concurrent commit between the two lookups.
	if s.findCalls > 1 {
		return s.raceWinner, nil
	}
	return nil, nil
}

func (s *stubMaterialStore) CreateWithIngestion(ctx context.Context, m *models.Material, shadow *models.Material, rec *models.IngestionRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	m.ID = "mat-1"
	rec.ID = "ing-1"
	s.created = m
	s.createdRec = rec
	s.shadow = shadow
	return nil
}

func (s *stubMaterialStore) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	s.softDeleted = append(s.softDeleted, id)
	return nil
}

type stubTermResourceStore struct {
	created    *models.TermResource
	createdRec *models.IngestionRecord
}

func (s *stubTermResourceStore) CreateWithIngestion(ctx context.Context, res *models.TermResource, rec *models.IngestionRecord) error {
	res.ID = "res-1"
	rec.ID = "ing-1"
	s.created = res
	s.createdRec = rec
	return nil
}

type stubAuditStore struct {
	records []*models.IngestionRecord
}

func (s *stubAuditStore) Create(ctx context.Context, rec *models.IngestionRecord) error {
	rec.ID = "audit-1"
	s.records = append(s.records, rec)
	return nil
}

type stubTaxonomyLookup struct {
	itemTypes map[string]*models.ItemType
	sections  map[string]*models.Section
	cards     map[string]*models.Card
}

func (s *stubTaxonomyLookup) GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error) {
	return s.itemTypes[key], nil
}

func (s *stubTaxonomyLookup) GetSection(ctx context.Context, id string) (*models.Section, error) {
	return s.sections[id], nil
}

func (s *stubTaxonomyLookup) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return s.cards[id], nil
}

type stubParser struct {
	result *parser.Result
	err    error
}

func (s *stubParser) Parse(ctx context.Context, caption string) (*parser.Result, error) {
	return s.result, s.err
}

type stubClassifier struct {
	class *ContentClass
	err   error
}

func (s *stubClassifier) Classify(ctx context.Context, res *parser.Result) (*ContentClass, error) {
	return s.class, s.err
}

type stubCopier struct {
	calls int
}

func (s *stubCopier) CopyToArchive(ctx context.Context, sub dto.Submission) (int64, int64, error) {
	s.calls++
	return -100500, 42, nil
}

type stubInvalidator struct {
	subjects []string
	terms    []string
}

func (s *stubInvalidator) InvalidateSubject(ctx context.Context, subjectID string) {
	s.subjects = append(s.subjects, subjectID)
}

func (s *stubInvalidator) InvalidateTerm(ctx context.Context, levelID, termID string) {
	s.terms = append(s.terms, levelID+"/"+termID)
}

type ingestFixture struct {
	subjects      *stubSubjectStore
	materials     *stubMaterialStore
	termResources *stubTermResourceStore
	audit         *stubAuditStore
	taxonomy      *stubTaxonomyLookup
	parser        *stubParser
	classifier    *stubClassifier
	copier        *stubCopier
	invalidator   *stubInvalidator
	perms         *PermissionService
	cfg           config.IngestConfig
}

func newIngestFixture() *ingestFixture {
	levelID, termID := "level-3", "term-1"
	return &ingestFixture{
		subjects: &stubSubjectStore{
			groups: map[int64]*models.Group{
				-200: {ID: "grp-1", ChatID: -200, LevelID: &levelID, TermID: &termID},
			},
			bindings: map[int64]*models.TopicBinding{
				7: {ID: "bind-1", TopicID: 7, SubjectID: "subj-1", SectionID: "sec-theory"},
			},
		},
		materials:     &stubMaterialStore{},
		termResources: &stubTermResourceStore{},
		audit:         &stubAuditStore{},
		taxonomy: &stubTaxonomyLookup{
			itemTypes: map[string]*models.ItemType{
				"lecture": {ID: "it-lecture", Key: "lecture", LabelAR: "محاضرة", IsEnabled: true},
			},
			sections: map[string]*models.Section{
				"sec-theory": {ID: "sec-theory", Key: "theory", LabelAR: "نظري", IsEnabled: true},
			},
			cards: map[string]*models.Card{
				"card-lectures": {ID: "card-lectures", Key: "lectures", LabelAR: "المحاضرات", IsEnabled: true},
			},
		},
		parser:      &stubParser{result: &parser.Result{}},
		classifier:  &stubClassifier{class: &ContentClass{CardID: "card-lectures", CardLabel: "المحاضرات", ItemTypeID: "it-summary", ItemTypeKey: "summary"}},
		copier:      &stubCopier{},
		invalidator: &stubInvalidator{},
		perms:       NewPermissionService(nil, nil),
		cfg:         config.IngestConfig{LectureShadows: true},
	}
}

func (f *ingestFixture) service() *IngestionService {
	return NewIngestionService(
		f.subjects, f.materials, f.termResources, f.audit, f.taxonomy,
		f.parser, f.classifier, f.copier, f.invalidator, f.perms, nil, f.cfg, nil,
	)
}

func testSubmission() dto.Submission {
	topicID := int64(7)
	fileID := "AgAD-file-1"
	return dto.Submission{
		Caption:         "#ملخص\nملخص الباب الأول",
		FileUniqueID:    &fileID,
		SourceChatID:    -200,
		SourceTopicID:   &topicID,
		SourceMessageID: 900,
	}
}

func testAdmin(caps models.CapabilitySet) *models.Admin {
	return &models.Admin{ID: "admin-1", Role: models.RoleAdmin, Permissions: caps, IsActive: true}
}

func TestIngestPersistsMaterial(t *testing.T) {
	f := newIngestFixture()
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.NotNil(t, res.MaterialID)
	require.Equal(t, "mat-1", *res.MaterialID)

	m := f.materials.created
	require.NotNil(t, m)
	require.Equal(t, "subj-1", m.SubjectID)
	require.Equal(t, "sec-theory", m.SectionID)
	require.Equal(t, "نظري", m.Section)
	require.Equal(t, "card-lectures", m.CardID)
	require.Equal(t, "it-summary", m.ItemTypeID)
	require.Equal(t, "ملخص الباب الأول", m.Title)
	require.Equal(t, "AgAD-file-1", m.Fingerprint)
	require.NotNil(t, m.StorageChatID)
	require.Equal(t, int64(-100500), *m.StorageChatID)
	require.Equal(t, 1, f.copier.calls)
	require.Equal(t, []string{"subj-1"}, f.invalidator.subjects)
}

func TestIngestUnknownGroupRejected(t *testing.T) {
	f := newIngestFixture()
	svc := f.service()

	sub := testSubmission()
	sub.SourceChatID = -999

	res, err := svc.Ingest(context.Background(), sub, testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrUnknownGroup.Code, res.Violation.Code)
	require.Len(t, f.audit.records, 1)
	require.Equal(t, models.IngestionRejected, f.audit.records[0].Status)
}

func TestIngestParseViolationRejected(t *testing.T) {
	f := newIngestFixture()
	f.parser.err = appErrors.ErrMissingContentTag
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrMissingContentTag.Code, res.Violation.Code)
	require.Len(t, f.audit.records, 1)
	require.NotNil(t, f.audit.records[0].Violation)
	require.Equal(t, appErrors.ErrMissingContentTag.Code, *f.audit.records[0].Violation)
}

func TestIngestStrictMetaRejectsDroppedTags(t *testing.T) {
	f := newIngestFixture()
	f.cfg.StrictMeta = true
	f.parser.result = &parser.Result{Dropped: []string{"#1446"}}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrDisallowedMeta.Code, res.Violation.Code)
}

func TestIngestUnboundTopicRejected(t *testing.T) {
	f := newIngestFixture()
	svc := f.service()

	sub := testSubmission()
	unbound := int64(99)
	sub.SourceTopicID = &unbound

	res, err := svc.Ingest(context.Background(), sub, testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrUnboundTopic.Code, res.Violation.Code)
}

func TestIngestDuplicateReported(t *testing.T) {
	f := newIngestFixture()
	f.materials.existing = &models.Material{ID: "mat-old"}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestDuplicate, res.Status)
	require.NotNil(t, res.ExistingMaterialID)
	require.Equal(t, "mat-old", *res.ExistingMaterialID)
	require.Nil(t, f.materials.created)
	require.Equal(t, 0, f.copier.calls)
	require.Len(t, f.audit.records, 1)
	require.Equal(t, models.IngestionDuplicate, f.audit.records[0].Status)
}

func TestIngestOverrideWithoutCapabilityStaysDuplicate(t *testing.T) {
	f := newIngestFixture()
	f.materials.existing = &models.Material{ID: "mat-old"}
	svc := f.service()

	sub := testSubmission()
	sub.OverrideDuplicate = true

	res, err := svc.Ingest(context.Background(), sub, testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestDuplicate, res.Status)
	require.Empty(t, f.materials.softDeleted)
}

func TestIngestOverrideReplacesExisting(t *testing.T) {
	f := newIngestFixture()
	f.materials.existing = &models.Material{ID: "mat-old"}
	svc := f.service()

	sub := testSubmission()
	sub.OverrideDuplicate = true

	res, err := svc.Ingest(context.Background(), sub, testAdmin(models.CapabilitySet(models.CapOverrideDuplicate)))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.Equal(t, []string{"mat-old"}, f.materials.softDeleted)
	require.NotNil(t, f.materials.created)
}

func TestIngestInsertRaceReportsWinner(t *testing.T) {
	f := newIngestFixture()
	f.materials.createErr = appErrors.ErrDuplicateMaterial
	f.materials.raceWinner = &models.Material{ID: "mat-winner"}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestDuplicate, res.Status)
	require.Equal(t, "mat-winner", *res.ExistingMaterialID)
}

func TestIngestLectureShadowCreated(t *testing.T) {
	f := newIngestFixture()
	no := 5
	f.parser.result = &parser.Result{LectureNo: &no, Title: "مقدمة"}
	f.classifier.class = &ContentClass{CardID: "card-lectures", CardLabel: "المحاضرات", ItemTypeID: "it-slides", ItemTypeKey: "slides"}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)

	shadow := f.materials.shadow
	require.NotNil(t, shadow)
	require.Equal(t, "it-lecture", shadow.ItemTypeID)
	require.Equal(t, "محاضرة 5", shadow.Title)
	require.Equal(t, "shadow:subj-1:sec-theory:5", shadow.Fingerprint)
}

func TestIngestNoShadowForLectureItself(t *testing.T) {
	f := newIngestFixture()
	no := 2
	f.parser.result = &parser.Result{LectureNo: &no, Title: "عنوان"}
	f.classifier.class = &ContentClass{CardID: "card-lectures", CardLabel: "المحاضرات", ItemTypeID: "it-lecture", ItemTypeKey: "lecture"}
	svc := f.service()

	_, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Nil(t, f.materials.shadow)
}

func TestIngestSectionOverrideWins(t *testing.T) {
	f := newIngestFixture()
	f.taxonomy.sections["sec-lab"] = &models.Section{ID: "sec-lab", Key: "lab", LabelAR: "عملي", IsEnabled: true}
	f.classifier.class = &ContentClass{
		CardID: "card-lectures", CardLabel: "المحاضرات",
		ItemTypeID: "it-summary", ItemTypeKey: "summary",
		SectionID: "sec-lab", SectionLabel: "عملي",
	}
	svc := f.service()

	_, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, "sec-lab", f.materials.created.SectionID)
	require.Equal(t, "عملي", f.materials.created.Section)
}

func TestIngestTermResource(t *testing.T) {
	f := newIngestFixture()
	f.classifier.class = &ContentClass{TermResourceKind: "attendance"}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.NotNil(t, res.TermResourceID)

	created := f.termResources.created
	require.NotNil(t, created)
	require.Equal(t, "attendance", created.Kind)
	require.Equal(t, "level-3", created.LevelID)
	require.Equal(t, "term-1", created.TermID)
	require.Equal(t, []string{"level-3/term-1"}, f.invalidator.terms)
}

func TestIngestTermResourceNeedsScopedGroup(t *testing.T) {
	f := newIngestFixture()
	f.subjects.groups[-200].LevelID = nil
	f.classifier.class = &ContentClass{TermResourceKind: "attendance"}
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrUnknownGroup.Code, res.Violation.Code)
}

func TestIngestYearAndLecturerInterned(t *testing.T) {
	f := newIngestFixture()
	year := "1446"
	lecturer := "صالح العمري"
	f.parser.result = &parser.Result{Year: &year, Lecturer: &lecturer}
	svc := f.service()

	_, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.NotNil(t, f.materials.created.YearID)
	require.Equal(t, "year-1446", *f.materials.created.YearID)
	require.NotNil(t, f.materials.created.LecturerID)
	require.Equal(t, "lect-صالح العمري", *f.materials.created.LecturerID)
}

func TestIngestOwnerOverridesWithoutMask(t *testing.T) {
	f := newIngestFixture()
	f.materials.existing = &models.Material{ID: "mat-old"}
	svc := f.service()

	sub := testSubmission()
	sub.OverrideDuplicate = true

	// Owners hold every capability implicitly, mask or not.
	owner := &models.Admin{ID: "owner-1", Role: models.RoleOwner, IsActive: true}
	res, err := svc.Ingest(context.Background(), sub, owner)
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.Equal(t, []string{"mat-old"}, f.materials.softDeleted)
}

func TestIngestRecordStartsPending(t *testing.T) {
	f := newIngestFixture()
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.NotNil(t, f.materials.createdRec)
	require.Equal(t, models.IngestionPending, f.materials.createdRec.Status)
}

func TestIngestTermResourceRecordStartsPending(t *testing.T) {
	f := newIngestFixture()
	f.classifier.class = &ContentClass{TermResourceKind: "attendance"}
	svc := f.service()

	_, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.NotNil(t, f.termResources.createdRec)
	require.Equal(t, models.IngestionPending, f.termResources.createdRec.Status)
}

func TestIngestAutoApproveSkipsQueue(t *testing.T) {
	f := newIngestFixture()
	f.cfg.AutoApprove = true
	svc := f.service()

	_, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, models.IngestionApproved, f.materials.createdRec.Status)
}

func TestIngestDisabledBindingSectionRejected(t *testing.T) {
	f := newIngestFixture()
	f.taxonomy.sections["sec-theory"].IsEnabled = false
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestRejected, res.Status)
	require.Equal(t, appErrors.ErrDisabledTaxonomy.Code, res.Violation.Code)
	require.Nil(t, f.materials.created)
}
