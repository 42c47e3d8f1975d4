package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type ingestSubjectStore interface {
	GetGroupByChat(ctx context.Context, chatID int64) (*models.Group, error)
	GetTopicBinding(ctx context.Context, chatID, topicID int64) (*models.TopicBinding, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	GetOrCreateYear(ctx context.Context, name string) (string, error)
	GetOrCreateLecturer(ctx context.Context, name string) (string, error)
}

type ingestMaterialStore interface {
	FindDuplicate(ctx context.Context, fingerprint string, scope models.MaterialScope) (*models.Material, error)
	CreateWithIngestion(ctx context.Context, m *models.Material, shadow *models.Material, rec *models.IngestionRecord) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type ingestTermResourceStore interface {
	CreateWithIngestion(ctx context.Context, res *models.TermResource, rec *models.IngestionRecord) error
}

type ingestAuditStore interface {
	Create(ctx context.Context, rec *models.IngestionRecord) error
}

type ingestItemTypeStore interface {
	GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error)
	GetSection(ctx context.Context, id string) (*models.Section, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
}

type captionParser interface {
	Parse(ctx context.Context, caption string) (*parser.Result, error)
}

type contentClassifier interface {
	Classify(ctx context.Context, res *parser.Result) (*ContentClass, error)
}

// ArchiveCopier copies the submitted message into the storage channel and
// returns the stored message coordinates.
type ArchiveCopier interface {
	CopyToArchive(ctx context.Context, sub dto.Submission) (chatID, msgID int64, err error)
}

// ScopeInvalidator is notified after content changes so cached child lists
// for the touched scope can be dropped.
type ScopeInvalidator interface {
	InvalidateSubject(ctx context.Context, subjectID string)
	InvalidateTerm(ctx context.Context, levelID, termID string)
}

type ingestMetrics interface {
	ObserveIngestion(status string)
}

// capabilityChecker answers whether an admin holds a capability, honoring
// role-implicit grants. Satisfied by PermissionService.
type capabilityChecker interface {
	Has(admin *models.Admin, cap models.Capability) bool
}

// IngestionService coordinates one submission end to end: parse, classify,
// scope resolution, duplicate detection and the transactional write. Every
// attempt leaves an audit record.
type IngestionService struct {
	subjects      ingestSubjectStore
	materials     ingestMaterialStore
	termResources ingestTermResourceStore
	audit         ingestAuditStore
	taxonomy      ingestItemTypeStore
	parser        captionParser
	classifier    contentClassifier
	copier        ArchiveCopier
	invalidator   ScopeInvalidator
	perms         capabilityChecker
	metrics       ingestMetrics
	guard         *DuplicateGuard
	cfg           config.IngestConfig
	logger        *zap.Logger
}

// NewIngestionService constructs an IngestionService.
func NewIngestionService(
	subjects ingestSubjectStore,
	materials ingestMaterialStore,
	termResources ingestTermResourceStore,
	audit ingestAuditStore,
	taxonomy ingestItemTypeStore,
	captionParser captionParser,
	classifier contentClassifier,
	copier ArchiveCopier,
	invalidator ScopeInvalidator,
	perms capabilityChecker,
	metrics ingestMetrics,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		subjects:      subjects,
		materials:     materials,
		termResources: termResources,
		audit:         audit,
		taxonomy:      taxonomy,
		parser:        captionParser,
		classifier:    classifier,
		copier:        copier,
		invalidator:   invalidator,
		perms:         perms,
		metrics:       metrics,
		guard:         NewDuplicateGuard(),
		cfg:           cfg,
		logger:        logger,
	}
}

// Ingest processes one submission. Violations come back as a rejected
// result, not an error; errors are reserved for infrastructure failures.
func (s *IngestionService) Ingest(ctx context.Context, sub dto.Submission, admin *models.Admin) (*dto.IngestResult, error) {
	group, err := s.subjects.GetGroupByChat(ctx, sub.SourceChatID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve source group")
	}
	if group == nil {
		return s.reject(ctx, sub, admin, appErrors.ErrUnknownGroup)
	}

	parsed, err := s.parser.Parse(ctx, sub.Caption)
	if err != nil {
		if violation := asViolation(err); violation != nil {
			return s.reject(ctx, sub, admin, violation)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "caption parse failed")
	}
	if s.cfg.StrictMeta && len(parsed.Dropped) > 0 {
		return s.reject(ctx, sub, admin, appErrors.ErrDisallowedMeta)
	}

	class, err := s.classifier.Classify(ctx, parsed)
	if err != nil {
		if violation := asViolation(err); violation != nil {
			return s.reject(ctx, sub, admin, violation)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "classification failed")
	}

	if class.IsTermResource() {
		return s.ingestTermResource(ctx, sub, admin, group, class)
	}
	return s.ingestMaterial(ctx, sub, admin, parsed, class)
}

func (s *IngestionService) ingestTermResource(ctx context.Context, sub dto.Submission, admin *models.Admin, group *models.Group, class *ContentClass) (*dto.IngestResult, error) {
	if group.LevelID == nil || group.TermID == nil {
		return s.reject(ctx, sub, admin, appErrors.ErrUnknownGroup)
	}

	chatID, msgID, err := s.copier.CopyToArchive(ctx, sub)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy submission to archive")
	}

	res := &models.TermResource{
		LevelID:       *group.LevelID,
		TermID:        *group.TermID,
		Kind:          class.TermResourceKind,
		StorageChatID: chatID,
		StorageMsgID:  msgID,
	}
	rec := &models.IngestionRecord{
		Status:          s.recordStatus(),
		Action:          models.ActionAdd,
		SourceChatID:    sub.SourceChatID,
		SourceMessageID: sub.SourceMessageID,
		AdminID:         admin.ID,
		FileUniqueID:    sub.FileUniqueID,
	}
	if err := s.termResources.CreateWithIngestion(ctx, res, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store term resource")
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateTerm(ctx, res.LevelID, res.TermID)
	}
	s.observe(string(dto.IngestPersisted))
	s.logger.Info("term resource stored",
		zap.String("kind", res.Kind),
		zap.String("level_id", res.LevelID),
		zap.String("term_id", res.TermID))

	return &dto.IngestResult{
		Status:         dto.IngestPersisted,
		IngestionID:    rec.ID,
		TermResourceID: &res.ID,
	}, nil
}

func (s *IngestionService) ingestMaterial(ctx context.Context, sub dto.Submission, admin *models.Admin, parsed *parser.Result, class *ContentClass) (*dto.IngestResult, error) {
	binding, err := s.binding(ctx, sub)
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return s.reject(ctx, sub, admin, appErrors.ErrUnboundTopic)
	}

	sectionID := binding.SectionID
	sectionLabel := ""
	if class.SectionID != "" {
		sectionID = class.SectionID
		sectionLabel = class.SectionLabel
	}
	if sectionLabel == "" {
		section, err := s.taxonomy.GetSection(ctx, sectionID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section != nil {
			if !section.IsEnabled {
				return s.reject(ctx, sub, admin, appErrors.ErrDisabledTaxonomy)
			}
			sectionLabel = section.LabelAR
		}
	}

	var yearID, lecturerID *string
	if parsed.Year != nil {
		id, err := s.subjects.GetOrCreateYear(ctx, *parsed.Year)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to intern year")
		}
		yearID = &id
	}
	if parsed.Lecturer != nil {
		id, err := s.subjects.GetOrCreateLecturer(ctx, *parsed.Lecturer)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to intern lecturer")
		}
		lecturerID = &id
	}

	title := s.title(sub.Caption, parsed, class)
	fingerprint := Fingerprint(sub, title)
	scope := models.MaterialScope{
		SubjectID:  binding.SubjectID,
		SectionID:  sectionID,
		ItemTypeID: class.ItemTypeID,
		YearID:     yearID,
		LecturerID: lecturerID,
		LectureNo:  parsed.LectureNo,
	}

	unlock := s.guard.Lock(scopeKey(fingerprint, scope))
	defer unlock()

	existing, err := s.materials.FindDuplicate(ctx, fingerprint, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "duplicate lookup failed")
	}

	action := models.ActionAdd
	if existing != nil {
		if !sub.OverrideDuplicate || !s.canOverride(admin) {
			return s.duplicate(ctx, sub, admin, existing)
		}
		if err := s.materials.SoftDelete(ctx, existing.ID, time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire replaced material")
		}
		action = models.ActionReplace
	}

	chatID, msgID, err := s.copier.CopyToArchive(ctx, sub)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy submission to archive")
	}

	m := &models.Material{
		SubjectID:       binding.SubjectID,
		SectionID:       sectionID,
		Section:         sectionLabel,
		CardID:          class.CardID,
		Category:        class.CardLabel,
		ItemTypeID:      class.ItemTypeID,
		Title:           title,
		URL:             sub.URL,
		YearID:          yearID,
		LecturerID:      lecturerID,
		LectureNo:       parsed.LectureNo,
		Fingerprint:     fingerprint,
		StorageChatID:   &chatID,
		StorageMsgID:    &msgID,
		SourceChatID:    sub.SourceChatID,
		SourceTopicID:   sub.SourceTopicID,
		SourceMessageID: sub.SourceMessageID,
		CreatedBy:       admin.ID,
	}

	shadow, err := s.lectureShadow(ctx, m, parsed, class)
	if err != nil {
		return nil, err
	}

	rec := &models.IngestionRecord{
		Status:          s.recordStatus(),
		Action:          action,
		SourceChatID:    sub.SourceChatID,
		SourceMessageID: sub.SourceMessageID,
		AdminID:         admin.ID,
		FileUniqueID:    sub.FileUniqueID,
	}
	if err := s.materials.CreateWithIngestion(ctx, m, shadow, rec); err != nil {
		// Lost the race to another process; report the winner.
		if errors.Is(err, appErrors.ErrDuplicateMaterial) {
			winner, findErr := s.materials.FindDuplicate(ctx, fingerprint, scope)
			if findErr == nil && winner != nil {
				return s.duplicate(ctx, sub, admin, winner)
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store material")
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateSubject(ctx, m.SubjectID)
	}
	s.observe(string(dto.IngestPersisted))
	s.logger.Info("material stored",
		zap.String("material_id", m.ID),
		zap.String("subject_id", m.SubjectID),
		zap.String("item_type_id", m.ItemTypeID),
		zap.String("action", string(action)))

	return &dto.IngestResult{
		Status:      dto.IngestPersisted,
		IngestionID: rec.ID,
		MaterialID:  &m.ID,
	}, nil
}

func (s *IngestionService) binding(ctx context.Context, sub dto.Submission) (*models.TopicBinding, error) {
	if sub.SourceTopicID == nil {
		return nil, nil
	}
	binding, err := s.subjects.GetTopicBinding(ctx, sub.SourceChatID, *sub.SourceTopicID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve topic binding")
	}
	return binding, nil
}

// lectureShadow derives the parent lecture row that attachment uploads
// auto-create, or nil when nothing should be created.
func (s *IngestionService) lectureShadow(ctx context.Context, m *models.Material, parsed *parser.Result, class *ContentClass) (*models.Material, error) {
	if !s.cfg.LectureShadows || parsed.LectureNo == nil || class.ItemTypeKey == "lecture" {
		return nil, nil
	}
	lectureType, err := s.taxonomy.GetItemTypeByKey(ctx, "lecture")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture item type")
	}
	if lectureType == nil {
		return nil, nil
	}
	card, err := s.taxonomy.GetCard(ctx, class.CardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load card")
	}

	shadow := &models.Material{
		SubjectID:       m.SubjectID,
		SectionID:       m.SectionID,
		Section:         m.Section,
		CardID:          m.CardID,
		Category:        m.Category,
		ItemTypeID:      lectureType.ID,
		Title:           fmt.Sprintf("%s %d", lectureType.LabelAR, *parsed.LectureNo),
		YearID:          m.YearID,
		LecturerID:      m.LecturerID,
		LectureNo:       parsed.LectureNo,
		Fingerprint:     fmt.Sprintf("shadow:%s:%s:%d", m.SubjectID, m.SectionID, *parsed.LectureNo),
		SourceChatID:    m.SourceChatID,
		SourceTopicID:   m.SourceTopicID,
		SourceMessageID: m.SourceMessageID,
		CreatedBy:       m.CreatedBy,
	}
	if card != nil {
		shadow.CardID = card.ID
		shadow.Category = card.LabelAR
	}
	return shadow, nil
}

// title picks the stored display title: the lecture tag's explicit title,
// then the first free-text caption line, then a generated fallback.
func (s *IngestionService) title(caption string, parsed *parser.Result, class *ContentClass) string {
	if parsed.Title != "" {
		return parsed.Title
	}
	for _, line := range strings.Split(parser.Clean(caption), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	if parsed.LectureNo != nil {
		return fmt.Sprintf("%s %d", class.ItemTypeKey, *parsed.LectureNo)
	}
	return class.ItemTypeKey
}

func (s *IngestionService) reject(ctx context.Context, sub dto.Submission, admin *models.Admin, violation *appErrors.Error) (*dto.IngestResult, error) {
	code := violation.Code
	rec := &models.IngestionRecord{
		Status:          models.IngestionRejected,
		Action:          models.ActionAdd,
		SourceChatID:    sub.SourceChatID,
		SourceMessageID: sub.SourceMessageID,
		AdminID:         admin.ID,
		FileUniqueID:    sub.FileUniqueID,
		Violation:       &code,
	}
	if err := s.audit.Create(ctx, rec); err != nil {
		s.logger.Warn("failed to record rejection", zap.Error(err), zap.String("violation", code))
	}
	s.observe(string(dto.IngestRejected))
	return &dto.IngestResult{
		Status:      dto.IngestRejected,
		IngestionID: rec.ID,
		Violation:   &dto.Violation{Code: violation.Code, Message: violation.Message},
	}, nil
}

func (s *IngestionService) duplicate(ctx context.Context, sub dto.Submission, admin *models.Admin, existing *models.Material) (*dto.IngestResult, error) {
	code := appErrors.ErrDuplicateMaterial.Code
	rec := &models.IngestionRecord{
		Status:          models.IngestionDuplicate,
		Action:          models.ActionAdd,
		MaterialID:      &existing.ID,
		SourceChatID:    sub.SourceChatID,
		SourceMessageID: sub.SourceMessageID,
		AdminID:         admin.ID,
		FileUniqueID:    sub.FileUniqueID,
		Violation:       &code,
	}
	if err := s.audit.Create(ctx, rec); err != nil {
		s.logger.Warn("failed to record duplicate hit", zap.Error(err))
	}
	s.observe(string(dto.IngestDuplicate))
	return &dto.IngestResult{
		Status:             dto.IngestDuplicate,
		IngestionID:        rec.ID,
		ExistingMaterialID: &existing.ID,
		Violation:          &dto.Violation{Code: code, Message: appErrors.ErrDuplicateMaterial.Message},
	}, nil
}

func (s *IngestionService) observe(status string) {
	if s.metrics != nil {
		s.metrics.ObserveIngestion(status)
	}
}

// asViolation returns the typed error when it is a caption or resolution
// violation the submitter should see, nil for infrastructure errors.
// recordStatus is the audit status written on a successful persist.
// Records enter the review queue as pending unless auto-approval is on.
func (s *IngestionService) recordStatus() models.IngestionStatus {
	if s.cfg.AutoApprove {
		return models.IngestionApproved
	}
	return models.IngestionPending
}

func (s *IngestionService) canOverride(admin *models.Admin) bool {
	if s.perms == nil {
		return admin.Permissions.Has(models.CapOverrideDuplicate)
	}
	return s.perms.Has(admin, models.CapOverrideDuplicate)
}

func asViolation(err error) *appErrors.Error {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return nil
	}
	switch appErr.Code {
	case appErrors.ErrMissingContentTag.Code,
		appErrors.ErrAmbiguousContentTag.Code,
		appErrors.ErrLeadingTag.Code,
		appErrors.ErrInvalidLectureNo.Code,
		appErrors.ErrLectureNoRequired.Code,
		appErrors.ErrDisallowedMeta.Code,
		appErrors.ErrUnknownAlias.Code,
		appErrors.ErrConflictingTagKinds.Code,
		appErrors.ErrDisabledTaxonomy.Code,
		appErrors.ErrUnknownGroup.Code,
		appErrors.ErrUnboundTopic.Code:
		return appErr
	default:
		return nil
	}
}
