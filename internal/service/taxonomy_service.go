package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type taxonomyStore interface {
	CreateSection(ctx context.Context, s *models.Section) error
	GetSectionByKey(ctx context.Context, key string) (*models.Section, error)
	ListSections(ctx context.Context, includeDisabled bool) ([]models.Section, error)
	UpdateSection(ctx context.Context, s *models.Section) error
	DisableSection(ctx context.Context, id string) error
	CreateCard(ctx context.Context, c *models.Card) error
	GetCardByKey(ctx context.Context, key string) (*models.Card, error)
	ListCards(ctx context.Context, sectionID string, includeDisabled bool) ([]models.Card, error)
	UpdateCard(ctx context.Context, c *models.Card) error
	CreateItemType(ctx context.Context, t *models.ItemType) error
	GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error)
	ListItemTypes(ctx context.Context, includeDisabled bool) ([]models.ItemType, error)
	UpdateItemType(ctx context.Context, t *models.ItemType) error
	EnableSubjectSection(ctx context.Context, subjectID, sectionID string, sortOrder int) error
	DisableSubjectSection(ctx context.Context, subjectID, sectionID string) error
}

type taxonomyAliasStore interface {
	CreateAlias(ctx context.Context, a *models.HashtagAlias) error
	GetAlias(ctx context.Context, normalized string) (*models.HashtagAlias, error)
	ListAliases(ctx context.Context) ([]models.HashtagAlias, error)
	DeleteAlias(ctx context.Context, id string) error
	CreateMapping(ctx context.Context, m *models.HashtagMapping) error
	DeleteMapping(ctx context.Context, aliasID string) error
	ResolveAlias(ctx context.Context, normalized string) (*models.AliasMapping, error)
	ListMappings(ctx context.Context) ([]models.AliasMapping, error)
}

type taxonomySubjectStore interface {
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
}

type cacheFlusher interface {
	InvalidateAll(ctx context.Context)
}

// TaxonomyService manages sections, cards, item types and hashtag
// mappings. Every mutation flushes the navigation cache since taxonomy
// edits can reshape any part of the tree.
type TaxonomyService struct {
	taxonomy  taxonomyStore
	aliases   taxonomyAliasStore
	subjects  taxonomySubjectStore
	flusher   cacheFlusher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaxonomyService constructs a TaxonomyService.
func NewTaxonomyService(taxonomy taxonomyStore, aliases taxonomyAliasStore, subjects taxonomySubjectStore, flusher cacheFlusher, validate *validator.Validate, logger *zap.Logger) *TaxonomyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaxonomyService{
		taxonomy:  taxonomy,
		aliases:   aliases,
		subjects:  subjects,
		flusher:   flusher,
		validator: validate,
		logger:    logger,
	}
}

// CreateSection adds a new section. Keys are immutable once created.
func (s *TaxonomyService) CreateSection(ctx context.Context, req dto.SectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	existing, err := s.taxonomy.GetSectionByKey(ctx, req.Key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section key")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section key already exists")
	}
	section := &models.Section{
		Key:       req.Key,
		LabelAR:   req.LabelAR,
		LabelEN:   req.LabelEN,
		IsEnabled: boolOr(req.IsEnabled, true),
		SortOrder: req.SortOrder,
	}
	if err := s.taxonomy.CreateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.flush(ctx)
	return section, nil
}

// ListSections returns sections for admin views, disabled included.
func (s *TaxonomyService) ListSections(ctx context.Context) ([]models.Section, error) {
	sections, err := s.taxonomy.ListSections(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// UpdateSection updates labels, state and ordering by key.
func (s *TaxonomyService) UpdateSection(ctx context.Context, key string, req dto.SectionRequest) (*models.Section, error) {
	section, err := s.taxonomy.GetSectionByKey(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	section.LabelAR = req.LabelAR
	section.LabelEN = req.LabelEN
	section.IsEnabled = boolOr(req.IsEnabled, section.IsEnabled)
	section.SortOrder = req.SortOrder
	if err := s.taxonomy.UpdateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	s.flush(ctx)
	return section, nil
}

// DisableSection soft-disables a section; existing materials keep their
// references.
func (s *TaxonomyService) DisableSection(ctx context.Context, key string) error {
	section, err := s.taxonomy.GetSectionByKey(ctx, key)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	if err := s.taxonomy.DisableSection(ctx, section.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disable section")
	}
	s.flush(ctx)
	return nil
}

// CreateCard adds a card, optionally scoped to a section by key.
func (s *TaxonomyService) CreateCard(ctx context.Context, req dto.CardRequest) (*models.Card, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid card payload")
	}
	existing, err := s.taxonomy.GetCardByKey(ctx, req.Key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check card key")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "card key already exists")
	}
	card := &models.Card{
		Key:           req.Key,
		LabelAR:       req.LabelAR,
		LabelEN:       req.LabelEN,
		ShowWhenEmpty: req.ShowWhenEmpty,
		IsEnabled:     boolOr(req.IsEnabled, true),
		SortOrder:     req.SortOrder,
	}
	if req.SectionKey != nil {
		section, err := s.taxonomy.GetSectionByKey(ctx, *req.SectionKey)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section key not found")
		}
		card.SectionID = &section.ID
	}
	if err := s.taxonomy.CreateCard(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create card")
	}
	s.flush(ctx)
	return card, nil
}

// ListCards returns every card, disabled included.
func (s *TaxonomyService) ListCards(ctx context.Context) ([]models.Card, error) {
	cards, err := s.taxonomy.ListCards(ctx, "", true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cards")
	}
	return cards, nil
}

// CreateItemType adds an item type.
func (s *TaxonomyService) CreateItemType(ctx context.Context, req dto.ItemTypeRequest) (*models.ItemType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item type payload")
	}
	existing, err := s.taxonomy.GetItemTypeByKey(ctx, req.Key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check item type key")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "item type key already exists")
	}
	itemType := &models.ItemType{
		Key:             req.Key,
		LabelAR:         req.LabelAR,
		LabelEN:         req.LabelEN,
		RequiresLecture: req.RequiresLecture,
		AllowsYear:      boolOr(req.AllowsYear, true),
		AllowsLecturer:  boolOr(req.AllowsLecturer, true),
		IsEnabled:       boolOr(req.IsEnabled, true),
		SortOrder:       req.SortOrder,
	}
	if err := s.taxonomy.CreateItemType(ctx, itemType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item type")
	}
	s.flush(ctx)
	return itemType, nil
}

// ListItemTypes returns every item type, disabled included.
func (s *TaxonomyService) ListItemTypes(ctx context.Context) ([]models.ItemType, error) {
	types, err := s.taxonomy.ListItemTypes(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list item types")
	}
	return types, nil
}

// CreateAlias registers a caption alias. The normalized form must be new.
func (s *TaxonomyService) CreateAlias(ctx context.Context, req dto.AliasRequest) (*models.HashtagAlias, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alias payload")
	}
	normalized := parser.Normalize(req.Alias)
	existing, err := s.aliases.GetAlias(ctx, normalized)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check alias")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "alias already registered")
	}
	alias := &models.HashtagAlias{Alias: req.Alias, Normalized: normalized, Lang: req.Lang}
	if err := s.aliases.CreateAlias(ctx, alias); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alias")
	}
	return alias, nil
}

// DeleteAlias removes an alias and its mapping.
func (s *TaxonomyService) DeleteAlias(ctx context.Context, alias string) error {
	existing, err := s.aliases.GetAlias(ctx, parser.Normalize(alias))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alias")
	}
	if existing == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "alias not found")
	}
	if err := s.aliases.DeleteAlias(ctx, existing.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete alias")
	}
	return nil
}

// CreateMapping binds a registered alias to a taxonomy target. Targets are
// referenced by key; term resource kinds carry the kind string itself.
func (s *TaxonomyService) CreateMapping(ctx context.Context, req dto.MappingRequest) (*models.HashtagMapping, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}
	alias, err := s.aliases.GetAlias(ctx, parser.Normalize(req.Alias))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alias")
	}
	if alias == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "alias not registered")
	}

	targetID, err := s.resolveTargetKey(ctx, models.TargetKind(req.TargetKind), req.TargetKey)
	if err != nil {
		return nil, err
	}

	mapping := &models.HashtagMapping{
		AliasID:      alias.ID,
		TargetKind:   models.TargetKind(req.TargetKind),
		TargetID:     targetID,
		IsContentTag: req.IsContentTag,
		Overrides:    req.Overrides,
	}
	if err := s.aliases.CreateMapping(ctx, mapping); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mapping")
	}
	return mapping, nil
}

// EnableSubjectSection turns a section on for one subject, if the
// subject's sections mode allows it.
func (s *TaxonomyService) EnableSubjectSection(ctx context.Context, req dto.SubjectSectionEnableRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	subject, err := s.subjects.GetSubject(ctx, req.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	section, err := s.taxonomy.GetSectionByKey(ctx, req.SectionKey)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	if !subject.SectionsMode.AllowsSectionKey(section.Key) {
		return appErrors.Clone(appErrors.ErrConflict, "subject's sections mode disallows this section")
	}
	if err := s.taxonomy.EnableSubjectSection(ctx, subject.ID, section.ID, req.SortOrder); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enable section")
	}
	s.flush(ctx)
	return nil
}

func (s *TaxonomyService) resolveTargetKey(ctx context.Context, kind models.TargetKind, key string) (string, error) {
	switch kind {
	case models.TargetSection:
		section, err := s.taxonomy.GetSectionByKey(ctx, key)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section == nil {
			return "", appErrors.Clone(appErrors.ErrNotFound, "section key not found")
		}
		return section.ID, nil
	case models.TargetCard:
		card, err := s.taxonomy.GetCardByKey(ctx, key)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load card")
		}
		if card == nil {
			return "", appErrors.Clone(appErrors.ErrNotFound, "card key not found")
		}
		return card.ID, nil
	case models.TargetItemType:
		itemType, err := s.taxonomy.GetItemTypeByKey(ctx, key)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item type")
		}
		if itemType == nil {
			return "", appErrors.Clone(appErrors.ErrNotFound, "item type key not found")
		}
		return itemType.ID, nil
	case models.TargetTermResourceKind:
		return key, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown target kind")
	}
}

func (s *TaxonomyService) flush(ctx context.Context) {
	if s.flusher != nil {
		s.flusher.InvalidateAll(ctx)
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
