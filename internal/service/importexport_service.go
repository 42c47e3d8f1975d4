package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type exportTaxonomyStore interface {
	taxonomyStore
	GetSection(ctx context.Context, id string) (*models.Section, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	GetItemType(ctx context.Context, id string) (*models.ItemType, error)
	ListSubjectSectionEnable(ctx context.Context) ([]models.SubjectSectionEnable, error)
}

type exportSubjectStore interface {
	ListAllSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error)
}

// ImportExportService round-trips the whole taxonomy as one JSON document.
// Sections come before cards and aliases before mappings so a document
// replays cleanly against an empty database.
type ImportExportService struct {
	taxonomy exportTaxonomyStore
	aliases  taxonomyAliasStore
	subjects exportSubjectStore
	flusher  cacheFlusher
	logger   *zap.Logger
}

// NewImportExportService constructs an ImportExportService.
func NewImportExportService(taxonomy exportTaxonomyStore, aliases taxonomyAliasStore, subjects exportSubjectStore, flusher cacheFlusher, logger *zap.Logger) *ImportExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportExportService{
		taxonomy: taxonomy,
		aliases:  aliases,
		subjects: subjects,
		flusher:  flusher,
		logger:   logger,
	}
}

// Export snapshots the taxonomy into the wire document.
func (s *ImportExportService) Export(ctx context.Context) (*dto.TaxonomyDocument, error) {
	doc := &dto.TaxonomyDocument{
		Sections:             []dto.SectionDoc{},
		Cards:                []dto.CardDoc{},
		ItemTypes:            []dto.ItemTypeDoc{},
		Aliases:              []dto.AliasDoc{},
		Mappings:             []dto.MappingDoc{},
		SubjectSectionEnable: []dto.SubjectSectionEnableDoc{},
	}

	sections, err := s.taxonomy.ListSections(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	sectionKeyByID := map[string]string{}
	for _, sec := range sections {
		sectionKeyByID[sec.ID] = sec.Key
		doc.Sections = append(doc.Sections, dto.SectionDoc{
			Key: sec.Key, LabelAR: sec.LabelAR, LabelEN: sec.LabelEN,
			IsEnabled: sec.IsEnabled, SortOrder: sec.SortOrder,
		})
	}

	cards, err := s.taxonomy.ListCards(ctx, "", true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cards")
	}
	cardKeyByID := map[string]string{}
	for _, c := range cards {
		cardKeyByID[c.ID] = c.Key
		entry := dto.CardDoc{
			Key: c.Key, LabelAR: c.LabelAR, LabelEN: c.LabelEN,
			ShowWhenEmpty: c.ShowWhenEmpty, IsEnabled: c.IsEnabled, SortOrder: c.SortOrder,
		}
		if c.SectionID != nil {
			if key, ok := sectionKeyByID[*c.SectionID]; ok {
				entry.SectionKey = &key
			}
		}
		doc.Cards = append(doc.Cards, entry)
	}

	itemTypes, err := s.taxonomy.ListItemTypes(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list item types")
	}
	itemTypeKeyByID := map[string]string{}
	for _, t := range itemTypes {
		itemTypeKeyByID[t.ID] = t.Key
		doc.ItemTypes = append(doc.ItemTypes, dto.ItemTypeDoc{
			Key: t.Key, LabelAR: t.LabelAR, LabelEN: t.LabelEN,
			RequiresLecture: t.RequiresLecture, AllowsYear: t.AllowsYear,
			AllowsLecturer: t.AllowsLecturer, IsEnabled: t.IsEnabled, SortOrder: t.SortOrder,
		})
	}

	aliases, err := s.aliases.ListAliases(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list aliases")
	}
	for _, a := range aliases {
		doc.Aliases = append(doc.Aliases, dto.AliasDoc{Alias: a.Alias, Normalized: a.Normalized, Lang: a.Lang})
	}

	mappings, err := s.aliases.ListMappings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	for _, m := range mappings {
		targetKey := m.TargetID
		switch m.TargetKind {
		case models.TargetSection:
			targetKey = sectionKeyByID[m.TargetID]
		case models.TargetCard:
			targetKey = cardKeyByID[m.TargetID]
		case models.TargetItemType:
			targetKey = itemTypeKeyByID[m.TargetID]
		}
		doc.Mappings = append(doc.Mappings, dto.MappingDoc{
			Alias:        m.Alias,
			TargetKind:   string(m.TargetKind),
			TargetKey:    targetKey,
			IsContentTag: m.IsContentTag,
			Overrides:    m.Overrides,
		})
	}

	enable, err := s.taxonomy.ListSubjectSectionEnable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject sections")
	}
	subjects, err := s.subjects.ListAllSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	subjectCodeByID := map[string]string{}
	for _, sub := range subjects {
		subjectCodeByID[sub.ID] = sub.Code
	}
	for _, e := range enable {
		doc.SubjectSectionEnable = append(doc.SubjectSectionEnable, dto.SubjectSectionEnableDoc{
			SubjectCode: subjectCodeByID[e.SubjectID],
			SectionKey:  sectionKeyByID[e.SectionID],
			SortOrder:   e.SortOrder,
		})
	}

	return doc, nil
}

// Import replays a document. In dry-run mode nothing is written; the
// report shows what would change. Conflicting rows (same key, different
// shape that cannot be updated in place) are skipped and reported.
func (s *ImportExportService) Import(ctx context.Context, doc *dto.TaxonomyDocument, dryRun bool) (*dto.ImportReport, error) {
	report := dto.NewImportReport(dryRun)

	for _, entry := range doc.Sections {
		if err := s.importSection(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.Cards {
		if err := s.importCard(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.ItemTypes {
		if err := s.importItemType(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.Aliases {
		if err := s.importAlias(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.Mappings {
		if err := s.importMapping(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.SubjectSectionEnable {
		if err := s.importSubjectSection(ctx, entry, dryRun, report); err != nil {
			return nil, err
		}
	}

	if !dryRun && s.flusher != nil {
		s.flusher.InvalidateAll(ctx)
	}
	return report, nil
}

func (s *ImportExportService) importSection(ctx context.Context, entry dto.SectionDoc, dryRun bool, report *dto.ImportReport) error {
	existing, err := s.taxonomy.GetSectionByKey(ctx, entry.Key)
	if err != nil {
		return fmt.Errorf("load section %q: %w", entry.Key, err)
	}
	if existing == nil {
		report.Add["sections"] = append(report.Add["sections"], entry.Key)
		if dryRun {
			return nil
		}
		return s.taxonomy.CreateSection(ctx, &models.Section{
			Key: entry.Key, LabelAR: entry.LabelAR, LabelEN: entry.LabelEN,
			IsEnabled: entry.IsEnabled, SortOrder: entry.SortOrder,
		})
	}
	if existing.LabelAR == entry.LabelAR && existing.LabelEN == entry.LabelEN &&
		existing.IsEnabled == entry.IsEnabled && existing.SortOrder == entry.SortOrder {
		return nil
	}
	report.Update["sections"] = append(report.Update["sections"], entry.Key)
	if dryRun {
		return nil
	}
	existing.LabelAR, existing.LabelEN = entry.LabelAR, entry.LabelEN
	existing.IsEnabled, existing.SortOrder = entry.IsEnabled, entry.SortOrder
	return s.taxonomy.UpdateSection(ctx, existing)
}

func (s *ImportExportService) importCard(ctx context.Context, entry dto.CardDoc, dryRun bool, report *dto.ImportReport) error {
	var sectionID *string
	if entry.SectionKey != nil {
		section, err := s.taxonomy.GetSectionByKey(ctx, *entry.SectionKey)
		if err != nil {
			return fmt.Errorf("load section %q: %w", *entry.SectionKey, err)
		}
		if section == nil {
			report.Conflicts["cards"] = append(report.Conflicts["cards"], entry.Key)
			return nil
		}
		sectionID = &section.ID
	}

	existing, err := s.taxonomy.GetCardByKey(ctx, entry.Key)
	if err != nil {
		return fmt.Errorf("load card %q: %w", entry.Key, err)
	}
	if existing == nil {
		report.Add["cards"] = append(report.Add["cards"], entry.Key)
		if dryRun {
			return nil
		}
		return s.taxonomy.CreateCard(ctx, &models.Card{
			Key: entry.Key, SectionID: sectionID, LabelAR: entry.LabelAR, LabelEN: entry.LabelEN,
			ShowWhenEmpty: entry.ShowWhenEmpty, IsEnabled: entry.IsEnabled, SortOrder: entry.SortOrder,
		})
	}
	report.Update["cards"] = append(report.Update["cards"], entry.Key)
	if dryRun {
		return nil
	}
	existing.SectionID = sectionID
	existing.LabelAR, existing.LabelEN = entry.LabelAR, entry.LabelEN
	existing.ShowWhenEmpty, existing.IsEnabled, existing.SortOrder = entry.ShowWhenEmpty, entry.IsEnabled, entry.SortOrder
	return s.taxonomy.UpdateCard(ctx, existing)
}

func (s *ImportExportService) importItemType(ctx context.Context, entry dto.ItemTypeDoc, dryRun bool, report *dto.ImportReport) error {
	existing, err := s.taxonomy.GetItemTypeByKey(ctx, entry.Key)
	if err != nil {
		return fmt.Errorf("load item type %q: %w", entry.Key, err)
	}
	if existing == nil {
		report.Add["item_types"] = append(report.Add["item_types"], entry.Key)
		if dryRun {
			return nil
		}
		return s.taxonomy.CreateItemType(ctx, &models.ItemType{
			Key: entry.Key, LabelAR: entry.LabelAR, LabelEN: entry.LabelEN,
			RequiresLecture: entry.RequiresLecture, AllowsYear: entry.AllowsYear,
			AllowsLecturer: entry.AllowsLecturer, IsEnabled: entry.IsEnabled, SortOrder: entry.SortOrder,
		})
	}
	report.Update["item_types"] = append(report.Update["item_types"], entry.Key)
	if dryRun {
		return nil
	}
	existing.LabelAR, existing.LabelEN = entry.LabelAR, entry.LabelEN
	existing.RequiresLecture, existing.AllowsYear, existing.AllowsLecturer = entry.RequiresLecture, entry.AllowsYear, entry.AllowsLecturer
	existing.IsEnabled, existing.SortOrder = entry.IsEnabled, entry.SortOrder
	return s.taxonomy.UpdateItemType(ctx, existing)
}

func (s *ImportExportService) importAlias(ctx context.Context, entry dto.AliasDoc, dryRun bool, report *dto.ImportReport) error {
	normalized := entry.Normalized
	if normalized == "" {
		normalized = parser.Normalize(entry.Alias)
	}
	existing, err := s.aliases.GetAlias(ctx, normalized)
	if err != nil {
		return fmt.Errorf("load alias %q: %w", entry.Alias, err)
	}
	if existing != nil {
		return nil
	}
	report.Add["aliases"] = append(report.Add["aliases"], entry.Alias)
	if dryRun {
		return nil
	}
	return s.aliases.CreateAlias(ctx, &models.HashtagAlias{
		Alias: entry.Alias, Normalized: normalized, Lang: entry.Lang,
	})
}

func (s *ImportExportService) importMapping(ctx context.Context, entry dto.MappingDoc, dryRun bool, report *dto.ImportReport) error {
	alias, err := s.aliases.GetAlias(ctx, parser.Normalize(entry.Alias))
	if err != nil {
		return fmt.Errorf("load alias %q: %w", entry.Alias, err)
	}
	if alias == nil {
		report.Conflicts["mappings"] = append(report.Conflicts["mappings"], entry.Alias)
		return nil
	}

	targetID, err := s.resolveDocTarget(ctx, models.TargetKind(entry.TargetKind), entry.TargetKey)
	if err != nil {
		return err
	}
	if targetID == "" {
		report.Conflicts["mappings"] = append(report.Conflicts["mappings"], entry.Alias)
		return nil
	}

	current, err := s.aliases.ResolveAlias(ctx, alias.Normalized)
	if err != nil {
		return fmt.Errorf("resolve alias %q: %w", entry.Alias, err)
	}
	if current != nil {
		if current.TargetKind == models.TargetKind(entry.TargetKind) && current.TargetID == targetID {
			return nil
		}
		// Existing mapping points somewhere else; never silently repoint.
		report.Conflicts["mappings"] = append(report.Conflicts["mappings"], entry.Alias)
		return nil
	}

	report.Add["mappings"] = append(report.Add["mappings"], entry.Alias)
	if dryRun {
		return nil
	}
	return s.aliases.CreateMapping(ctx, &models.HashtagMapping{
		AliasID:      alias.ID,
		TargetKind:   models.TargetKind(entry.TargetKind),
		TargetID:     targetID,
		IsContentTag: entry.IsContentTag,
		Overrides:    entry.Overrides,
	})
}

func (s *ImportExportService) importSubjectSection(ctx context.Context, entry dto.SubjectSectionEnableDoc, dryRun bool, report *dto.ImportReport) error {
	subject, err := s.subjects.GetSubjectByCode(ctx, entry.SubjectCode)
	if err != nil {
		return fmt.Errorf("load subject %q: %w", entry.SubjectCode, err)
	}
	section, err := s.taxonomy.GetSectionByKey(ctx, entry.SectionKey)
	if err != nil {
		return fmt.Errorf("load section %q: %w", entry.SectionKey, err)
	}
	if subject == nil || section == nil || !subject.SectionsMode.AllowsSectionKey(section.Key) {
		report.Conflicts["subject_section_enable"] = append(report.Conflicts["subject_section_enable"],
			entry.SubjectCode+"/"+entry.SectionKey)
		return nil
	}
	report.Add["subject_section_enable"] = append(report.Add["subject_section_enable"],
		entry.SubjectCode+"/"+entry.SectionKey)
	if dryRun {
		return nil
	}
	return s.taxonomy.EnableSubjectSection(ctx, subject.ID, section.ID, entry.SortOrder)
}

func (s *ImportExportService) resolveDocTarget(ctx context.Context, kind models.TargetKind, key string) (string, error) {
	switch kind {
	case models.TargetSection:
		section, err := s.taxonomy.GetSectionByKey(ctx, key)
		if err != nil {
			return "", fmt.Errorf("load section %q: %w", key, err)
		}
		if section == nil {
			return "", nil
		}
		return section.ID, nil
	case models.TargetCard:
		card, err := s.taxonomy.GetCardByKey(ctx, key)
		if err != nil {
			return "", fmt.Errorf("load card %q: %w", key, err)
		}
		if card == nil {
			return "", nil
		}
		return card.ID, nil
	case models.TargetItemType:
		itemType, err := s.taxonomy.GetItemTypeByKey(ctx, key)
		if err != nil {
			return "", fmt.Errorf("load item type %q: %w", key, err)
		}
		if itemType == nil {
			return "", nil
		}
		return itemType.ID, nil
	case models.TargetTermResourceKind:
		return key, nil
	default:
		return "", nil
	}
}
