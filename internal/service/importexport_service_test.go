package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
)

// memTaxonomy is an in-memory taxonomy backend shared by the import and
// export tests, so a roundtrip exercises both directions.
type memTaxonomy struct {
	sections  []models.Section
	cards     []models.Card
	itemTypes []models.ItemType
	enables   []models.SubjectSectionEnable
}

func (m *memTaxonomy) CreateSection(ctx context.Context, s *models.Section) error {
	s.ID = fmt.Sprintf("sec-%s", s.Key)
	m.sections = append(m.sections, *s)
	return nil
}

func (m *memTaxonomy) GetSectionByKey(ctx context.Context, key string) (*models.Section, error) {
	for i := range m.sections {
		if m.sections[i].Key == key {
			return &m.sections[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) GetSection(ctx context.Context, id string) (*models.Section, error) {
	for i := range m.sections {
		if m.sections[i].ID == id {
			return &m.sections[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) ListSections(ctx context.Context, includeDisabled bool) ([]models.Section, error) {
	return m.sections, nil
}

func (m *memTaxonomy) UpdateSection(ctx context.Context, s *models.Section) error {
	for i := range m.sections {
		if m.sections[i].ID == s.ID {
			m.sections[i] = *s
		}
	}
	return nil
}

func (m *memTaxonomy) DisableSection(ctx context.Context, id string) error {
	for i := range m.sections {
		if m.sections[i].ID == id {
			m.sections[i].IsEnabled = false
		}
	}
	return nil
}

func (m *memTaxonomy) CreateCard(ctx context.Context, c *models.Card) error {
	c.ID = fmt.Sprintf("card-%s", c.Key)
	m.cards = append(m.cards, *c)
	return nil
}

func (m *memTaxonomy) GetCardByKey(ctx context.Context, key string) (*models.Card, error) {
	for i := range m.cards {
		if m.cards[i].Key == key {
			return &m.cards[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) GetCard(ctx context.Context, id string) (*models.Card, error) {
	for i := range m.cards {
		if m.cards[i].ID == id {
			return &m.cards[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) ListCards(ctx context.Context, sectionID string, includeDisabled bool) ([]models.Card, error) {
	if sectionID == "" {
		return m.cards, nil
	}
	var out []models.Card
	for _, c := range m.cards {
		if c.SectionID != nil && *c.SectionID == sectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memTaxonomy) UpdateCard(ctx context.Context, c *models.Card) error {
	for i := range m.cards {
		if m.cards[i].ID == c.ID {
			m.cards[i] = *c
		}
	}
	return nil
}

func (m *memTaxonomy) CreateItemType(ctx context.Context, t *models.ItemType) error {
	t.ID = fmt.Sprintf("it-%s", t.Key)
	m.itemTypes = append(m.itemTypes, *t)
	return nil
}

func (m *memTaxonomy) GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error) {
	for i := range m.itemTypes {
		if m.itemTypes[i].Key == key {
			return &m.itemTypes[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) GetItemType(ctx context.Context, id string) (*models.ItemType, error) {
	for i := range m.itemTypes {
		if m.itemTypes[i].ID == id {
			return &m.itemTypes[i], nil
		}
	}
	return nil, nil
}

func (m *memTaxonomy) ListItemTypes(ctx context.Context, includeDisabled bool) ([]models.ItemType, error) {
	return m.itemTypes, nil
}

func (m *memTaxonomy) UpdateItemType(ctx context.Context, t *models.ItemType) error {
	for i := range m.itemTypes {
		if m.itemTypes[i].ID == t.ID {
			m.itemTypes[i] = *t
		}
	}
	return nil
}

func (m *memTaxonomy) EnableSubjectSection(ctx context.Context, subjectID, sectionID string, sortOrder int) error {
	m.enables = append(m.enables, models.SubjectSectionEnable{SubjectID: subjectID, SectionID: sectionID, SortOrder: sortOrder})
	return nil
}

func (m *memTaxonomy) DisableSubjectSection(ctx context.Context, subjectID, sectionID string) error {
	out := m.enables[:0]
	for _, e := range m.enables {
		if e.SubjectID != subjectID || e.SectionID != sectionID {
			out = append(out, e)
		}
	}
	m.enables = out
	return nil
}

func (m *memTaxonomy) ListSubjectSectionEnable(ctx context.Context) ([]models.SubjectSectionEnable, error) {
	return m.enables, nil
}

type memAliases struct {
	aliases  []models.HashtagAlias
	mappings []models.HashtagMapping
}

func (m *memAliases) CreateAlias(ctx context.Context, a *models.HashtagAlias) error {
	a.ID = fmt.Sprintf("alias-%s", a.Normalized)
	m.aliases = append(m.aliases, *a)
	return nil
}

func (m *memAliases) GetAlias(ctx context.Context, normalized string) (*models.HashtagAlias, error) {
	for i := range m.aliases {
		if m.aliases[i].Normalized == normalized {
			return &m.aliases[i], nil
		}
	}
	return nil, nil
}

func (m *memAliases) ListAliases(ctx context.Context) ([]models.HashtagAlias, error) {
	return m.aliases, nil
}

func (m *memAliases) DeleteAlias(ctx context.Context, id string) error {
	out := m.aliases[:0]
	for _, a := range m.aliases {
		if a.ID != id {
			out = append(out, a)
		}
	}
	m.aliases = out
	return nil
}

func (m *memAliases) CreateMapping(ctx context.Context, mp *models.HashtagMapping) error {
	mp.ID = fmt.Sprintf("map-%s", mp.AliasID)
	m.mappings = append(m.mappings, *mp)
	return nil
}

func (m *memAliases) DeleteMapping(ctx context.Context, aliasID string) error {
	out := m.mappings[:0]
	for _, mp := range m.mappings {
		if mp.AliasID != aliasID {
			out = append(out, mp)
		}
	}
	m.mappings = out
	return nil
}

func (m *memAliases) ResolveAlias(ctx context.Context, normalized string) (*models.AliasMapping, error) {
	alias, _ := m.GetAlias(ctx, normalized)
	if alias == nil {
		return nil, nil
	}
	for _, mp := range m.mappings {
		if mp.AliasID == alias.ID {
			return &models.AliasMapping{
				AliasID: alias.ID, Alias: alias.Alias, Normalized: alias.Normalized,
				MappingID: mp.ID, TargetKind: mp.TargetKind, TargetID: mp.TargetID,
				IsContentTag: mp.IsContentTag, Overrides: mp.Overrides,
			}, nil
		}
	}
	return nil, nil
}

func (m *memAliases) ListMappings(ctx context.Context) ([]models.AliasMapping, error) {
	var out []models.AliasMapping
	for _, mp := range m.mappings {
		for _, a := range m.aliases {
			if a.ID == mp.AliasID {
				out = append(out, models.AliasMapping{
					AliasID: a.ID, Alias: a.Alias, Normalized: a.Normalized,
					MappingID: mp.ID, TargetKind: mp.TargetKind, TargetID: mp.TargetID,
					IsContentTag: mp.IsContentTag, Overrides: mp.Overrides,
				})
			}
		}
	}
	return out, nil
}

type memSubjects struct {
	subjects []models.Subject
}

func (m *memSubjects) ListAllSubjects(ctx context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

func (m *memSubjects) GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error) {
	for i := range m.subjects {
		if m.subjects[i].Code == code {
			return &m.subjects[i], nil
		}
	}
	return nil, nil
}

type flushCounter struct {
	calls int
}

func (f *flushCounter) InvalidateAll(ctx context.Context) { f.calls++ }

func sampleDocument() *dto.TaxonomyDocument {
	theory := "theory"
	return &dto.TaxonomyDocument{
		Sections: []dto.SectionDoc{
			{Key: "theory", LabelAR: "نظري", IsEnabled: true, SortOrder: 1},
			{Key: "lab", LabelAR: "عملي", IsEnabled: true, SortOrder: 2},
		},
		Cards: []dto.CardDoc{
			{Key: "lectures", SectionKey: &theory, LabelAR: "المحاضرات", IsEnabled: true, SortOrder: 1},
		},
		ItemTypes: []dto.ItemTypeDoc{
			{Key: "slides", LabelAR: "سلايدات", RequiresLecture: true, AllowsYear: true, AllowsLecturer: true, IsEnabled: true},
		},
		Aliases: []dto.AliasDoc{
			{Alias: "سلايدات", Normalized: "سلايدات"},
		},
		Mappings: []dto.MappingDoc{
			{Alias: "سلايدات", TargetKind: "item_type", TargetKey: "slides", IsContentTag: true},
		},
		SubjectSectionEnable: []dto.SubjectSectionEnableDoc{
			{SubjectCode: "ANAT101", SectionKey: "theory", SortOrder: 1},
		},
	}
}

func newImportFixture() (*ImportExportService, *memTaxonomy, *memAliases, *flushCounter) {
	taxonomy := &memTaxonomy{}
	aliases := &memAliases{}
	subjects := &memSubjects{subjects: []models.Subject{
		{ID: "subj-1", Code: "ANAT101", Name: "تشريح", SectionsMode: models.SectionsTheoryOnly},
	}}
	flusher := &flushCounter{}
	return NewImportExportService(taxonomy, aliases, subjects, flusher, nil), taxonomy, aliases, flusher
}

func TestImportIntoEmptyStore(t *testing.T) {
	svc, taxonomy, aliases, flusher := newImportFixture()

	report, err := svc.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)
	require.False(t, report.DryRun)
	require.ElementsMatch(t, []string{"theory", "lab"}, report.Add["sections"])
	require.Equal(t, []string{"lectures"}, report.Add["cards"])
	require.Equal(t, []string{"slides"}, report.Add["item_types"])
	require.Equal(t, []string{"سلايدات"}, report.Add["aliases"])
	require.Equal(t, []string{"سلايدات"}, report.Add["mappings"])
	require.Equal(t, []string{"ANAT101/theory"}, report.Add["subject_section_enable"])

	require.Len(t, taxonomy.sections, 2)
	require.Len(t, taxonomy.cards, 1)
	require.Len(t, aliases.mappings, 1)
	require.Equal(t, "it-slides", aliases.mappings[0].TargetID)
	require.Equal(t, 1, flusher.calls)
}

func TestImportDryRunWritesNothing(t *testing.T) {
	svc, taxonomy, aliases, flusher := newImportFixture()

	report, err := svc.Import(context.Background(), sampleDocument(), true)
	require.NoError(t, err)
	require.True(t, report.DryRun)
	require.NotEmpty(t, report.Add["sections"])

	require.Empty(t, taxonomy.sections)
	require.Empty(t, aliases.aliases)
	require.Equal(t, 0, flusher.calls)
}

func TestImportIsIdempotent(t *testing.T) {
	svc, _, _, _ := newImportFixture()

	_, err := svc.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)

	report, err := svc.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)
	require.Empty(t, report.Add["sections"])
	require.Empty(t, report.Update["sections"])
	require.Empty(t, report.Add["mappings"])
	require.Empty(t, report.Conflicts["mappings"])
}

func TestImportNeverRepointsMapping(t *testing.T) {
	svc, _, aliases, _ := newImportFixture()

	_, err := svc.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Mappings[0].TargetKind = "section"
	doc.Mappings[0].TargetKey = "theory"

	report, err := svc.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Equal(t, []string{"سلايدات"}, report.Conflicts["mappings"])
	require.Equal(t, models.TargetItemType, aliases.mappings[0].TargetKind)
}

func TestImportCardMissingSectionConflicts(t *testing.T) {
	svc, taxonomy, _, _ := newImportFixture()

	orphan := "ghost"
	doc := &dto.TaxonomyDocument{
		Cards: []dto.CardDoc{{Key: "lost", SectionKey: &orphan, LabelAR: "x"}},
	}

	report, err := svc.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Equal(t, []string{"lost"}, report.Conflicts["cards"])
	require.Empty(t, taxonomy.cards)
}

func TestImportSubjectSectionModeViolationConflicts(t *testing.T) {
	svc, taxonomy, _, _ := newImportFixture()

	doc := sampleDocument()
	// ANAT101 is theory_only; enabling lab for it must be refused.
	doc.SubjectSectionEnable = append(doc.SubjectSectionEnable,
		dto.SubjectSectionEnableDoc{SubjectCode: "ANAT101", SectionKey: "lab"})

	report, err := svc.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Contains(t, report.Conflicts["subject_section_enable"], "ANAT101/lab")
	require.Len(t, taxonomy.enables, 1)
}

func TestImportMappingWithoutAliasConflicts(t *testing.T) {
	svc, _, _, _ := newImportFixture()

	doc := &dto.TaxonomyDocument{
		Mappings: []dto.MappingDoc{{Alias: "يتيم", TargetKind: "section", TargetKey: "theory"}},
	}

	report, err := svc.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Equal(t, []string{"يتيم"}, report.Conflicts["mappings"])
}

func TestImportUpdatesChangedSection(t *testing.T) {
	svc, taxonomy, _, _ := newImportFixture()

	_, err := svc.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Sections[0].LabelAR = "النظري"

	report, err := svc.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Equal(t, []string{"theory"}, report.Update["sections"])

	section, err := taxonomy.GetSectionByKey(context.Background(), "theory")
	require.NoError(t, err)
	require.Equal(t, "النظري", section.LabelAR)
}

func TestExportRoundtrip(t *testing.T) {
	source, _, _, _ := newImportFixture()
	_, err := source.Import(context.Background(), sampleDocument(), false)
	require.NoError(t, err)

	doc, err := source.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	require.Len(t, doc.Mappings, 1)
	// Mapping targets export as keys, not internal ids.
	require.Equal(t, "slides", doc.Mappings[0].TargetKey)
	require.Equal(t, "ANAT101", doc.SubjectSectionEnable[0].SubjectCode)

	// Replaying the exported document in a fresh store adds everything
	// and nothing conflicts.
	dest, _, _, _ := newImportFixture()
	report, err := dest.Import(context.Background(), doc, false)
	require.NoError(t, err)
	require.Empty(t, report.Conflicts["mappings"])
	require.Len(t, report.Add["sections"], 2)

	again, err := dest.Export(context.Background())
	require.NoError(t, err)
	require.Equal(t, doc, again)
}
