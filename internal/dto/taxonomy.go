package dto

// CRUD payloads for the taxonomy admin endpoints.

type SectionRequest struct {
	Key       string `json:"key" validate:"required"`
	LabelAR   string `json:"label_ar" validate:"required"`
	LabelEN   string `json:"label_en"`
	IsEnabled *bool  `json:"is_enabled,omitempty"`
	SortOrder int    `json:"sort_order"`
}

type CardRequest struct {
	Key           string  `json:"key" validate:"required"`
	SectionKey    *string `json:"section_key,omitempty"`
	LabelAR       string  `json:"label_ar" validate:"required"`
	LabelEN       string  `json:"label_en"`
	ShowWhenEmpty bool    `json:"show_when_empty"`
	IsEnabled     *bool   `json:"is_enabled,omitempty"`
	SortOrder     int     `json:"sort_order"`
}

type ItemTypeRequest struct {
	Key             string `json:"key" validate:"required"`
	LabelAR         string `json:"label_ar" validate:"required"`
	LabelEN         string `json:"label_en"`
	RequiresLecture bool   `json:"requires_lecture"`
	AllowsYear      *bool  `json:"allows_year,omitempty"`
	AllowsLecturer  *bool  `json:"allows_lecturer,omitempty"`
	IsEnabled       *bool  `json:"is_enabled,omitempty"`
	SortOrder       int    `json:"sort_order"`
}

type AliasRequest struct {
	Alias string  `json:"alias" validate:"required"`
	Lang  *string `json:"lang,omitempty"`
}

type MappingRequest struct {
	Alias        string  `json:"alias" validate:"required"`
	TargetKind   string  `json:"target_kind" validate:"required,oneof=card section item_type term_resource_kind"`
	TargetKey    string  `json:"target_key" validate:"required"`
	IsContentTag bool    `json:"is_content_tag"`
	Overrides    *string `json:"overrides,omitempty"`
}

type SubjectSectionEnableRequest struct {
	SubjectID  string `json:"subject_id" validate:"required"`
	SectionKey string `json:"section_key" validate:"required"`
	SortOrder  int    `json:"sort_order"`
}

// Import/export document. Keys are serialized in dependency order so that
// card→section and mapping→alias references resolve on replay. Unknown
// trailing keys are ignored.

type SectionDoc struct {
	Key       string `json:"key"`
	LabelAR   string `json:"label_ar"`
	LabelEN   string `json:"label_en"`
	IsEnabled bool   `json:"is_enabled"`
	SortOrder int    `json:"sort_order"`
}

type CardDoc struct {
	Key           string  `json:"key"`
	SectionKey    *string `json:"section_key,omitempty"`
	LabelAR       string  `json:"label_ar"`
	LabelEN       string  `json:"label_en"`
	ShowWhenEmpty bool    `json:"show_when_empty"`
	IsEnabled     bool    `json:"is_enabled"`
	SortOrder     int     `json:"sort_order"`
}

type ItemTypeDoc struct {
	Key             string `json:"key"`
	LabelAR         string `json:"label_ar"`
	LabelEN         string `json:"label_en"`
	RequiresLecture bool   `json:"requires_lecture"`
	AllowsYear      bool   `json:"allows_year"`
	AllowsLecturer  bool   `json:"allows_lecturer"`
	IsEnabled       bool   `json:"is_enabled"`
	SortOrder       int    `json:"sort_order"`
}

type AliasDoc struct {
	Alias      string  `json:"alias"`
	Normalized string  `json:"normalized"`
	Lang       *string `json:"lang,omitempty"`
}

type MappingDoc struct {
	Alias        string  `json:"alias"`
	TargetKind   string  `json:"target_kind"`
	TargetKey    string  `json:"target_key"`
	IsContentTag bool    `json:"is_content_tag"`
	Overrides    *string `json:"overrides,omitempty"`
}

type SubjectSectionEnableDoc struct {
	SubjectCode string `json:"subject_code"`
	SectionKey  string `json:"section_key"`
	SortOrder   int    `json:"sort_order"`
}

// TaxonomyDocument is the import/export wire format.
type TaxonomyDocument struct {
	Sections             []SectionDoc              `json:"sections"`
	Cards                []CardDoc                 `json:"cards"`
	ItemTypes            []ItemTypeDoc             `json:"item_types"`
	Aliases              []AliasDoc                `json:"aliases"`
	Mappings             []MappingDoc              `json:"mappings"`
	SubjectSectionEnable []SubjectSectionEnableDoc `json:"subject_section_enable"`
}

// ImportReport summarizes what an import would (or did) change, keyed by
// table name.
type ImportReport struct {
	Add       map[string][]string `json:"add"`
	Update    map[string][]string `json:"update"`
	Conflicts map[string][]string `json:"conflicts"`
	DryRun    bool                `json:"dry_run"`
}

// NewImportReport allocates an empty report.
func NewImportReport(dryRun bool) *ImportReport {
	return &ImportReport{
		Add:       make(map[string][]string),
		Update:    make(map[string][]string),
		Conflicts: make(map[string][]string),
		DryRun:    dryRun,
	}
}

// HasConflicts reports whether any entity produced a conflict.
func (r *ImportReport) HasConflicts() bool {
	for _, keys := range r.Conflicts {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}
