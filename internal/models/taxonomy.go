package models

// Section is a canonical grouping of content within a subject
// (theory, discussion, lab and any admin-defined additions).
type Section struct {
	ID        string `db:"id" json:"id"`
	Key       string `db:"key" json:"key"`
	LabelAR   string `db:"label_ar" json:"label_ar"`
	LabelEN   string `db:"label_en" json:"label_en"`
	IsEnabled bool   `db:"is_enabled" json:"is_enabled"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// Card is a browsing tile shown inside a section. A nil SectionID means the
// card is unscoped and applies to every section.
type Card struct {
	ID            string  `db:"id" json:"id"`
	Key           string  `db:"key" json:"key"`
	SectionID     *string `db:"section_id" json:"section_id,omitempty"`
	LabelAR       string  `db:"label_ar" json:"label_ar"`
	LabelEN       string  `db:"label_en" json:"label_en"`
	ShowWhenEmpty bool    `db:"show_when_empty" json:"show_when_empty"`
	IsEnabled     bool    `db:"is_enabled" json:"is_enabled"`
	SortOrder     int     `db:"sort_order" json:"sort_order"`
}

// ItemType is the granular classification of an uploaded item. It decides
// whether a lecture number is mandatory and whether year/lecturer tags apply.
type ItemType struct {
	ID              string `db:"id" json:"id"`
	Key             string `db:"key" json:"key"`
	LabelAR         string `db:"label_ar" json:"label_ar"`
	LabelEN         string `db:"label_en" json:"label_en"`
	RequiresLecture bool   `db:"requires_lecture" json:"requires_lecture"`
	AllowsYear      bool   `db:"allows_year" json:"allows_year"`
	AllowsLecturer  bool   `db:"allows_lecturer" json:"allows_lecturer"`
	IsEnabled       bool   `db:"is_enabled" json:"is_enabled"`
	SortOrder       int    `db:"sort_order" json:"sort_order"`
}

// SubjectSectionEnable turns a section on for one subject.
type SubjectSectionEnable struct {
	SubjectID string `db:"subject_id" json:"subject_id"`
	SectionID string `db:"section_id" json:"section_id"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// Label picks the display label for a locale, falling back to Arabic.
func (s Section) Label(locale string) string {
	if locale == "en" && s.LabelEN != "" {
		return s.LabelEN
	}
	return s.LabelAR
}

func (c Card) Label(locale string) string {
	if locale == "en" && c.LabelEN != "" {
		return c.LabelEN
	}
	return c.LabelAR
}

func (t ItemType) Label(locale string) string {
	if locale == "en" && t.LabelEN != "" {
		return t.LabelEN
	}
	return t.LabelAR
}
