package models

// SectionsMode is the legacy constraint limiting which built-in sections a
// subject may enable.
type SectionsMode string

const (
	SectionsTheoryOnly          SectionsMode = "theory_only"
	SectionsTheoryDiscussion    SectionsMode = "theory_discussion"
	SectionsTheoryDiscussionLab SectionsMode = "theory_discussion_lab"
)

// AllowsSectionKey reports whether the mode permits one of the legacy
// section keys. Admin-defined sections are unconstrained.
func (m SectionsMode) AllowsSectionKey(key string) bool {
	switch key {
	case "theory":
		return true
	case "discussion":
		return m == SectionsTheoryDiscussion || m == SectionsTheoryDiscussionLab || m == ""
	case "lab":
		return m == SectionsTheoryDiscussionLab || m == ""
	default:
		return true
	}
}

// Level is the top of the browsing hierarchy (study year).
type Level struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// Term is an academic term within a level.
type Term struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// Subject is a course taught in a level+term.
type Subject struct {
	ID           string       `db:"id" json:"id"`
	Code         string       `db:"code" json:"code"`
	Name         string       `db:"name" json:"name"`
	LevelID      string       `db:"level_id" json:"level_id"`
	TermID       string       `db:"term_id" json:"term_id"`
	SectionsMode SectionsMode `db:"sections_mode" json:"sections_mode"`
}

// Group binds a source chat to a level and term.
type Group struct {
	ID      string  `db:"id" json:"id"`
	ChatID  int64   `db:"chat_id" json:"chat_id"`
	Title   string  `db:"title" json:"title"`
	LevelID *string `db:"level_id" json:"level_id,omitempty"`
	TermID  *string `db:"term_id" json:"term_id,omitempty"`
}

// TopicBinding binds a chat topic to a subject and section so submissions
// posted there inherit that scope.
type TopicBinding struct {
	ID        string `db:"id" json:"id"`
	GroupID   string `db:"group_id" json:"group_id"`
	TopicID   int64  `db:"topic_id" json:"topic_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	SectionID string `db:"section_id" json:"section_id"`
}
