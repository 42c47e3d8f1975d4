package models

import "time"

// Year is an interned exam/archive year label (e.g. "1446").
type Year struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Lecturer is an interned lecturer display name.
type Lecturer struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Material is one archived item. Section and Category keep the legacy text
// alongside the normalized foreign keys; the ids are authoritative and are
// never overwritten from the text side.
type Material struct {
	ID              string     `db:"id" json:"id"`
	SubjectID       string     `db:"subject_id" json:"subject_id"`
	SectionID       string     `db:"section_id" json:"section_id"`
	Section         string     `db:"section" json:"section"`
	CardID          string     `db:"card_id" json:"card_id"`
	Category        string     `db:"category" json:"category"`
	ItemTypeID      string     `db:"item_type_id" json:"item_type_id"`
	Title           string     `db:"title" json:"title"`
	URL             *string    `db:"url" json:"url,omitempty"`
	YearID          *string    `db:"year_id" json:"year_id,omitempty"`
	LecturerID      *string    `db:"lecturer_id" json:"lecturer_id,omitempty"`
	LectureNo       *int       `db:"lecture_no" json:"lecture_no,omitempty"`
	Fingerprint     string     `db:"fingerprint" json:"fingerprint"`
	StorageChatID   *int64     `db:"storage_chat_id" json:"storage_chat_id,omitempty"`
	StorageMsgID    *int64     `db:"storage_msg_id" json:"storage_msg_id,omitempty"`
	SourceChatID    int64      `db:"source_chat_id" json:"source_chat_id"`
	SourceTopicID   *int64     `db:"source_topic_id" json:"source_topic_id,omitempty"`
	SourceMessageID int64      `db:"source_message_id" json:"source_message_id"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// MaterialScope is the slot a material occupies for duplicate detection.
type MaterialScope struct {
	SubjectID  string
	SectionID  string
	ItemTypeID string
	YearID     *string
	LecturerID *string
	LectureNo  *int
}

// MaterialFilter narrows listing queries.
type MaterialFilter struct {
	SubjectID  string
	SectionID  string
	CardID     string
	ItemTypeID string
	YearID     string
	LecturerID string
	Limit      int
	Offset     int
}
