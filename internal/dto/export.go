package dto

import "time"

// InventoryRow is one line of the material inventory export.
type InventoryRow struct {
	ID          string    `db:"id" json:"id"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	SectionKey  string    `db:"section_key" json:"section_key"`
	CardKey     string    `db:"card_key" json:"card_key"`
	ItemType    string    `db:"item_type_key" json:"item_type"`
	Title       string    `db:"title" json:"title"`
	Year        string    `db:"year" json:"year,omitempty"`
	Lecturer    string    `db:"lecturer" json:"lecturer,omitempty"`
	LectureNo   *int      `db:"lecture_no" json:"lecture_no,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
