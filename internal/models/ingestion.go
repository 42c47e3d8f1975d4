package models

import "time"

// IngestionStatus tracks the lifecycle of one submission attempt.
type IngestionStatus string

const (
	IngestionPending   IngestionStatus = "pending"
	IngestionApproved  IngestionStatus = "approved"
	IngestionRejected  IngestionStatus = "rejected"
	IngestionDuplicate IngestionStatus = "duplicate"
)

// IngestionAction records what the submitter asked for.
type IngestionAction string

const (
	ActionAdd     IngestionAction = "add"
	ActionReplace IngestionAction = "replace"
)

// IngestionRecord is the append-only audit trail of a submission attempt.
// Rows are written on every attempt regardless of outcome and are never
// deleted; only the status transitions.
type IngestionRecord struct {
	ID              string          `db:"id" json:"id"`
	MaterialID      *string         `db:"material_id" json:"material_id,omitempty"`
	TermResourceID  *string         `db:"term_resource_id" json:"term_resource_id,omitempty"`
	Status          IngestionStatus `db:"status" json:"status"`
	Action          IngestionAction `db:"action" json:"action"`
	SourceChatID    int64           `db:"source_chat_id" json:"source_chat_id"`
	SourceMessageID int64           `db:"source_message_id" json:"source_message_id"`
	AdminID         string          `db:"admin_id" json:"admin_id"`
	FileUniqueID    *string         `db:"file_unique_id" json:"file_unique_id,omitempty"`
	Violation       *string         `db:"violation" json:"violation,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
