package dto

// Submission is one inbound content message, as delivered by the chat
// transport collaborator.
type Submission struct {
	Caption         string  `json:"caption" validate:"required"`
	FileUniqueID    *string `json:"file_unique_id,omitempty"`
	URL             *string `json:"url,omitempty"`
	SourceChatID    int64   `json:"source_chat_id" validate:"required"`
	SourceTopicID   *int64  `json:"source_topic_id,omitempty"`
	SourceMessageID int64   `json:"source_message_id" validate:"required"`
	// OverrideDuplicate is the out-of-band retry flag after a duplicate
	// rejection; honored only with the override capability.
	OverrideDuplicate bool `json:"override_duplicate,omitempty"`
}

// IngestStatus is the outcome of one submission.
type IngestStatus string

const (
	IngestPersisted IngestStatus = "persisted"
	IngestRejected  IngestStatus = "rejected"
	IngestDuplicate IngestStatus = "duplicate"
)

// Violation carries the typed rejection reason back to the submitter.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IngestResult is the coordinator's reply for one submission.
type IngestResult struct {
	Status         IngestStatus `json:"status"`
	IngestionID    string       `json:"ingestion_id"`
	MaterialID     *string      `json:"material_id,omitempty"`
	TermResourceID *string      `json:"term_resource_id,omitempty"`
	Violation      *Violation   `json:"violation,omitempty"`
	// ExistingMaterialID points at the prior material when the status is
	// duplicate, so the submitter can be shown what it collides with.
	ExistingMaterialID *string `json:"existing_material_id,omitempty"`
}
