package models

import "time"

// TermResource is an archived item scoped to a level+term instead of a
// subject (attendance sheets, study plans). Only the latest row per
// (level, term, kind) is served; older rows stay for history.
type TermResource struct {
	ID            string    `db:"id" json:"id"`
	LevelID       string    `db:"level_id" json:"level_id"`
	TermID        string    `db:"term_id" json:"term_id"`
	Kind          string    `db:"kind" json:"kind"`
	StorageChatID int64     `db:"storage_chat_id" json:"storage_chat_id"`
	StorageMsgID  int64     `db:"storage_msg_id" json:"storage_msg_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
