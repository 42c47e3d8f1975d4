package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
)

// LocalArchiveCopier is the stand-in storage collaborator used when no
// chat transport is wired: it allocates monotonically increasing message
// ids against the configured archive chat and logs each copy.
type LocalArchiveCopier struct {
	chatID int64
	nextID int64
	logger *zap.Logger
}

// NewLocalArchiveCopier constructs a LocalArchiveCopier.
func NewLocalArchiveCopier(chatID int64, logger *zap.Logger) *LocalArchiveCopier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalArchiveCopier{chatID: chatID, logger: logger}
}

// CopyToArchive implements ArchiveCopier.
func (c *LocalArchiveCopier) CopyToArchive(ctx context.Context, sub dto.Submission) (int64, int64, error) {
	msgID := atomic.AddInt64(&c.nextID, 1)
	c.logger.Info("submission copied to archive",
		zap.Int64("storage_chat_id", c.chatID),
		zap.Int64("storage_msg_id", msgID),
		zap.Int64("source_chat_id", sub.SourceChatID),
		zap.Int64("source_message_id", sub.SourceMessageID))
	return c.chatID, msgID, nil
}
