package usecase

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"go.uber.org/zap"
)

const archiveTimeout = 5 * time.Second

// ArchiveObserver は注文の作成・ステータス変化を OrderArchive に書き出す。
// 書き込み失敗はログに残すだけで、プロセス内の状態は変えない。
type ArchiveObserver struct {
	archive repository.OrderArchive
	logger  *zap.Logger
}

func NewArchiveObserver(archive repository.OrderArchive, logger *zap.Logger) *ArchiveObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveObserver{archive: archive, logger: logger}
}

func (o *ArchiveObserver) OrderPlaced(sessionID string, order model.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := o.archive.Save(ctx, sessionID, order); err != nil {
		o.logger.Error("archive order failed",
			zap.String("session_id", sessionID),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (o *ArchiveObserver) StatusChanged(sessionID string, order model.Order, from model.OrderStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	change := model.StatusChange{
		OrderID: order.ID,
		From:    from,
		To:      order.Status,
		At:      order.UpdatedAt,
	}
	if err := o.archive.UpdateStatus(ctx, change); err != nil {
		o.logger.Error("archive status failed",
			zap.String("session_id", sessionID),
			zap.String("order_id", order.ID),
			zap.String("status", order.Status.String()),
			zap.Error(err),
		)
	}
}
