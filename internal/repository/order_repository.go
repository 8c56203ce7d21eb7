package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 注文スナップショットの書き出し先。正はプロセス内の状態で、こちらは追記用。
type OrderArchive interface {
	Save(ctx context.Context, sessionID string, order model.Order) error
	//ステータス更新と履歴の追加は同じトランザクション
	UpdateStatus(ctx context.Context, change model.StatusChange) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	//古い順
	ListStatusHistory(ctx context.Context, orderID string) ([]model.StatusChange, error)
}
