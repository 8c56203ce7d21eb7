package usecase

import "marketplace/internal/domain/model"

// 注文の作成とステータス変化の通知先（メトリクス・アーカイブなど）。
// ロックの外から呼ばれる。
type OrderObserver interface {
	OrderPlaced(sessionID string, order model.Order)
	StatusChanged(sessionID string, order model.Order, from model.OrderStatus)
}
