package repository

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 注文スナップショットの行
type OrderRecord struct {
	ID            string            `gorm:"type:varchar(64);primaryKey"`
	SessionID     string            `gorm:"type:varchar(64);not null;index"`
	Subtotal      decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	DeliveryFee   decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	Address       model.Address     `gorm:"embedded;embeddedPrefix:address_"`
	PaymentMethod string            `gorm:"type:varchar(64);not null"`
	Status        model.OrderStatus `gorm:"type:varchar(32);not null;index"`
	CreatedAt     time.Time         `gorm:"not null"`
	UpdatedAt     time.Time         `gorm:"not null"`
	Lines         []OrderLineRecord `gorm:"foreignKey:OrderID"`
}

func (OrderRecord) TableName() string { return "orders" }

// 明細（名前・単価は注文時点の値）
type OrderLineRecord struct {
	ID                int64           `gorm:"primaryKey;autoIncrement"`
	OrderID           string          `gorm:"type:varchar(64);not null;index"`
	MaterialID        string          `gorm:"type:varchar(64);not null"`
	VendorID          string          `gorm:"type:varchar(64);not null;index"`
	NameSnapshot      string          `gorm:"type:varchar(255);not null"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Unit              string          `gorm:"type:varchar(32)"`
	Quantity          int             `gorm:"not null"`
}

func (OrderLineRecord) TableName() string { return "order_lines" }

// ステータス変更の履歴（追記のみ）
type OrderStatusEventRecord struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	OrderID    string            `gorm:"type:varchar(64);not null;index"`
	FromStatus model.OrderStatus `gorm:"type:varchar(32);not null"`
	ToStatus   model.OrderStatus `gorm:"type:varchar(32);not null;index"`
	CreatedAt  time.Time         `gorm:"not null;index"`
}

func (OrderStatusEventRecord) TableName() string { return "order_status_events" }

type OrderArchiveGormRepository struct {
	db *gorm.DB
}

func NewOrderArchiveGormRepository(db *gorm.DB) *OrderArchiveGormRepository {
	return &OrderArchiveGormRepository{db: db}
}

func (r *OrderArchiveGormRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&OrderRecord{}, &OrderLineRecord{}, &OrderStatusEventRecord{})
}

// Save は注文と明細を1トランザクションで保存
func (r *OrderArchiveGormRepository) Save(ctx context.Context, sessionID string, order model.Order) error {
	rec := toOrderRecord(sessionID, order)
	lines := rec.Lines
	rec.Lines = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

// UpdateStatus は注文のステータス更新と履歴の追加。注文が無ければ ErrNotFound。
func (r *OrderArchiveGormRepository) UpdateStatus(ctx context.Context, change model.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&OrderRecord{}).
			Where("id = ?", change.OrderID).
			Updates(map[string]interface{}{
				"status":     change.To,
				"updated_at": change.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		ev := OrderStatusEventRecord{
			OrderID:    change.OrderID,
			FromStatus: change.From,
			ToStatus:   change.To,
			CreatedAt:  change.At,
		}
		return tx.Create(&ev).Error
	})
}

func (r *OrderArchiveGormRepository) ListStatusHistory(ctx context.Context, orderID string) ([]model.StatusChange, error) {
	var events []OrderStatusEventRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	out := make([]model.StatusChange, 0, len(events))
	for _, ev := range events {
		out = append(out, model.StatusChange{
			OrderID: ev.OrderID,
			From:    ev.FromStatus,
			To:      ev.ToStatus,
			At:      ev.CreatedAt,
		})
	}
	return out, nil
}

func (r *OrderArchiveGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var rec OrderRecord
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id = ?", orderID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return rec.toModel(), nil
}

func toOrderRecord(sessionID string, o model.Order) OrderRecord {
	lines := make([]OrderLineRecord, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineRecord{
			OrderID:           o.ID,
			MaterialID:        l.Material.ID,
			VendorID:          l.VendorID,
			NameSnapshot:      l.Material.Name,
			UnitPriceSnapshot: l.Material.Price,
			Unit:              l.Material.Unit,
			Quantity:          l.Quantity,
		})
	}

	return OrderRecord{
		ID:            o.ID,
		SessionID:     sessionID,
		Subtotal:      o.Subtotal,
		DeliveryFee:   o.DeliveryFee,
		Address:       o.Address,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Lines:         lines,
	}
}

func (rec OrderRecord) toModel() model.Order {
	lines := make([]model.CartLine, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		lines = append(lines, model.CartLine{
			Material: model.Material{
				ID:       l.MaterialID,
				VendorID: l.VendorID,
				Name:     l.NameSnapshot,
				Price:    l.UnitPriceSnapshot,
				Unit:     l.Unit,
				InStock:  true,
			},
			VendorID: l.VendorID,
			Quantity: l.Quantity,
		})
	}

	return model.Order{
		ID:            rec.ID,
		Lines:         lines,
		Subtotal:      rec.Subtotal,
		DeliveryFee:   rec.DeliveryFee,
		Address:       rec.Address,
		PaymentMethod: rec.PaymentMethod,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
