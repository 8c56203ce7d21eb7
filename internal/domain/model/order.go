package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const shortIDLength = 8

// チェックアウト時点のスナップショット。作成後に変わるのは Status（と UpdatedAt）だけ。
type Order struct {
	ID            string          `json:"id"`
	Lines         []CartLine      `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Address       Address         `json:"address"`
	PaymentMethod string          `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (o Order) Total() decimal.Decimal {
	return o.Subtotal.Add(o.DeliveryFee)
}

// ShortID は画面表示用に切り詰めたID
func (o Order) ShortID() string {
	if len(o.ID) <= shortIDLength {
		return o.ID
	}
	return o.ID[:shortIDLength]
}

func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Clone は明細を含めたディープコピー
func (o Order) Clone() Order {
	o.Lines = CopyLines(o.Lines)
	return o
}
