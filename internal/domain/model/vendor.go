package model

import "github.com/shopspring/decimal"

// 資材の販売元。配送料はベンダーごとに固定。
type Vendor struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}
