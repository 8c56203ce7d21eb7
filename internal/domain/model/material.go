package model

import "github.com/shopspring/decimal"

// 資材（1つのベンダーが提供する参照データ）
type Material struct {
	ID       string          `json:"id"`
	VendorID string          `json:"vendor_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	InStock  bool            `json:"in_stock"`
}

// Valid はカートに入れられる最低条件（ID必須・価格は0以上）。
func (m Material) Valid() bool {
	return m.ID != "" && !m.Price.IsNegative()
}
