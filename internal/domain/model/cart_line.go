package model

import "github.com/shopspring/decimal"

// カートの明細。(Material.ID, VendorID) で一意、Quantity は常に1以上。
type CartLine struct {
	Material Material `json:"material"`
	VendorID string   `json:"vendor_id"`
	Quantity int      `json:"quantity"`
}

func (l CartLine) Matches(materialID, vendorID string) bool {
	return l.Material.ID == materialID && l.VendorID == vendorID
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Material.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ベンダー単位の集計（保存しない派生ビュー）
type VendorGroup struct {
	VendorID    string          `json:"vendor_id"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Lines       []CartLine      `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CopyLines は明細のコピー。Material は値なのでスライスの複製で十分。
func CopyLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
