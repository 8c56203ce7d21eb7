package model

import "strings"

// 配送先住所
type Address struct {
	//宛名
	Name string `json:"name"`

	//郵便番号
	PostalCode string `json:"postal_code"`

	//市区町村
	City string `json:"city"`

	//番地など
	Line1 string `json:"line1"`

	//建物名など
	Line2 string `json:"line2"`

	//電話番号
	Phone string `json:"phone"`
}

// 配送に最低限必要なのは番地と市区町村
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == ""
}

func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
