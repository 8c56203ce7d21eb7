package model

import "fmt"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
)

// 配送ステータスの順序（前進のみ）
var orderStatusSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// OrderStatuses は全ステータスを順序どおりに返す。
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatusSequence))
	copy(out, orderStatusSequence)
	return out
}

// Index は順序上の位置。不明なステータスは -1。
func (s OrderStatus) Index() int {
	for i, v := range orderStatusSequence {
		if v == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsValid() bool {
	return s.Index() >= 0
}

// deliveredは終端
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// Next は次のステータス。終端か不明なら false。
func (s OrderStatus) Next() (OrderStatus, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(orderStatusSequence) {
		return s, false
	}
	return orderStatusSequence[i+1], true
}

// CanReach は target が現在以降（同じを含む）かどうか。
func (s OrderStatus) CanReach(target OrderStatus) bool {
	from, to := s.Index(), target.Index()
	if from < 0 || to < 0 {
		return false
	}
	return to >= from
}

func (s OrderStatus) String() string {
	return string(s)
}

func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(v)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown order status %q", v)
	}
	return s, nil
}
