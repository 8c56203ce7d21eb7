package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ベンダーごとの固定配送料
type FeeSchedule interface {
	DeliveryFee(vendorID string) decimal.Decimal
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// チェックアウトした注文の受け渡し先（OrderUsecase）。
// Accept はカートのロック中に呼ぶ。通知は Dispatch でロックの外から配る。
type OrderBook interface {
	Accept(order model.Order) error
	Dispatch()
	FindOrder(orderID string) (model.Order, error)
}

type CheckoutInput struct {
	Address       model.Address
	PaymentMethod string
	//未指定ならカートの明細から配送料表で計算する
	DeliveryFee decimal.NullDecimal
	//二重送信防止（空なら使わない）
	IdempotencyKey string
}

// カート画面・バッジ用の集計
type CartSummary struct {
	Lines       []model.CartLine    `json:"lines"`
	Groups      []model.VendorGroup `json:"groups"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	DeliveryFee decimal.Decimal     `json:"delivery_fee"`
	Total       decimal.Decimal     `json:"total"`
	ItemCount   int                 `json:"item_count"`
}

// CartUsecase はセッションに1つだけのカート。
// 明細は (資材ID, ベンダーID) で一意、数量は常に1以上。
type CartUsecase struct {
	mu    sync.Mutex
	lines []model.CartLine
	//idempotency key -> order id
	checkouts map[string]string

	fees   FeeSchedule
	orders OrderBook
	ids    IDGenerator
	clock  Clock
	logger *zap.Logger
}

func NewCartUsecase(fees FeeSchedule, orders OrderBook, ids IDGenerator, clock Clock, logger *zap.Logger) *CartUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartUsecase{
		checkouts: make(map[string]string),
		fees:      fees,
		orders:    orders,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

// AddItem はカートに追加（同じ資材・ベンダーなら数量加算）。
func (u *CartUsecase) AddItem(m model.Material, vendorID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("add %s: %w", m.ID, ErrInvalidQuantity)
	}
	if !m.Valid() || vendorID == "" {
		return fmt.Errorf("add %s: %w", m.ID, ErrInvalidMaterial)
	}
	if !m.InStock {
		return fmt.Errorf("add %s: %w", m.ID, ErrMaterialUnavailable)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if i := u.indexLocked(m.ID, vendorID); i >= 0 {
		u.lines[i].Quantity += quantity
		return nil
	}
	u.lines = append(u.lines, model.CartLine{
		Material: m,
		VendorID: vendorID,
		Quantity: quantity,
	})
	return nil
}

// UpdateQuantity は数量を上書き。0以下なら削除、明細が無ければ何もしない。
func (u *CartUsecase) UpdateQuantity(materialID, vendorID string, quantity int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	i := u.indexLocked(materialID, vendorID)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		u.removeAtLocked(i)
		return
	}
	u.lines[i].Quantity = quantity
}

// RemoveItem は明細削除（無ければ何もしない）
func (u *CartUsecase) RemoveItem(materialID, vendorID string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if i := u.indexLocked(materialID, vendorID); i >= 0 {
		u.removeAtLocked(i)
	}
}

func (u *CartUsecase) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lines = nil
}

// Lines は明細のコピー
func (u *CartUsecase) Lines() []model.CartLine {
	u.mu.Lock()
	defer u.mu.Unlock()
	return model.CopyLines(u.lines)
}

func (u *CartUsecase) Subtotal() decimal.Decimal {
	u.mu.Lock()
	defer u.mu.Unlock()
	return model.SumLines(u.lines)
}

// TotalDeliveryFee は登場するベンダーごとに配送料を1回ずつ足す。
func (u *CartUsecase) TotalDeliveryFee() decimal.Decimal {
	u.mu.Lock()
	defer u.mu.Unlock()
	return sumDeliveryFees(u.groupLocked())
}

// ItemCount は数量の合計（明細数ではない）
func (u *CartUsecase) ItemCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := 0
	for _, l := range u.lines {
		n += l.Quantity
	}
	return n
}

// VendorGroups はベンダー単位の集計。毎回明細から作り直す。
func (u *CartUsecase) VendorGroups() []model.VendorGroup {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.groupLocked()
}

func (u *CartUsecase) Summary() CartSummary {
	u.mu.Lock()
	defer u.mu.Unlock()

	groups := u.groupLocked()
	subtotal := model.SumLines(u.lines)
	fee := sumDeliveryFees(groups)
	count := 0
	for _, l := range u.lines {
		count += l.Quantity
	}

	return CartSummary{
		Lines:       model.CopyLines(u.lines),
		Groups:      groups,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
		ItemCount:   count,
	}
}

// CreateOrder は明細をコピーして注文を作り、OrderBookに渡してからカートを空にする。
// 空のカートは ErrEmptyCart。配送料は明細と同じロックの中で確定する。
func (u *CartUsecase) CreateOrder(in CheckoutInput) (model.Order, error) {
	order, placed, err := u.checkout(in)
	if err != nil {
		return model.Order{}, err
	}
	//観測者（アーカイブ等）はカートのロックを外してから呼ぶ
	if placed {
		u.orders.Dispatch()
	}
	return order, nil
}

func (u *CartUsecase) checkout(in CheckoutInput) (model.Order, bool, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	paymentMethod := strings.TrimSpace(in.PaymentMethod)

	u.mu.Lock()
	defer u.mu.Unlock()

	//同じキーなら同じ結果
	if key != "" {
		if orderID, ok := u.checkouts[key]; ok {
			existing, err := u.orders.FindOrder(orderID)
			if err == nil {
				return existing, false, nil
			}
			if !errors.Is(err, ErrOrderNotFound) {
				return model.Order{}, false, err
			}
			delete(u.checkouts, key)
		}
	}

	if len(u.lines) == 0 {
		return model.Order{}, false, ErrEmptyCart
	}
	if in.Address.IsZero() {
		return model.Order{}, false, fmt.Errorf("address required: %w", ErrInvalidCheckout)
	}
	if paymentMethod == "" {
		return model.Order{}, false, fmt.Errorf("payment method required: %w", ErrInvalidCheckout)
	}

	fee := sumDeliveryFees(u.groupLocked())
	if in.DeliveryFee.Valid {
		fee = in.DeliveryFee.Decimal
	}
	if fee.IsNegative() {
		return model.Order{}, false, fmt.Errorf("negative delivery fee: %w", ErrInvalidCheckout)
	}

	now := u.clock.Now()
	order := model.Order{
		ID:            u.ids.NewID(),
		Lines:         model.CopyLines(u.lines),
		Subtotal:      model.SumLines(u.lines),
		DeliveryFee:   fee,
		Address:       in.Address,
		PaymentMethod: paymentMethod,
		Status:        model.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := u.orders.Accept(order); err != nil {
		return model.Order{}, false, fmt.Errorf("checkout: %w", err)
	}

	//注文が通ったらカートを空にする
	u.lines = nil
	if key != "" {
		u.checkouts[key] = order.ID
	}

	u.logger.Debug("cart checked out",
		zap.String("order_id", order.ID),
		zap.Int("items", order.ItemCount()),
		zap.String("delivery_fee", fee.StringFixed(2)),
	)
	return order.Clone(), true, nil
}

func (u *CartUsecase) indexLocked(materialID, vendorID string) int {
	for i, l := range u.lines {
		if l.Matches(materialID, vendorID) {
			return i
		}
	}
	return -1
}

func (u *CartUsecase) removeAtLocked(i int) {
	u.lines = append(u.lines[:i], u.lines[i+1:]...)
}

// groupLocked はベンダーIDで並べたグループを返す。グループ内は追加順。
func (u *CartUsecase) groupLocked() []model.VendorGroup {
	index := make(map[string]int)
	groups := make([]model.VendorGroup, 0)

	for _, l := range u.lines {
		i, ok := index[l.VendorID]
		if !ok {
			i = len(groups)
			index[l.VendorID] = i
			groups = append(groups, model.VendorGroup{
				VendorID:    l.VendorID,
				DeliveryFee: u.fees.DeliveryFee(l.VendorID),
				Subtotal:    decimal.Zero,
			})
		}
		groups[i].Lines = append(groups[i].Lines, l)
		groups[i].Subtotal = groups[i].Subtotal.Add(l.LineTotal())
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].VendorID < groups[b].VendorID
	})
	return groups
}

func sumDeliveryFees(groups []model.VendorGroup) decimal.Decimal {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.DeliveryFee)
	}
	return total
}
