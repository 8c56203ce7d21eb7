package usecase

import (
	"fmt"
	"sync"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/scheduler"

	"go.uber.org/zap"
)

// 自動進行の待ち時間。pending→confirmed だけ短く、以降は同じ間隔。
type ProgressionPolicy struct {
	ConfirmDelay time.Duration
	StepDelay    time.Duration
	AutoStart    bool
}

func DefaultProgressionPolicy() ProgressionPolicy {
	return ProgressionPolicy{
		ConfirmDelay: 3 * time.Second,
		StepDelay:    10 * time.Second,
		AutoStart:    true,
	}
}

// DwellFor は status を抜けるまでの待ち時間
func (p ProgressionPolicy) DwellFor(status model.OrderStatus) time.Duration {
	if status == model.OrderStatusPending {
		return p.ConfirmDelay
	}
	return p.StepDelay
}

// NominalDuration は pending から delivered までの合計
func (p ProgressionPolicy) NominalDuration() time.Duration {
	steps := len(model.OrderStatuses()) - 1
	if steps <= 0 {
		return 0
	}
	return p.ConfirmDelay + time.Duration(steps-1)*p.StepDelay
}

// EstimateNominal は残り時間表示の基準。override が0以下なら自動進行の合計を使う。
func (p ProgressionPolicy) EstimateNominal(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return p.NominalDuration()
}

// 残り時間の表示用
type Estimate struct {
	Remaining time.Duration `json:"remaining"`
	Hours     int           `json:"hours"`
	Minutes   int           `json:"minutes"`
	Delivered bool          `json:"delivered"`
}

func (e Estimate) String() string {
	if e.Delivered {
		return "delivered"
	}
	if e.Hours > 0 {
		return fmt.Sprintf("%dh %02dm", e.Hours, e.Minutes)
	}
	return fmt.Sprintf("%dm", e.Minutes)
}

type progression struct {
	timer scheduler.Timer
	gen   uint64
}

// 観測者への通知1件。placed なら OrderPlaced、それ以外は StatusChanged。
type notification struct {
	placed bool
	order  model.Order
	from   model.OrderStatus
}

type subscription struct {
	ch     chan model.Order
	closed bool
}

func (s *subscription) send(o model.Order) {
	if s.closed {
		return
	}
	select {
	case s.ch <- o:
	default:
	}
}

func (s *subscription) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// OrderUsecase はセッション内の注文とその配送ステータスを管理する。
// ステータスの自動進行は注文ごとに1つのタイマーで行う。
// 観測者への通知はロック内で積んだ順に、一度に1つの goroutine だけが配る。
type OrderUsecase struct {
	mu        sync.Mutex
	sessionID string
	orders    map[string]*model.Order
	ids       []string
	timers    map[string]*progression
	subs      map[string][]*subscription
	gen       uint64
	closed    bool

	outbox      []notification
	dispatching bool

	clock     scheduler.Scheduler
	policy    ProgressionPolicy
	observers []OrderObserver
	logger    *zap.Logger
}

func NewOrderUsecase(
	sessionID string,
	clock scheduler.Scheduler,
	policy ProgressionPolicy,
	logger *zap.Logger,
	observers ...OrderObserver,
) *OrderUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderUsecase{
		sessionID: sessionID,
		orders:    make(map[string]*model.Order),
		timers:    make(map[string]*progression),
		subs:      make(map[string][]*subscription),
		clock:     clock,
		policy:    policy,
		observers: observers,
		logger:    logger.With(zap.String("session_id", sessionID)),
	}
}

// Place は注文を登録し、AutoStart なら自動進行を始める。観測者への通知まで行う。
func (u *OrderUsecase) Place(order model.Order) error {
	if err := u.Accept(order); err != nil {
		return err
	}
	u.Dispatch()
	return nil
}

// Accept は注文を登録して OrderPlaced を積むだけ。通知は Dispatch で配る。
func (u *OrderUsecase) Accept(order model.Order) error {
	if order.ID == "" {
		return fmt.Errorf("place order: %w", ErrInvalidCheckout)
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	if !order.Status.IsValid() {
		return fmt.Errorf("place order %s: %w", order.ID, ErrInvalidTransition)
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrTrackerClosed
	}
	if _, ok := u.orders[order.ID]; ok {
		u.mu.Unlock()
		return fmt.Errorf("place order %s: %w", order.ID, ErrDuplicateOrder)
	}

	stored := order.Clone()
	u.orders[stored.ID] = &stored
	u.ids = append(u.ids, stored.ID)
	if u.policy.AutoStart && !stored.Status.IsTerminal() {
		u.scheduleLocked(stored.ID, stored.Status)
	}
	snapshot := stored.Clone()
	u.outbox = append(u.outbox, notification{placed: true, order: snapshot})
	u.mu.Unlock()

	u.logger.Info("order placed",
		zap.String("order_id", snapshot.ID),
		zap.Int("lines", len(snapshot.Lines)),
		zap.String("total", snapshot.Total().StringFixed(2)),
	)
	return nil
}

// Dispatch は積まれた通知を順番に配る。別の goroutine が配っている最中なら任せて戻る。
func (u *OrderUsecase) Dispatch() {
	u.mu.Lock()
	if u.dispatching {
		u.mu.Unlock()
		return
	}
	u.dispatching = true
	for len(u.outbox) > 0 {
		n := u.outbox[0]
		u.outbox = u.outbox[1:]
		u.mu.Unlock()

		u.deliver(n)

		u.mu.Lock()
	}
	u.outbox = nil
	u.dispatching = false
	u.mu.Unlock()
}

// FindOrder は注文のコピーを返す。無ければ ErrOrderNotFound。
func (u *OrderUsecase) FindOrder(orderID string) (model.Order, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	o, ok := u.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("find order %s: %w", orderID, ErrOrderNotFound)
	}
	return o.Clone(), nil
}

// ListOrders は新しい順
func (u *OrderUsecase) ListOrders() []model.Order {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]model.Order, 0, len(u.ids))
	for i := len(u.ids) - 1; i >= 0; i-- {
		out = append(out, u.orders[u.ids[i]].Clone())
	}
	return out
}

// AdvanceStatus は1段階進める。delivered なら変更せず ErrAlreadyTerminal。
func (u *OrderUsecase) AdvanceStatus(orderID string) (model.Order, error) {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return model.Order{}, ErrTrackerClosed
	}
	o, ok := u.orders[orderID]
	if !ok {
		u.mu.Unlock()
		return model.Order{}, fmt.Errorf("advance order %s: %w", orderID, ErrOrderNotFound)
	}
	next, ok := o.Status.Next()
	if !ok {
		current := o.Clone()
		u.mu.Unlock()
		return current, ErrAlreadyTerminal
	}

	_, active := u.timers[orderID]
	snapshot := u.transitionLocked(o, next, active)
	u.mu.Unlock()

	u.Dispatch()
	return snapshot, nil
}

// SetStatus は前方向のみ指定ステータスへ飛ばす。同じなら何もしない。
func (u *OrderUsecase) SetStatus(orderID string, status model.OrderStatus) (model.Order, error) {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return model.Order{}, ErrTrackerClosed
	}
	o, ok := u.orders[orderID]
	if !ok {
		u.mu.Unlock()
		return model.Order{}, fmt.Errorf("set status %s: %w", orderID, ErrOrderNotFound)
	}
	if !o.Status.CanReach(status) {
		current := o.Clone()
		u.mu.Unlock()
		return current, fmt.Errorf("set status %s %s->%s: %w", orderID, current.Status, status, ErrInvalidTransition)
	}
	if o.Status == status {
		current := o.Clone()
		u.mu.Unlock()
		return current, nil
	}

	_, active := u.timers[orderID]
	snapshot := u.transitionLocked(o, status, active)
	u.mu.Unlock()

	u.Dispatch()
	return snapshot, nil
}

// StartProgression は自動進行を始める。すでにタイマーがあれば何もしない。
func (u *OrderUsecase) StartProgression(orderID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrTrackerClosed
	}
	o, ok := u.orders[orderID]
	if !ok {
		return fmt.Errorf("start progression %s: %w", orderID, ErrOrderNotFound)
	}
	if o.Status.IsTerminal() {
		return nil
	}
	u.scheduleLocked(orderID, o.Status)
	return nil
}

// CancelProgression は予約中の自動進行を止める。ステータスはそのまま。
func (u *OrderUsecase) CancelProgression(orderID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.orders[orderID]; !ok {
		return fmt.Errorf("cancel progression %s: %w", orderID, ErrOrderNotFound)
	}
	u.stopLocked(orderID)
	return nil
}

// InProgress は自動進行のタイマーが予約済みかどうか
func (u *OrderUsecase) InProgress(orderID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.timers[orderID]
	return ok
}

// EstimateTimeRemaining は max(0, nominal - 経過時間)。副作用なし。
func (u *OrderUsecase) EstimateTimeRemaining(orderID string, nominal time.Duration) (Estimate, error) {
	o, err := u.FindOrder(orderID)
	if err != nil {
		return Estimate{}, err
	}
	if o.Status.IsTerminal() {
		return Estimate{Delivered: true}, nil
	}

	elapsed := u.clock.Now().Sub(o.CreatedAt)
	remaining := nominal - elapsed
	if remaining <= 0 {
		return Estimate{Delivered: true}, nil
	}

	//分は切り上げ（0mと表示しない）
	totalMinutes := int((remaining + time.Minute - 1) / time.Minute)
	return Estimate{
		Remaining: remaining,
		Hours:     totalMinutes / 60,
		Minutes:   totalMinutes % 60,
	}, nil
}

// Subscribe は現在の注文を1件送ったあと、ステータスが変わるたびに送る。
// delivered・解除・Close でチャネルは閉じる。
func (u *OrderUsecase) Subscribe(orderID string) (<-chan model.Order, func(), error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, nil, ErrTrackerClosed
	}
	o, ok := u.orders[orderID]
	if !ok {
		return nil, nil, fmt.Errorf("subscribe %s: %w", orderID, ErrOrderNotFound)
	}

	sub := &subscription{ch: make(chan model.Order, len(model.OrderStatuses()))}
	sub.send(o.Clone())
	if o.Status.IsTerminal() {
		sub.close()
		return sub.ch, func() {}, nil
	}
	u.subs[orderID] = append(u.subs[orderID], sub)

	cancel := func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		subs := u.subs[orderID]
		for i, s := range subs {
			if s == sub {
				u.subs[orderID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(u.subs[orderID]) == 0 {
			delete(u.subs, orderID)
		}
		sub.close()
	}
	return sub.ch, cancel, nil
}

// Close は予約中のタイマーをすべて止める。以降の発火は無視される。
func (u *OrderUsecase) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return
	}
	u.closed = true
	for id := range u.timers {
		u.stopLocked(id)
	}
	for id, subs := range u.subs {
		for _, s := range subs {
			s.close()
		}
		delete(u.subs, id)
	}
	u.logger.Debug("order tracker closed", zap.Int("orders", len(u.orders)))
}

func (u *OrderUsecase) scheduleLocked(orderID string, status model.OrderStatus) {
	if _, ok := u.timers[orderID]; ok {
		return
	}
	u.gen++
	gen := u.gen
	t := u.clock.AfterFunc(u.policy.DwellFor(status), func() {
		u.fire(orderID, gen)
	})
	u.timers[orderID] = &progression{timer: t, gen: gen}
}

func (u *OrderUsecase) stopLocked(orderID string) {
	p, ok := u.timers[orderID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(u.timers, orderID)
}

// fire はタイマーからの1段階進行。古い世代・終端・Close後は何もしない。
func (u *OrderUsecase) fire(orderID string, gen uint64) {
	u.mu.Lock()
	p, ok := u.timers[orderID]
	if u.closed || !ok || p.gen != gen {
		u.mu.Unlock()
		return
	}
	delete(u.timers, orderID)

	o, ok := u.orders[orderID]
	if !ok {
		u.mu.Unlock()
		return
	}
	next, ok := o.Status.Next()
	if !ok {
		u.mu.Unlock()
		return
	}

	u.transitionLocked(o, next, true)
	u.mu.Unlock()

	u.Dispatch()
}

// transitionLocked はステータスを書き換え、rearm ならタイマーを次の段階で張り直す。
// StatusChanged の通知もここで積む。
func (u *OrderUsecase) transitionLocked(o *model.Order, to model.OrderStatus, rearm bool) model.Order {
	u.stopLocked(o.ID)

	from := o.Status
	o.Status = to
	o.UpdatedAt = u.clock.Now()

	if rearm && !to.IsTerminal() && !u.closed {
		u.scheduleLocked(o.ID, to)
	}

	snapshot := o.Clone()
	u.outbox = append(u.outbox, notification{order: snapshot, from: from})
	for _, s := range u.subs[o.ID] {
		s.send(snapshot)
	}
	if to.IsTerminal() {
		for _, s := range u.subs[o.ID] {
			s.close()
		}
		delete(u.subs, o.ID)
	}
	return snapshot
}

func (u *OrderUsecase) deliver(n notification) {
	if n.placed {
		for _, ob := range u.observers {
			ob.OrderPlaced(u.sessionID, n.order)
		}
		return
	}

	u.logger.Info("order status changed",
		zap.String("order_id", n.order.ID),
		zap.String("from", n.from.String()),
		zap.String("to", n.order.Status.String()),
	)
	for _, ob := range u.observers {
		ob.StatusChanged(u.sessionID, n.order, n.from)
	}
}
