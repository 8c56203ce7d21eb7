package usecase_test

import (
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/usecase"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func statusOf(t *testing.T, f *fixture, id string) model.OrderStatus {
	t.Helper()
	o, err := f.orders.FindOrder(id)
	require.NoError(t, err)
	return o.Status
}

func TestProgression_FollowsDwellTimes(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	//CreateOrderは即時に返り、まだpending
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, f.orders.InProgress(o.ID))

	f.clock.Advance(2 * time.Second)
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, o.ID))

	f.clock.Advance(time.Second)
	assert.Equal(t, model.OrderStatusConfirmed, statusOf(t, f, o.ID))

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusPreparing, statusOf(t, f, o.ID))

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusOutForDelivery, statusOf(t, f, o.ID))

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusDelivered, statusOf(t, f, o.ID))

	assert.False(t, f.orders.InProgress(o.ID))
	assert.Equal(t, 0, f.clock.Pending())

	est, err := f.orders.EstimateTimeRemaining(o.ID, time.Hour)
	require.NoError(t, err)
	assert.True(t, est.Delivered)
	assert.Equal(t, time.Duration(0), est.Remaining)
	assert.Equal(t, "delivered", est.String())
}

func TestProgression_UpdatedAtFollowsClock(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	f.clock.Advance(5 * time.Second)
	got, err := f.orders.FindOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(3*time.Second), got.UpdatedAt)
	assert.Equal(t, epoch, got.CreatedAt)
}

func TestAdvanceStatus_StepsForwardAndStopsAtDelivered(t *testing.T) {
	f := newFixture(t, usecase.ProgressionPolicy{ConfirmDelay: time.Second, StepDelay: time.Second})
	o := f.placeOrder(t)
	assert.False(t, f.orders.InProgress(o.ID))

	want := []model.OrderStatus{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusOutForDelivery,
		model.OrderStatusDelivered,
	}
	for _, s := range want {
		got, err := f.orders.AdvanceStatus(o.ID)
		require.NoError(t, err)
		assert.Equal(t, s, got.Status)
	}

	for i := 0; i < 3; i++ {
		got, err := f.orders.AdvanceStatus(o.ID)
		assert.ErrorIs(t, err, usecase.ErrAlreadyTerminal)
		assert.Equal(t, model.OrderStatusDelivered, got.Status)
	}
	assert.Equal(t, model.OrderStatusDelivered, statusOf(t, f, o.ID))
}

func TestAdvanceStatus_RearmsPendingTimer(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	f.clock.Advance(time.Second)
	got, err := f.orders.AdvanceStatus(o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)
	assert.Equal(t, 1, f.clock.Pending())

	//元の3秒タイマーは止まっている
	f.clock.Advance(2 * time.Second)
	assert.Equal(t, model.OrderStatusConfirmed, statusOf(t, f, o.ID))

	//次の段階は手動で進めた時点から10秒
	f.clock.Advance(8 * time.Second)
	assert.Equal(t, model.OrderStatusPreparing, statusOf(t, f, o.ID))
}

func TestOrderNotFound(t *testing.T) {
	f := newFixture(t, testPolicy())

	_, err := f.orders.FindOrder("nonexistent-id")
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	_, err = f.orders.AdvanceStatus("nonexistent-id")
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	_, err = f.orders.SetStatus("nonexistent-id", model.OrderStatusDelivered)
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	_, err = f.orders.EstimateTimeRemaining("nonexistent-id", time.Hour)
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	assert.ErrorIs(t, f.orders.StartProgression("nonexistent-id"), usecase.ErrOrderNotFound)
	assert.ErrorIs(t, f.orders.CancelProgression("nonexistent-id"), usecase.ErrOrderNotFound)

	_, _, err = f.orders.Subscribe("nonexistent-id")
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)
}

func TestSetStatus_ForwardOnly(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	got, err := f.orders.SetStatus(o.ID, model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)

	//同じステータスは何もしない
	got, err = f.orders.SetStatus(o.ID, model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)

	_, err = f.orders.SetStatus(o.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)

	_, err = f.orders.SetStatus(o.ID, model.OrderStatus("cancelled"))
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)

	assert.Equal(t, model.OrderStatusPreparing, statusOf(t, f, o.ID))
}

func TestStaleTimerAfterDeliveredIsNoop(t *testing.T) {
	obs := &ObserverMock{}
	obs.On("OrderPlaced", "session-1", mock.Anything).Once()
	obs.On("StatusChanged", "session-1", mock.Anything, model.OrderStatusPending, model.OrderStatusDelivered).Once()

	f := newFixture(t, testPolicy(), obs)
	o := f.placeOrder(t)

	_, err := f.orders.SetStatus(o.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(time.Hour)
	assert.Equal(t, model.OrderStatusDelivered, statusOf(t, f, o.ID))
	obs.AssertExpectations(t)
}

func TestStartProgression_DuplicateTriggerIsNoop(t *testing.T) {
	policy := testPolicy()
	policy.AutoStart = false
	f := newFixture(t, policy)
	o := f.placeOrder(t)
	assert.Equal(t, 0, f.clock.Pending())

	require.NoError(t, f.orders.StartProgression(o.ID))
	require.NoError(t, f.orders.StartProgression(o.ID))
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(3 * time.Second)
	assert.Equal(t, model.OrderStatusConfirmed, statusOf(t, f, o.ID))

	//再マウント相当
	require.NoError(t, f.orders.StartProgression(o.ID))
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusPreparing, statusOf(t, f, o.ID))
}

func TestStartProgression_DeliveredIsNoop(t *testing.T) {
	policy := testPolicy()
	policy.AutoStart = false
	f := newFixture(t, policy)
	o := f.placeOrder(t)

	_, err := f.orders.SetStatus(o.ID, model.OrderStatusDelivered)
	require.NoError(t, err)

	require.NoError(t, f.orders.StartProgression(o.ID))
	assert.False(t, f.orders.InProgress(o.ID))
}

func TestProgression_OrdersAreIndependent(t *testing.T) {
	f := newFixture(t, testPolicy())
	first := f.placeOrder(t)

	f.clock.Advance(2 * time.Second)
	second := f.placeOrder(t)

	require.NoError(t, f.orders.CancelProgression(first.ID))

	f.clock.Advance(time.Second)
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, first.ID))
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, second.ID))

	f.clock.Advance(2 * time.Second)
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, first.ID))
	assert.Equal(t, model.OrderStatusConfirmed, statusOf(t, f, second.ID))

	//片方を手動で進めてももう片方のタイマーは変わらない
	_, err := f.orders.AdvanceStatus(first.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusConfirmed, statusOf(t, f, first.ID))
	assert.Equal(t, model.OrderStatusPreparing, statusOf(t, f, second.ID))
}

func TestClose_CancelsPendingTimers(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)
	f.placeOrder(t)
	assert.Equal(t, 2, f.clock.Pending())

	f.orders.Close()
	f.orders.Close()
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(time.Hour)
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, o.ID))

	_, err := f.orders.AdvanceStatus(o.ID)
	assert.ErrorIs(t, err, usecase.ErrTrackerClosed)
	assert.ErrorIs(t, f.orders.StartProgression(o.ID), usecase.ErrTrackerClosed)
}

func TestPlace_DuplicateID(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	err := f.orders.Place(o)
	assert.ErrorIs(t, err, usecase.ErrDuplicateOrder)
	assert.Len(t, f.orders.ListOrders(), 1)
}

func TestListOrders_NewestFirst(t *testing.T) {
	f := newFixture(t, testPolicy())
	first := f.placeOrder(t)
	second := f.placeOrder(t)

	list := f.orders.ListOrders()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestEstimateTimeRemaining(t *testing.T) {
	policy := testPolicy()
	policy.AutoStart = false
	f := newFixture(t, policy)
	o := f.placeOrder(t)

	est, err := f.orders.EstimateTimeRemaining(o.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, est.Delivered)
	assert.Equal(t, 2*time.Hour, est.Remaining)
	assert.Equal(t, "2h 00m", est.String())

	f.clock.Advance(20 * time.Minute)
	est, err = f.orders.EstimateTimeRemaining(o.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, est.Hours)
	assert.Equal(t, 40, est.Minutes)
	assert.Equal(t, "1h 40m", est.String())

	//同じ時刻なら何度呼んでも同じ
	again, err := f.orders.EstimateTimeRemaining(o.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, est, again)

	f.clock.Advance(99*time.Minute + 30*time.Second)
	est, err = f.orders.EstimateTimeRemaining(o.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "1m", est.String())

	f.clock.Advance(30 * time.Second)
	est, err = f.orders.EstimateTimeRemaining(o.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, est.Delivered)
	assert.Equal(t, time.Duration(0), est.Remaining)

	//ステータスはpendingのまま（表示用の計算だけ）
	assert.Equal(t, model.OrderStatusPending, statusOf(t, f, o.ID))
}

func TestSubscribe_ReceivesEveryTransition(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	ch, cancel, err := f.orders.Subscribe(o.ID)
	require.NoError(t, err)
	defer cancel()

	f.clock.Advance(time.Hour)

	var got []model.OrderStatus
	for ev := range ch {
		got = append(got, ev.Status)
	}
	assert.Equal(t, model.OrderStatuses(), got)
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)

	ch, cancel, err := f.orders.Subscribe(o.ID)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, model.OrderStatusPending, first.Status)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	//解除後の進行は問題なし
	f.clock.Advance(time.Hour)
	assert.Equal(t, model.OrderStatusDelivered, statusOf(t, f, o.ID))
}

func TestSubscribe_DeliveredOrderClosesImmediately(t *testing.T) {
	f := newFixture(t, testPolicy())
	o := f.placeOrder(t)
	f.clock.Advance(time.Hour)

	ch, cancel, err := f.orders.Subscribe(o.ID)
	require.NoError(t, err)
	defer cancel()

	ev, open := <-ch
	require.True(t, open)
	assert.Equal(t, model.OrderStatusDelivered, ev.Status)
	_, open = <-ch
	assert.False(t, open)
}

func TestObservers_NotifiedForPlacementAndEachStep(t *testing.T) {
	obs := &ObserverMock{}
	obs.On("OrderPlaced", "session-1", mock.Anything).Once()
	obs.On("StatusChanged", "session-1", mock.Anything, mock.Anything, mock.Anything).Times(4)

	f := newFixture(t, testPolicy(), obs)
	f.placeOrder(t)
	f.clock.Advance(time.Hour)

	obs.AssertExpectations(t)
	obs.AssertCalled(t, "StatusChanged", "session-1", mock.Anything, model.OrderStatusOutForDelivery, model.OrderStatusDelivered)
}

// gatedObserver は最初の StatusChanged で release まで止まる
type gatedObserver struct {
	mu      sync.Mutex
	seen    []string
	entered chan struct{}
	release chan struct{}
}

func newGatedObserver() *gatedObserver {
	return &gatedObserver{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedObserver) OrderPlaced(string, model.Order) {}

func (g *gatedObserver) StatusChanged(_ string, o model.Order, from model.OrderStatus) {
	g.mu.Lock()
	g.seen = append(g.seen, from.String()+"->"+o.Status.String())
	first := len(g.seen) == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
	}
}

func (g *gatedObserver) transitions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen...)
}

func TestObservers_SeeTransitionsInCommitOrder(t *testing.T) {
	obs := newGatedObserver()
	f := newFixture(t, testPolicy(), obs)
	o := f.placeOrder(t)

	//タイマー側の confirmed 通知を観測者の中で止める
	fired := make(chan struct{})
	go func() {
		f.clock.Advance(3 * time.Second)
		close(fired)
	}()
	select {
	case <-obs.entered:
	case <-time.After(2 * time.Second):
		close(obs.release)
		t.Fatal("timer did not notify observer")
	}

	//その間に手動で進めても、先に確定した confirmed より前には届かない
	got, err := f.orders.AdvanceStatus(o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)

	close(obs.release)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Advance did not return")
	}

	assert.Equal(t, []string{"pending->confirmed", "confirmed->preparing"}, obs.transitions())
}

func TestProgression_RunsOnClockworkFakeClock(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	orders := usecase.NewOrderUsecase("session-1", fc, testPolicy(), nil)
	t.Cleanup(orders.Close)

	require.NoError(t, orders.Place(model.Order{ID: "o-1", CreatedAt: epoch, UpdatedAt: epoch}))
	ch, cancel, err := orders.Subscribe("o-1")
	require.NoError(t, err)
	defer cancel()
	assert.Equal(t, model.OrderStatusPending, (<-ch).Status)

	//FakeClock の AfterFunc は別 goroutine で動くので、届くまで待つ
	next := func() model.Order {
		t.Helper()
		select {
		case o, ok := <-ch:
			require.True(t, ok)
			return o
		case <-time.After(2 * time.Second):
			t.Fatal("no status change")
			return model.Order{}
		}
	}

	fc.Advance(3 * time.Second)
	confirmed := next()
	assert.Equal(t, model.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, epoch.Add(3*time.Second), confirmed.UpdatedAt)

	fc.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusPreparing, next().Status)
	fc.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusOutForDelivery, next().Status)
	fc.Advance(10 * time.Second)
	assert.Equal(t, model.OrderStatusDelivered, next().Status)
	assert.False(t, orders.InProgress("o-1"))
}

func TestProgressionPolicy(t *testing.T) {
	p := testPolicy()

	assert.Equal(t, 3*time.Second, p.DwellFor(model.OrderStatusPending))
	assert.Equal(t, 10*time.Second, p.DwellFor(model.OrderStatusPreparing))
	assert.Equal(t, 33*time.Second, p.NominalDuration())
}

func TestProgressionPolicy_EstimateNominal(t *testing.T) {
	p := testPolicy()

	//未設定なら自動進行の合計と揃える
	assert.Equal(t, 33*time.Second, p.EstimateNominal(0))
	assert.Equal(t, 45*time.Minute, p.EstimateNominal(45*time.Minute))
}
