package usecase_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/scheduler"
	"marketplace/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// 連番ID
type seqIDs struct {
	mu   sync.Mutex
	next int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%04d", g.next)
}

type feeTable map[string]decimal.Decimal

func (f feeTable) DeliveryFee(vendorID string) decimal.Decimal {
	if fee, ok := f[vendorID]; ok {
		return fee
	}
	return decimal.Zero
}

var testFees = feeTable{
	"V1": decimal.NewFromInt(150),
	"V2": decimal.NewFromInt(120),
}

func material(id, vendorID string, price int64) model.Material {
	return model.Material{
		ID:       id,
		VendorID: vendorID,
		Name:     "material " + id,
		Price:    decimal.NewFromInt(price),
		Unit:     "unit",
		InStock:  true,
	}
}

var (
	materialA = material("A", "V1", 280)
	materialB = material("B", "V1", 45)
	materialC = material("C", "V2", 850)
)

var testAddress = model.Address{Name: "Site office", Line1: "12 Harbor Rd", City: "Springfield", PostalCode: "12345"}

func testPolicy() usecase.ProgressionPolicy {
	return usecase.ProgressionPolicy{
		ConfirmDelay: 3 * time.Second,
		StepDelay:    10 * time.Second,
		AutoStart:    true,
	}
}

type fixture struct {
	clock  *scheduler.VirtualClock
	orders *usecase.OrderUsecase
	cart   *usecase.CartUsecase
}

func newFixture(t *testing.T, policy usecase.ProgressionPolicy, observers ...usecase.OrderObserver) *fixture {
	t.Helper()
	clock := scheduler.NewVirtualClock(epoch)
	ids := &seqIDs{}
	orders := usecase.NewOrderUsecase("session-1", clock, policy, nil, observers...)
	cart := usecase.NewCartUsecase(testFees, orders, ids, clock, nil)
	t.Cleanup(orders.Close)
	return &fixture{clock: clock, orders: orders, cart: cart}
}

// placeOrder はカートに1件入れてチェックアウトする
func (f *fixture) placeOrder(t *testing.T) model.Order {
	t.Helper()
	if err := f.cart.AddItem(materialA, "V1", 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	o, err := f.cart.CreateOrder(usecase.CheckoutInput{
		Address:       testAddress,
		PaymentMethod: "cash_on_delivery",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return o
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

type ObserverMock struct{ mock.Mock }

func (m *ObserverMock) OrderPlaced(sessionID string, o model.Order) {
	m.Called(sessionID, o.ID)
}

func (m *ObserverMock) StatusChanged(sessionID string, o model.Order, from model.OrderStatus) {
	m.Called(sessionID, o.ID, from, o.Status)
}
