package usecase_test

import (
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/scheduler"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(clock scheduler.Scheduler) *usecase.SessionManager {
	return usecase.NewSessionManager(usecase.SessionDeps{
		Clock:  clock,
		Policy: testPolicy(),
		Fees:   testFees,
		IDs:    &seqIDs{},
	})
}

func TestSessionManager_IsolatesSessions(t *testing.T) {
	clock := scheduler.NewVirtualClock(epoch)
	m := newSessionManager(clock)
	defer m.CloseAll()

	a := m.Open()
	b := m.Open()
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	require.NoError(t, a.Cart.AddItem(materialA, "V1", 2))
	assert.Equal(t, 2, a.Cart.ItemCount())
	assert.Equal(t, 0, b.Cart.ItemCount())

	o, err := a.Cart.CreateOrder(usecase.CheckoutInput{Address: testAddress, PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = b.Orders.FindOrder(o.ID)
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, epoch, got.CreatedAt)
}

func TestSessionManager_GetUnknown(t *testing.T) {
	m := newSessionManager(scheduler.NewVirtualClock(epoch))

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
	assert.ErrorIs(t, m.Close("missing"), usecase.ErrSessionNotFound)
}

func TestSessionManager_CloseCancelsProgression(t *testing.T) {
	clock := scheduler.NewVirtualClock(epoch)
	m := newSessionManager(clock)

	s := m.Open()
	require.NoError(t, s.Cart.AddItem(materialC, "V2", 1))
	o, err := s.Cart.CreateOrder(usecase.CheckoutInput{Address: testAddress, PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, 1, clock.Pending())

	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, 0, clock.Pending())
	assert.Equal(t, 0, m.Len())

	clock.Advance(time.Hour)
	got, err := s.Orders.FindOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
}

func TestSessionManager_CloseAll(t *testing.T) {
	clock := scheduler.NewVirtualClock(epoch)
	m := newSessionManager(clock)

	for i := 0; i < 3; i++ {
		s := m.Open()
		require.NoError(t, s.Cart.AddItem(materialA, "V1", 1))
		_, err := s.Cart.CreateOrder(usecase.CheckoutInput{Address: testAddress, PaymentMethod: "card"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, clock.Pending())

	m.CloseAll()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, clock.Pending())
}

func TestSessionManager_ConcurrentSessions(t *testing.T) {
	m := newSessionManager(scheduler.NewVirtualClock(epoch))
	defer m.CloseAll()

	var wg sync.WaitGroup
	sessions := make([]*usecase.Session, 20)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := m.Open()
			for j := 0; j < 50; j++ {
				_ = s.Cart.AddItem(materialB, "V1", 1)
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, m.Len())
	for _, s := range sessions {
		assert.Equal(t, 50, s.Cart.ItemCount())
		assert.Len(t, s.Cart.Lines(), 1)
	}
}
