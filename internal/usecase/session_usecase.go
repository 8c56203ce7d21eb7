package usecase

import (
	"fmt"
	"sync"
	"time"

	"marketplace/internal/scheduler"

	"go.uber.org/zap"
)

// 1セッション = カート1つ + 注文トラッカー1つ
type Session struct {
	ID        string
	Cart      *CartUsecase
	Orders    *OrderUsecase
	CreatedAt time.Time
}

type SessionDeps struct {
	Clock     scheduler.Scheduler
	Policy    ProgressionPolicy
	Fees      FeeSchedule
	IDs       IDGenerator
	Logger    *zap.Logger
	Observers []OrderObserver
}

// SessionManager はセッションIDごとにカートと注文を分離して持つ。
// ロックはmapだけを守り、セッション同士は互いをブロックしない。
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     SessionDeps
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Open は新しいセッションを作る
func (m *SessionManager) Open() *Session {
	id := m.deps.IDs.NewID()
	logger := m.deps.Logger.With(zap.String("session_id", id))

	orders := NewOrderUsecase(id, m.deps.Clock, m.deps.Policy, m.deps.Logger, m.deps.Observers...)
	s := &Session{
		ID:        id,
		Cart:      NewCartUsecase(m.deps.Fees, orders, m.deps.IDs, m.deps.Clock, logger),
		Orders:    orders,
		CreatedAt: m.deps.Clock.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info("session opened")
	return s
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Close はセッションを破棄し、予約中のステータス進行を止める。
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	s.Orders.Close()
	s.Cart.Clear()
	m.deps.Logger.Info("session closed", zap.String("session_id", id))
	return nil
}

// CloseAll はシャットダウン用
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Orders.Close()
		s.Cart.Clear()
	}
	m.deps.Logger.Info("all sessions closed", zap.Int("count", len(sessions)))
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
