package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPresenceUseCase_Online(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	// **情境 1: 心跳後 TTL 內在線，過期自然離線**
	t.Run("心跳後在線，停止續約後衰減為離線", func(t *testing.T) {
		repo := new(MockPresenceRepository)
		now := base

		uc := NewPresenceUseCase(repo, 0, 0)
		uc.clock = func() time.Time { return now }

		repo.On("SaveHeartbeat", ctx, "cust-1", base, domain.DefaultOnlineTTL).Return(nil).Once()
		uc.Heartbeat(ctx, "cust-1")

		repo.On("LastSeen", ctx, "cust-1").Return(base, nil)

		// 10 秒後仍在 15 秒視窗內
		now = base.Add(10 * time.Second)
		assert.True(t, uc.IsOnline(ctx, "cust-1"))

		// 20 秒後沒有新心跳，視窗過期
		now = base.Add(20 * time.Second)
		assert.False(t, uc.IsOnline(ctx, "cust-1"))
		repo.AssertExpectations(t)
	})

	// **情境 2: 視窗邊界恰好 TTL 即離線**
	t.Run("恰好 TTL 整點視為離線", func(t *testing.T) {
		repo := new(MockPresenceRepository)
		now := base.Add(domain.DefaultOnlineTTL)

		uc := NewPresenceUseCase(repo, 0, 0)
		uc.clock = func() time.Time { return now }

		repo.On("LastSeen", ctx, "cust-1").Return(base, nil).Once()
		assert.False(t, uc.IsOnline(ctx, "cust-1"))
	})

	// **情境 3: 從未送過心跳**
	t.Run("無心跳紀錄即離線", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		repo.On("LastSeen", ctx, "ghost").Return(time.Time{}, nil).Once()

		assert.False(t, uc.IsOnline(ctx, "ghost"))
	})

	// **情境 4: 寫入失敗只記錄，不外漏**
	t.Run("心跳寫入失敗不報錯", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		repo.On("SaveHeartbeat", ctx, "cust-1", mock.Anything, mock.Anything).
			Return(errors.New("redis down")).Once()

		// 回傳值是 void，這裡驗證的是不 panic
		uc.Heartbeat(ctx, "cust-1")
		repo.AssertExpectations(t)
	})

	// **情境 5: 讀取失敗視為離線**
	t.Run("讀取失敗視為離線", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		repo.On("LastSeen", ctx, "cust-1").Return(time.Time{}, errors.New("redis down")).Once()

		assert.False(t, uc.IsOnline(ctx, "cust-1"))
	})
}

func TestPresenceUseCase_Typing(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	// **情境 1: 輸入租約 3 秒內有效，之後自然衰減**
	t.Run("輸入租約過期自然衰減", func(t *testing.T) {
		repo := new(MockPresenceRepository)
		now := base

		uc := NewPresenceUseCase(repo, 0, 0)
		uc.clock = func() time.Time { return now }

		expiresAt := base.Add(domain.DefaultTypingTTL)
		repo.On("SaveTyping", ctx, "conv-1", "cust-1", expiresAt, domain.DefaultTypingTTL).Return(nil).Once()
		uc.SetTyping(ctx, "conv-1", "cust-1", true)

		repo.On("TypingExpiry", ctx, "conv-1", "cust-1").Return(expiresAt, nil)

		now = base.Add(2 * time.Second)
		assert.True(t, uc.IsTyping(ctx, "conv-1", "cust-1"))

		// 恰好到期即不再顯示輸入中
		now = expiresAt
		assert.False(t, uc.IsTyping(ctx, "conv-1", "cust-1"))
		repo.AssertExpectations(t)
	})

	// **情境 2: 明確停止輸入立即清除**
	t.Run("停止輸入立即清除租約", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		repo.On("ClearTyping", ctx, "conv-1", "cust-1").Return(nil).Once()

		uc.SetTyping(ctx, "conv-1", "cust-1", false)
		repo.AssertExpectations(t)
	})

	// **情境 3: 無租約**
	t.Run("無租約即非輸入中", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		repo.On("TypingExpiry", ctx, "conv-1", "prov-1").Return(time.Time{}, nil).Once()

		assert.False(t, uc.IsTyping(ctx, "conv-1", "prov-1"))
	})
}

func TestPresenceUseCase_PartnerPresence(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	conv := testConversation()

	// **情境 1: 查的是對方，不是 viewer 自己**
	t.Run("viewer 在線不影響對方狀態", func(t *testing.T) {
		repo := new(MockPresenceRepository)
		now := base

		uc := NewPresenceUseCase(repo, 0, 0)
		uc.clock = func() time.Time { return now }

		// 只有 provider 的狀態被查，customer 自己的心跳無關
		repo.On("LastSeen", ctx, "prov-1").Return(base.Add(-30*time.Second), nil).Once()
		repo.On("TypingExpiry", ctx, "conv-1", "prov-1").Return(time.Time{}, nil).Once()

		online, typing := uc.PartnerPresence(ctx, conv, "cust-1")

		assert.False(t, online)
		assert.False(t, typing)
		repo.AssertNotCalled(t, "LastSeen", ctx, "cust-1")
	})

	// **情境 2: 對方在線且輸入中**
	t.Run("對方在線且輸入中", func(t *testing.T) {
		repo := new(MockPresenceRepository)
		now := base

		uc := NewPresenceUseCase(repo, 0, 0)
		uc.clock = func() time.Time { return now }

		repo.On("LastSeen", ctx, "cust-1").Return(base.Add(-5*time.Second), nil).Once()
		repo.On("TypingExpiry", ctx, "conv-1", "cust-1").Return(base.Add(2*time.Second), nil).Once()

		online, typing := uc.PartnerPresence(ctx, conv, "prov-1")

		assert.True(t, online)
		assert.True(t, typing)
	})

	// **情境 3: viewer 不是成員**
	t.Run("外人查不到任何狀態", func(t *testing.T) {
		repo := new(MockPresenceRepository)

		uc := NewPresenceUseCase(repo, 0, 0)
		online, typing := uc.PartnerPresence(ctx, conv, "stranger")

		assert.False(t, online)
		assert.False(t, typing)
		repo.AssertNotCalled(t, "LastSeen", mock.Anything, mock.Anything)
	})
}
