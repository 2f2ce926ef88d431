package app

import (
	"context"
	"fmt"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/internal/chat/repository"
	"cleaning_market_service/pkg/logger"
)

// PresenceUseCase 在線 / 輸入中 的租約式軟狀態。
// 不依賴斷線通知：網路分區下「我要離線了」本來就送不可靠，
// 停止續約自然衰減即是正確的降級。寫入失敗只記錄，
// 狀態放著過期，對呼叫端永遠不是錯誤。
type PresenceUseCase struct {
	repo repository.PresenceRepository

	onlineTTL time.Duration
	typingTTL time.Duration

	// 注入時鐘，TTL 到期在測試中可決定性驗證
	clock func() time.Time
}

// NewPresenceUseCase init presence use case。TTL 傳 0 用預設值。
func NewPresenceUseCase(repo repository.PresenceRepository, onlineTTL, typingTTL time.Duration) *PresenceUseCase {
	if onlineTTL <= 0 {
		onlineTTL = domain.DefaultOnlineTTL
	}
	if typingTTL <= 0 {
		typingTTL = domain.DefaultTypingTTL
	}
	return &PresenceUseCase{
		repo:      repo,
		onlineTTL: onlineTTL,
		typingTTL: typingTTL,
		clock:     time.Now,
	}
}

// Heartbeat 續約 lastSeenAt = now
func (uc *PresenceUseCase) Heartbeat(ctx context.Context, userID string) {
	if err := uc.repo.SaveHeartbeat(ctx, userID, uc.clock(), uc.onlineTTL); err != nil {
		logger.Log.Warn(fmt.Sprintf("heartbeat save failed for %s: %v", userID, err))
	}
}

// IsOnline true iff now − lastSeenAt < ONLINE_TTL
func (uc *PresenceUseCase) IsOnline(ctx context.Context, userID string) bool {
	lastSeen, err := uc.repo.LastSeen(ctx, userID)
	if err != nil {
		logger.Log.Warn(fmt.Sprintf("presence read failed for %s: %v", userID, err))
		return false
	}
	if lastSeen.IsZero() {
		return false
	}
	return uc.clock().Sub(lastSeen) < uc.onlineTTL
}

// SetTyping true 續約輸入租約到 now + TYPING_TTL；false 立即清除
func (uc *PresenceUseCase) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) {
	if isTyping {
		expiresAt := uc.clock().Add(uc.typingTTL)
		if err := uc.repo.SaveTyping(ctx, conversationID, userID, expiresAt, uc.typingTTL); err != nil {
			logger.Log.Warn(fmt.Sprintf("typing save failed for %s: %v", userID, err))
		}
		return
	}
	if err := uc.repo.ClearTyping(ctx, conversationID, userID); err != nil {
		logger.Log.Warn(fmt.Sprintf("typing clear failed for %s: %v", userID, err))
	}
}

// IsTyping true iff partnerID 在該對話有未過期的輸入租約
func (uc *PresenceUseCase) IsTyping(ctx context.Context, conversationID, partnerID string) bool {
	expiresAt, err := uc.repo.TypingExpiry(ctx, conversationID, partnerID)
	if err != nil {
		logger.Log.Warn(fmt.Sprintf("typing read failed for %s: %v", partnerID, err))
		return false
	}
	if expiresAt.IsZero() {
		return false
	}
	return uc.clock().Before(expiresAt)
}

// PartnerPresence 解析 viewer 的真正對話對象再查狀態。
// 不可用「任一成員在線」判定——viewer 自己在線會把對話
// 誤標成對方在線。
func (uc *PresenceUseCase) PartnerPresence(ctx context.Context, conv *domain.Conversation, viewerID string) (online, typing bool) {
	partnerID := conv.PartnerOf(viewerID)
	if partnerID == "" {
		return false, false
	}
	return uc.IsOnline(ctx, partnerID), uc.IsTyping(ctx, conv.ID, partnerID)
}
