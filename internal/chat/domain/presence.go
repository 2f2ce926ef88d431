package domain

import "time"

const (
	// DefaultOnlineTTL heartbeat 未續約超過此時長即視為離線
	DefaultOnlineTTL = 15 * time.Second
	// DefaultTypingTTL typing 未續約超過此時長即視為停止輸入
	DefaultTypingTTL = 3 * time.Second
)

// PresenceEntry 非持久的軟狀態。online / typing 是讀取時
// 對 TTL 視窗推導出的布林值，不是存起來的旗標；
// 不續約本身就是衰減訊號，無需斷線通知協議。
type PresenceEntry struct {
	UserID     string    `json:"user_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// TypingEntry 某用戶在某對話中的輸入租約
type TypingEntry struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}
