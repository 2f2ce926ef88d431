package domain

import (
	"time"

	"cleaning_market_service/pkg"
)

const (
	// MaxMessageRunes 單則訊息文字上限 (rune 數)
	MaxMessageRunes = 2000
	// PreviewRunes 對話列表預覽文字上限
	PreviewRunes = 80
)

// Message 一則聊天訊息。除 read_at 的單向轉移外不可變。
// 排序不變量：同一對話內以 (created_at, _id) 升冪全序，
// created_at 由 server 在寫入時指定，非 client 發送時間。
type Message struct {
	ID             string         `bson:"_id" json:"id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	SenderID       string         `bson:"sender_id" json:"sender_id"`
	Text           string         `bson:"text,omitempty" json:"text,omitempty"`
	Attachment     *AttachmentRef `bson:"attachment,omitempty" json:"attachment,omitempty"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	ReadAt         *time.Time     `bson:"read_at,omitempty" json:"read_at,omitempty"`
}

// IsRead read_at 已設定 (終態，不可逆)
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// Preview 取對話列表用的預覽文字。
// 結構化預約卡只顯示標題行；附件訊息無文字時給固定占位。
func (m *Message) Preview() string {
	if m.Text == "" && m.Attachment != nil {
		return "📎 attachment"
	}
	if IsBookingCard(m.Text) {
		return BookingCardSentinel
	}
	return pkg.TruncateRunes(m.Text, PreviewRunes)
}

// MessageCursor fetch 續傳位置 (最後一筆已見訊息的 created_at + id)。
// 以 (created_at, id) 嚴格大於續讀，重連補拉不重覆、不跳漏。
type MessageCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}
