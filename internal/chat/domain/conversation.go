package domain

import "time"

// Conversation 一對 (顧客, 清潔人員) 僅一筆，以 pair_key 唯一索引保證。
// 首次發訊時建立，永不刪除。
type Conversation struct {
	ID                 string    `bson:"_id" json:"id"`
	CustomerID         string    `bson:"customer_id" json:"customer_id"`
	ProviderID         string    `bson:"provider_id" json:"provider_id"`
	PairKey            string    `bson:"pair_key" json:"-"`
	LastMessageAt      time.Time `bson:"last_message_at" json:"last_message_at"`
	LastMessagePreview string    `bson:"last_message_preview,omitempty" json:"last_message_preview,omitempty"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}

// PairKey 無序 (customer, provider) 的正規化 key
func PairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// HasParticipant check user is a participant
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.CustomerID || userID == c.ProviderID
}

// PartnerOf 解析相對於 viewer 的另一方。
// viewer 不是成員時回傳空字串。
func (c *Conversation) PartnerOf(viewerID string) string {
	switch viewerID {
	case c.CustomerID:
		return c.ProviderID
	case c.ProviderID:
		return c.CustomerID
	}
	return ""
}

// Profile 會員目錄解析出的顯示資料
type Profile struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ConversationSummary 對話列表一列：對話本體 + 對方顯示資料 + 未讀數
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	PartnerID    string       `json:"partner_id"`
	Partner      Profile      `json:"partner"`
	UnreadCount  int64        `json:"unread_count"`
}
