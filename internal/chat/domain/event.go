package domain

import "time"

// Action websocket request action
type Action string

const (
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// FetchMessages websocket action fetch_messages
	FetchMessages Action = "fetch_messages"
	// ReadMessages websocket action mark_read
	ReadMessages Action = "mark_read"

	// GetConversations websocket action get_conversations
	GetConversations Action = "get_conversations"
	// SearchConversations websocket action search_conversations
	SearchConversations Action = "search_conversations"
	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"

	// Heartbeat websocket action heartbeat
	Heartbeat Action = "heartbeat"
	// SetTyping websocket action set_typing
	SetTyping Action = "set_typing"
	// GetPresence websocket action get_presence
	GetPresence Action = "get_presence"

	// NotifyMessage websocket push action notify_message
	NotifyMessage Action = "notify_message"
	// NotifyTyping websocket push action notify_typing
	NotifyTyping Action = "notify_typing"
)

// EventType pub/sub 事件類別
type EventType string

const (
	// EventMessageSent 新訊息已落地
	EventMessageSent EventType = "message.sent"
	// EventTyping 對方輸入中狀態變化
	EventTyping EventType = "typing"
)

// ChatEvent 發布到 redis channel / kafka topic 的事件。
// RecipientID 是應被提醒的另一方；離線提醒由表現層自行消費，
// 送達與否不在此層保證。
type ChatEvent struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	RecipientID    string    `json:"recipient_id"`
	Message        *Message  `json:"message,omitempty"`
	TypingUserID   string    `json:"typing_user_id,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
	At             time.Time `json:"at"`
}

// UserChannel 單一用戶的 pub/sub channel 名稱
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	PartnerID      string `json:"partner_id"`
	Text           string `json:"text"`
	Query          string `json:"query"`
	IsTyping       bool   `json:"is_typing"`

	// fetch_messages 續傳位置
	CursorCreatedAt string `json:"cursor_created_at"`
	CursorID        string `json:"cursor_id"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
