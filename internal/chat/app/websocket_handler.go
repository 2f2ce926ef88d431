package app

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/internal/chat/repository"
	"cleaning_market_service/pkg/logger"
	"cleaning_market_service/pkg/middlewares"
	"cleaning_market_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	directoryUC *DirectoryUseCase
	messageUC   *MessageUseCase
	presenceUC  *PresenceUseCase
	pubsub      repository.EventPubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	directoryUC *DirectoryUseCase,
	messageUC *MessageUseCase,
	presenceUC *PresenceUseCase,
	pubsub repository.EventPubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		directoryUC: directoryUC,
		messageUC:   messageUC,
		presenceUC:  presenceUC,
		pubsub:      pubsub,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenMember := conn.Locals(middlewares.TokenMemberID)
	memberID, ok := tokenMember.(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	logger.Log.Info("websocket handle memberID", zap.String("userID", memberID), zap.String("ok", strconv.FormatBool(ok)))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		logger.Log.Infof("Received PING:", appData)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 訂閱自己的事件 channel；unsubscribe 是 scoped resource，
	// 連線收尾時一定釋放
	unsubscribe, err := h.pubsub.Subscribe(ctxClose, domain.UserChannel(memberID), func(event domain.ChatEvent) {
		h.sendEvent(conn, event)
	})
	if err != nil {
		logger.Log.Errorf("subscribe failed:", err)
		return
	}
	defer unsubscribe()

	// 連上線即算一次 heartbeat
	h.presenceUC.Heartbeat(ctx, memberID)

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				pingMsg := "ping message"
				if err := conn.WriteMessage(websocket.PingMessage, []byte(pingMsg)); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Errorf("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, conn, memberID, role, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, conn *websocket.Conn, memberID, role string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, conn, memberID, role, msg)
	default:
		h.sendError(conn, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, conn *websocket.Conn, memberID, role string, msg []byte) {

	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	//傳送訊息 (observer 唯讀，usecase 內還會再驗一次成員)
	case string(domain.SendMessage):
		if role == string(token.RoleObserver) {
			resp.Error = "read-only observer"
			break
		}
		sent, err := h.messageUC.Send(ctx, req.ConversationID, memberID, req.Text, nil)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message"] = viewMessage(*sent)
		}

	//拉取訊息，可帶 cursor 續讀
	case string(domain.FetchMessages):
		cursor, err := parseCursor(req)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		msgs, err := h.messageUC.Fetch(ctx, req.ConversationID, memberID, cursor, 0)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["messages"] = viewMessages(msgs)
		}

	//將對方未讀訊息改為已讀
	case string(domain.ReadMessages):
		err := h.messageUC.MarkRead(ctx, req.ConversationID, memberID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//對話列表
	case string(domain.GetConversations):
		summaries, err := h.directoryUC.List(ctx, memberID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversations"] = summaries
		}

	//對話搜尋
	case string(domain.SearchConversations):
		summaries, err := h.directoryUC.Search(ctx, memberID, req.Query)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversations"] = summaries
		}

	//單一對話未讀數
	case string(domain.GetUnread):
		count, err := h.directoryUC.UnreadCount(ctx, req.ConversationID, memberID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["unread_count"] = count
		}

	//心跳續約
	case string(domain.Heartbeat):
		h.presenceUC.Heartbeat(ctx, memberID)
		resp.Success = true

	//輸入中租約
	case string(domain.SetTyping):
		if role == string(token.RoleObserver) {
			resp.Error = "read-only observer"
			break
		}
		conv, err := h.directoryUC.GetForParticipant(ctx, req.ConversationID, memberID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		h.presenceUC.SetTyping(ctx, conv.ID, memberID, req.IsTyping)
		h.publishTyping(ctx, conv, memberID, req.IsTyping)
		resp.Success = true

	//對方在線 / 輸入中狀態
	case string(domain.GetPresence):
		conv, err := h.directoryUC.GetForParticipant(ctx, req.ConversationID, memberID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		online, typing := h.presenceUC.PartnerPresence(ctx, conv, memberID)
		resp.Success = true
		resp.Payload["partner_online"] = online
		resp.Payload["partner_typing"] = typing

	default:
		h.sendError(conn, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("MemberID", memberID), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	h.sendResponse(conn, resp)
}

// publishTyping 對另一方發輸入中事件，best-effort
func (h *ChatWebsocketHandler) publishTyping(ctx context.Context, conv *domain.Conversation, memberID string, isTyping bool) {
	partnerID := conv.PartnerOf(memberID)
	event := domain.ChatEvent{
		Type:           domain.EventTyping,
		ConversationID: conv.ID,
		RecipientID:    partnerID,
		TypingUserID:   memberID,
		IsTyping:       isTyping,
		At:             time.Now(),
	}
	if err := h.pubsub.Publish(ctx, domain.UserChannel(partnerID), event); err != nil {
		logger.Log.Errorf("publish typing event failed:", err)
	}
}

func parseCursor(req domain.WSRequest) (*domain.MessageCursor, error) {
	if req.CursorID == "" && req.CursorCreatedAt == "" {
		return nil, nil
	}
	createdAt, err := time.Parse(time.RFC3339Nano, req.CursorCreatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.MessageCursor{CreatedAt: createdAt, ID: req.CursorID}, nil
}

// sendEvent 將訂閱到的事件轉成 push response 發給前端
func (h *ChatWebsocketHandler) sendEvent(conn *websocket.Conn, event domain.ChatEvent) {
	resp := domain.WSResponse{
		Success: true,
		Payload: map[string]interface{}{},
	}
	switch event.Type {
	case domain.EventMessageSent:
		resp.Action = string(domain.NotifyMessage)
		resp.Payload["conversation_id"] = event.ConversationID
		if event.Message != nil {
			resp.Payload["message"] = viewMessage(*event.Message)
		}
	case domain.EventTyping:
		resp.Action = string(domain.NotifyTyping)
		resp.Payload["conversation_id"] = event.ConversationID
		resp.Payload["typing_user_id"] = event.TypingUserID
		resp.Payload["is_typing"] = event.IsTyping
	default:
		return
	}
	h.sendResponse(conn, resp)
}

// sendResponse - 發送 JSON 給前端
func (h *ChatWebsocketHandler) sendResponse(conn *websocket.Conn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(conn *websocket.Conn, errorMsg string) {
	resp := domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
	h.sendResponse(conn, resp)
}
