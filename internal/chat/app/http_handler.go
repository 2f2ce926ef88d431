package app

import (
	"errors"
	"io"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/middlewares"
	"cleaning_market_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

// ChatHTTPHandler REST 介面 (表現層的 pull 通道)
type ChatHTTPHandler struct {
	directoryUC *DirectoryUseCase
	messageUC   *MessageUseCase
	presenceUC  *PresenceUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(directoryUC *DirectoryUseCase, messageUC *MessageUseCase, presenceUC *PresenceUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		directoryUC: directoryUC,
		messageUC:   messageUC,
		presenceUC:  presenceUC,
	}
}

func memberID(c *fiber.Ctx) string {
	id, _ := c.Locals(middlewares.TokenMemberID).(string)
	return id
}

func isObserver(c *fiber.Ctx) bool {
	role, _ := c.Locals(middlewares.TokenRole).(string)
	return role == string(token.RoleObserver)
}

// statusFromErr 錯誤分類對應 HTTP status
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUpload):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
}

// messageView 訊息 + 解開的預約卡 (若文字是微格式)。
// 解不開就只有原文，舊客戶端照常渲染純文字。
type messageView struct {
	domain.Message
	BookingCard *domain.BookingCard `json:"booking_card,omitempty"`
}

func viewMessage(m domain.Message) messageView {
	v := messageView{Message: m}
	if card, ok := domain.DecodeBookingCard(m.Text); ok {
		v.BookingCard = &card
	}
	return v
}

func viewMessages(msgs []domain.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, viewMessage(m))
	}
	return out
}

// CreateConversation POST /conversations  body: {"partner_id": "..."}
// 依角色決定自己是顧客端或清潔端；重覆建立拿回同一筆。
func (h *ChatHTTPHandler) CreateConversation(c *fiber.Ctx) error {
	if isObserver(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "read-only observer"})
	}

	var body struct {
		PartnerID string `json:"partner_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	me := memberID(c)
	role, _ := c.Locals(middlewares.TokenRole).(string)

	customerID, providerID := me, body.PartnerID
	if role == string(token.RoleProvider) {
		customerID, providerID = body.PartnerID, me
	}

	conv, err := h.directoryUC.GetOrCreate(c.Context(), customerID, providerID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(conv)
}

// GetConversations GET /conversations
func (h *ChatHTTPHandler) GetConversations(c *fiber.Ctx) error {
	summaries, err := h.directoryUC.List(c.Context(), memberID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"conversations": summaries})
}

// SearchConversations GET /conversations/search?q=
func (h *ChatHTTPHandler) SearchConversations(c *fiber.Ctx) error {
	summaries, err := h.directoryUC.Search(c.Context(), memberID(c), c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"conversations": summaries})
}

// GetMessages GET /conversations/:id/messages?cursor_created_at=&cursor_id=&limit=
func (h *ChatHTTPHandler) GetMessages(c *fiber.Ctx) error {
	var cursor *domain.MessageCursor
	if c.Query("cursor_id") != "" || c.Query("cursor_created_at") != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, c.Query("cursor_created_at"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cursor"})
		}
		cursor = &domain.MessageCursor{CreatedAt: createdAt, ID: c.Query("cursor_id")}
	}

	msgs, err := h.messageUC.Fetch(c.Context(), c.Params("id"), memberID(c), cursor, int64(c.QueryInt("limit")))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"messages": viewMessages(msgs)})
}

// SendMessage POST /conversations/:id/messages
// multipart form: text 欄位 + 可選 file 附件
func (h *ChatHTTPHandler) SendMessage(c *fiber.Ctx) error {
	if isObserver(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "read-only observer"})
	}

	text := c.FormValue("text")

	var upload *domain.AttachmentUpload
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		f, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot read attachment"})
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot read attachment"})
		}
		upload = &domain.AttachmentUpload{
			FileName:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Data:        data,
		}
	}

	msg, err := h.messageUC.Send(c.Context(), c.Params("id"), memberID(c), text, upload)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(viewMessage(*msg))
}

// SendBookingCard POST /conversations/:id/booking  body: BookingCard JSON
// 將預約摘要渲染成微格式文字後照一般訊息送出
func (h *ChatHTTPHandler) SendBookingCard(c *fiber.Ctx) error {
	if isObserver(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "read-only observer"})
	}

	var card domain.BookingCard
	if err := c.BodyParser(&card); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	msg, err := h.messageUC.Send(c.Context(), c.Params("id"), memberID(c), card.Encode(), nil)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(viewMessage(*msg))
}

// MarkRead POST /conversations/:id/read
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.messageUC.MarkRead(c.Context(), c.Params("id"), memberID(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

// GetUnread GET /conversations/:id/unread
func (h *ChatHTTPHandler) GetUnread(c *fiber.Ctx) error {
	count, err := h.directoryUC.UnreadCount(c.Context(), c.Params("id"), memberID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"unread_count": count})
}

// GetPresence GET /conversations/:id/presence
// 對方 (不是自己) 的在線與輸入中狀態
func (h *ChatHTTPHandler) GetPresence(c *fiber.Ctx) error {
	conv, err := h.directoryUC.GetForParticipant(c.Context(), c.Params("id"), memberID(c))
	if err != nil {
		return fail(c, err)
	}
	online, typing := h.presenceUC.PartnerPresence(c.Context(), conv, memberID(c))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"partner_online": online,
		"partner_typing": typing,
	})
}

// PostHeartbeat POST /presence/heartbeat
func (h *ChatHTTPHandler) PostHeartbeat(c *fiber.Ctx) error {
	h.presenceUC.Heartbeat(c.Context(), memberID(c))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}
