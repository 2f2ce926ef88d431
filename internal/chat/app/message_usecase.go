package app

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/internal/chat/repository"
	errprocess "cleaning_market_service/pkg/err"
	"cleaning_market_service/pkg/logger"

	"github.com/google/uuid"
)

// Uploader 附件管線 (AttachmentUseCase 實作)
type Uploader interface {
	Validate(upload domain.AttachmentUpload, attCtx domain.AttachmentContext) error
	Upload(ctx context.Context, upload domain.AttachmentUpload, ownerID string) (*domain.AttachmentRef, error)
}

// MessageUseCase 單一對話的有序訊息 append log 與已讀轉移
type MessageUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	attachments Uploader
	pubsub      repository.EventPubSub
	notifier    repository.NotificationDispatcher

	clock func() time.Time
}

// NewMessageUseCase init message use case。
// pubsub / notifier 可為 nil (直接呼叫測試時)。
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	attachments Uploader,
	pubsub repository.EventPubSub,
	notifier repository.NotificationDispatcher,
) *MessageUseCase {
	return &MessageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		attachments: attachments,
		pubsub:      pubsub,
		notifier:    notifier,
		clock:       time.Now,
	}
}

// Send 驗證、(可選)上傳附件、落地訊息、更新對話摘要、發事件。
// 附件上傳必須先完成，文字與附件引用同一筆文件一次寫入，
// 不會半寫；上傳中被放棄就是沒有訊息，沒有殘缺記錄。
func (uc *MessageUseCase) Send(ctx context.Context, conversationID, senderID, text string, attachment *domain.AttachmentUpload) (*domain.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errprocess.Wrap(domain.ErrNotFound, "conversation "+conversationID)
	}

	// UI 層的唯讀模式不是安全邊界，成員檢查這裡一定再做
	if !conv.HasParticipant(senderID) {
		return nil, errprocess.Wrap(domain.ErrNotAuthorized, fmt.Sprintf("%s is not a participant of %s", senderID, conversationID))
	}

	if text == "" && attachment == nil {
		return nil, errprocess.Wrap(domain.ErrValidation, "empty message")
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageRunes {
		return nil, errprocess.Wrap(domain.ErrValidation, fmt.Sprintf("text exceeds %d runes", domain.MaxMessageRunes))
	}

	var ref *domain.AttachmentRef
	if attachment != nil {
		if err := uc.attachments.Validate(*attachment, domain.AttachmentChatDocument); err != nil {
			return nil, err
		}
		// ErrUpload 原樣回傳；不自動重試，沒有訊息被建立
		ref, err = uc.attachments.Upload(ctx, *attachment, senderID)
		if err != nil {
			return nil, err
		}
	}

	// 時間戳在 commit 時指定，並發 send 仍維持 (created_at, id) 全序
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		Attachment:     ref,
		CreatedAt:      uc.clock().UTC(),
	}
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// 訊息已持久；摘要更新失敗不回滾，只記錄
	if err := uc.convRepo.UpdateLastMessage(ctx, conv.ID, msg.CreatedAt, msg.Preview()); err != nil {
		logger.Log.Errorf("update last message failed:", err)
	}

	uc.publishSent(ctx, conv, msg)

	return msg, nil
}

// publishSent 對另一方發即時事件與離線提醒事件，皆 best-effort
func (uc *MessageUseCase) publishSent(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	recipientID := conv.PartnerOf(msg.SenderID)
	event := domain.ChatEvent{
		Type:           domain.EventMessageSent,
		ConversationID: conv.ID,
		RecipientID:    recipientID,
		Message:        msg,
		At:             msg.CreatedAt,
	}

	if uc.pubsub != nil {
		if err := uc.pubsub.Publish(ctx, domain.UserChannel(recipientID), event); err != nil {
			logger.Log.Errorf("publish message event failed:", err)
		}
	}
	if uc.notifier != nil {
		if err := uc.notifier.Dispatch(ctx, event); err != nil {
			logger.Log.Errorf("dispatch notification failed:", err)
		}
	}
}

// Fetch 以 (created_at, id) 升冪拉取；cursor 之後續讀，
// 重連補拉不重覆、不跳漏。limit <= 0 表示不限制。
// 僅對話參與者可讀取歷史。
func (uc *MessageUseCase) Fetch(ctx context.Context, conversationID, readerID string, cursor *domain.MessageCursor, limit int64) ([]domain.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errprocess.Wrap(domain.ErrNotFound, "conversation "+conversationID)
	}
	if !conv.HasParticipant(readerID) {
		return nil, errprocess.Wrap(domain.ErrNotAuthorized, fmt.Sprintf("%s is not a participant of %s", readerID, conversationID))
	}
	return uc.msgRepo.FindByConversation(ctx, conversationID, cursor, limit)
}

// MarkRead 將對方所有目前未讀的訊息設為已讀。重覆呼叫是 no-op；
// 與對方並發送出的訊息保持未讀，屬可接受競態。
func (uc *MessageUseCase) MarkRead(ctx context.Context, conversationID, readerID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return errprocess.Wrap(domain.ErrNotFound, "conversation "+conversationID)
	}
	if !conv.HasParticipant(readerID) {
		return errprocess.Wrap(domain.ErrNotAuthorized, fmt.Sprintf("%s is not a participant of %s", readerID, conversationID))
	}

	_, err = uc.msgRepo.MarkRead(ctx, conversationID, readerID, uc.clock().UTC())
	return err
}
