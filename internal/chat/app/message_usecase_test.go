package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/internal/chat/repository"
	"cleaning_market_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConversation() *domain.Conversation {
	return &domain.Conversation{
		ID:         "conv-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		PairKey:    domain.PairKey("cust-1", "prov-1"),
		CreatedAt:  time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestMessageUseCase_Send(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	// 介面型參數：傳 nil 時保持 untyped nil，
	// usecase 的 nil 判斷才不會被「裝著 nil 指標的介面」騙過
	newUC := func(convRepo *MockConversationRepository, msgRepo *MockMessageRepository, uploader Uploader, pubsub repository.EventPubSub, notifier repository.NotificationDispatcher) *MessageUseCase {
		uc := NewMessageUseCase(convRepo, msgRepo, uploader, pubsub, notifier)
		uc.clock = func() time.Time { return now }
		return uc
	}

	// **情境 1: 成功送出文字訊息**
	t.Run("成功送出文字訊息", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		pubsub := new(MockEventPubSub)
		notifier := new(MockNotificationDispatcher)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("Insert", ctx, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ConversationID == "conv-1" && m.SenderID == "cust-1" &&
				m.Text == "hello" && m.CreatedAt.Equal(now) && m.ID != ""
		})).Return(nil).Once()
		convRepo.On("UpdateLastMessage", ctx, "conv-1", now, "hello").Return(nil).Once()
		// 事件發給對方，不是發訊者自己
		pubsub.On("Publish", ctx, domain.UserChannel("prov-1"), mock.MatchedBy(func(e domain.ChatEvent) bool {
			return e.Type == domain.EventMessageSent && e.RecipientID == "prov-1"
		})).Return(nil).Once()
		notifier.On("Dispatch", ctx, mock.Anything).Return(nil).Once()

		uc := newUC(convRepo, msgRepo, nil, pubsub, notifier)
		msg, err := uc.Send(ctx, "conv-1", "cust-1", "hello", nil)

		assert.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)
		assert.Nil(t, msg.ReadAt)
		convRepo.AssertExpectations(t)
		msgRepo.AssertExpectations(t)
		pubsub.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	// **情境 2: 空訊息**
	t.Run("空訊息被拒絕", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)
		_, err := uc.Send(ctx, "conv-1", "cust-1", "", nil)

		assert.ErrorIs(t, err, domain.ErrValidation)
		msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	// **情境 3: 長度邊界 2000 字**
	t.Run("剛好 2000 字通過，2001 字被拒絕", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil)
		msgRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
		convRepo.On("UpdateLastMessage", ctx, "conv-1", now, mock.Anything).Return(nil).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)

		// 用多位元組字元驗證按 rune 計數，不是按 byte
		exactly := strings.Repeat("好", domain.MaxMessageRunes)
		_, err := uc.Send(ctx, "conv-1", "cust-1", exactly, nil)
		assert.NoError(t, err)

		over := strings.Repeat("好", domain.MaxMessageRunes+1)
		_, err = uc.Send(ctx, "conv-1", "cust-1", over, nil)
		assert.ErrorIs(t, err, domain.ErrValidation)
		msgRepo.AssertExpectations(t)
	})

	// **情境 4: 非成員送訊息**
	t.Run("非成員被拒絕", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)
		_, err := uc.Send(ctx, "conv-1", "stranger", "hi", nil)

		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	// **情境 5: 對話不存在**
	t.Run("對話不存在", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "missing").Return(nil, nil).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)
		_, err := uc.Send(ctx, "missing", "cust-1", "hi", nil)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	// **情境 6: 附件上傳失敗，訊息不落地**
	t.Run("附件上傳失敗不建立訊息", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uploader := new(MockUploader)

		upload := domain.AttachmentUpload{
			FileName:    "receipt.pdf",
			ContentType: "application/pdf",
			Size:        1024,
			Data:        []byte("pdf"),
		}

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		uploader.On("Validate", upload, domain.AttachmentChatDocument).Return(nil).Once()
		uploader.On("Upload", ctx, upload, "cust-1").
			Return(nil, fmt.Errorf("%w: minio unreachable", domain.ErrUpload)).Once()

		uc := newUC(convRepo, msgRepo, uploader, nil, nil)
		_, err := uc.Send(ctx, "conv-1", "cust-1", "see attached", &upload)

		assert.ErrorIs(t, err, domain.ErrUpload)
		msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		uploader.AssertExpectations(t)
	})

	// **情境 7: 附件成功，引用與文字同筆落地**
	t.Run("附件訊息一次落地", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uploader := new(MockUploader)

		upload := domain.AttachmentUpload{
			FileName:    "photo.png",
			ContentType: "image/png",
			Size:        2048,
			Data:        []byte("png"),
		}
		ref := &domain.AttachmentRef{
			ObjectName:  "cust-1/123_abcd.png",
			URL:         "https://minio/cust-1/123_abcd.png",
			ContentType: "image/png",
			Size:        2048,
		}

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		uploader.On("Validate", upload, domain.AttachmentChatDocument).Return(nil).Once()
		uploader.On("Upload", ctx, upload, "cust-1").Return(ref, nil).Once()
		msgRepo.On("Insert", ctx, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Attachment == ref && m.Text == ""
		})).Return(nil).Once()
		// 純附件訊息的預覽是佔位符
		convRepo.On("UpdateLastMessage", ctx, "conv-1", now, "📎 attachment").Return(nil).Once()

		uc := newUC(convRepo, msgRepo, uploader, nil, nil)
		msg, err := uc.Send(ctx, "conv-1", "cust-1", "", &upload)

		assert.NoError(t, err)
		assert.Equal(t, ref, msg.Attachment)
		msgRepo.AssertExpectations(t)
	})

	// **情境 8: 摘要更新失敗不影響送出**
	t.Run("摘要更新失敗仍回傳訊息", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
		convRepo.On("UpdateLastMessage", ctx, "conv-1", now, "hi").
			Return(errors.New("mongo timeout")).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)
		msg, err := uc.Send(ctx, "conv-1", "cust-1", "hi", nil)

		assert.NoError(t, err)
		assert.NotNil(t, msg)
	})

	// **情境 9: 未設定事件出口也能正常送出**
	t.Run("未設定事件出口時送出不受影響", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
		convRepo.On("UpdateLastMessage", ctx, "conv-1", now, "hello").Return(nil).Once()

		uc := newUC(convRepo, msgRepo, nil, nil, nil)
		msg, err := uc.Send(ctx, "conv-1", "cust-1", "hello", nil)

		assert.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)
		msgRepo.AssertExpectations(t)
	})
}

func TestMessageUseCase_Fetch(t *testing.T) {
	ctx := context.Background()

	logger.SetNewNop()

	// **情境 1: cursor 續讀**
	t.Run("cursor 之後續讀", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		cursor := &domain.MessageCursor{
			CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			ID:        "msg-5",
		}
		expected := []domain.Message{{ID: "msg-6"}, {ID: "msg-7"}}

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("FindByConversation", ctx, "conv-1", cursor, int64(50)).Return(expected, nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		msgs, err := uc.Fetch(ctx, "conv-1", "cust-1", cursor, 50)

		assert.NoError(t, err)
		assert.Equal(t, expected, msgs)
		msgRepo.AssertExpectations(t)
	})

	// **情境 2: 對話不存在**
	t.Run("對話不存在", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "missing").Return(nil, nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		_, err := uc.Fetch(ctx, "missing", "cust-1", nil, 0)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		msgRepo.AssertNotCalled(t, "FindByConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 3: 非參與者不可讀取歷史**
	t.Run("非參與者讀取被拒", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		_, err := uc.Fetch(ctx, "conv-1", "intruder-9", nil, 0)

		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		msgRepo.AssertNotCalled(t, "FindByConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMessageUseCase_MarkRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	// **情境 1: 標記成功**
	t.Run("標記對方訊息為已讀", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("MarkRead", ctx, "conv-1", "cust-1", now).Return(int64(3), nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		uc.clock = func() time.Time { return now }
		err := uc.MarkRead(ctx, "conv-1", "cust-1")

		assert.NoError(t, err)
		msgRepo.AssertExpectations(t)
	})

	// **情境 2: 重覆標記是 no-op**
	t.Run("重覆標記無訊息可改也不報錯", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()
		msgRepo.On("MarkRead", ctx, "conv-1", "cust-1", now).Return(int64(0), nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		uc.clock = func() time.Time { return now }
		err := uc.MarkRead(ctx, "conv-1", "cust-1")

		assert.NoError(t, err)
	})

	// **情境 3: 非成員不能標記**
	t.Run("非成員被拒絕", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)

		convRepo.On("FindByID", ctx, "conv-1").Return(testConversation(), nil).Once()

		uc := NewMessageUseCase(convRepo, msgRepo, nil, nil, nil)
		err := uc.MarkRead(ctx, "conv-1", "stranger")

		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		msgRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
