package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAttachmentUseCase_Validate(t *testing.T) {
	logger.SetNewNop()

	uc := NewAttachmentUseCase(new(MockObjectStorage), 0, 0)

	// **情境 1: 同一檔案在不同 context 有不同上限**
	t.Run("6MB 圖片聊天可收付款證明被拒", func(t *testing.T) {
		upload := domain.AttachmentUpload{
			FileName:    "receipt.jpg",
			ContentType: "image/jpeg",
			Size:        6 << 20,
		}

		assert.NoError(t, uc.Validate(upload, domain.AttachmentChatDocument))
		assert.ErrorIs(t, uc.Validate(upload, domain.AttachmentPaymentProof), domain.ErrValidation)
	})

	// **情境 2: 付款證明只收圖片**
	t.Run("付款證明拒收 PDF", func(t *testing.T) {
		upload := domain.AttachmentUpload{
			FileName:    "receipt.pdf",
			ContentType: "application/pdf",
			Size:        1 << 20,
		}

		assert.NoError(t, uc.Validate(upload, domain.AttachmentChatDocument))
		assert.ErrorIs(t, uc.Validate(upload, domain.AttachmentPaymentProof), domain.ErrValidation)
	})

	// **情境 3: 白名單外的類型兩邊都拒**
	t.Run("zip 兩種 context 都拒收", func(t *testing.T) {
		upload := domain.AttachmentUpload{
			FileName:    "archive.zip",
			ContentType: "application/zip",
			Size:        1 << 20,
		}

		assert.ErrorIs(t, uc.Validate(upload, domain.AttachmentChatDocument), domain.ErrValidation)
		assert.ErrorIs(t, uc.Validate(upload, domain.AttachmentPaymentProof), domain.ErrValidation)
	})

	// **情境 4: 空檔與未知 context**
	t.Run("空檔與未知 context 被拒", func(t *testing.T) {
		empty := domain.AttachmentUpload{FileName: "a.png", ContentType: "image/png", Size: 0}
		assert.ErrorIs(t, uc.Validate(empty, domain.AttachmentChatDocument), domain.ErrValidation)

		ok := domain.AttachmentUpload{FileName: "a.png", ContentType: "image/png", Size: 10}
		assert.ErrorIs(t, uc.Validate(ok, domain.AttachmentContext("avatar")), domain.ErrValidation)
	})

	// **情境 5: 上限恰好整點可收**
	t.Run("恰好上限整點可收", func(t *testing.T) {
		upload := domain.AttachmentUpload{
			FileName:    "proof.png",
			ContentType: "image/png",
			Size:        domain.PaymentProofMaxBytes,
		}
		assert.NoError(t, uc.Validate(upload, domain.AttachmentPaymentProof))
	})
}

func TestAttachmentUseCase_Upload(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	logger.SetNewNop()

	upload := domain.AttachmentUpload{
		FileName:    "photo.png",
		ContentType: "image/png",
		Size:        4,
		Data:        []byte("data"),
	}

	newUC := func(storage *MockObjectStorage) *AttachmentUseCase {
		uc := NewAttachmentUseCase(storage, 0, 0)
		uc.clock = func() time.Time { return now }
		return uc
	}

	// **情境 1: 成功上傳，物件路徑以擁有者為前綴**
	t.Run("成功上傳回傳持久引用", func(t *testing.T) {
		storage := new(MockObjectStorage)

		prefix := fmt.Sprintf("cust-1/%d_", now.UnixNano())
		storage.On("PutObject", ctx, mock.MatchedBy(func(name string) bool {
			return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".png")
		}), mock.Anything, int64(4), "image/png").Return(nil).Once()
		storage.On("PresignGetURL", ctx, mock.Anything, 7*24*time.Hour).
			Return("https://minio/signed", nil).Once()

		uc := newUC(storage)
		ref, err := uc.Upload(ctx, upload, "cust-1")

		assert.NoError(t, err)
		assert.Equal(t, "https://minio/signed", ref.URL)
		assert.Equal(t, "image/png", ref.ContentType)
		assert.Equal(t, int64(4), ref.Size)
		assert.True(t, strings.HasPrefix(ref.ObjectName, "cust-1/"))
		storage.AssertExpectations(t)
	})

	// **情境 2: 寫入失敗回傳 ErrUpload，不自動重試**
	t.Run("寫入失敗不重試", func(t *testing.T) {
		storage := new(MockObjectStorage)

		storage.On("PutObject", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection refused")).Once()

		uc := newUC(storage)
		_, err := uc.Upload(ctx, upload, "cust-1")

		assert.ErrorIs(t, err, domain.ErrUpload)
		storage.AssertNumberOfCalls(t, "PutObject", 1)
		storage.AssertNotCalled(t, "PresignGetURL", mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 3: 簽名失敗清掉孤兒檔**
	t.Run("引用失敗清掉剛上傳的物件", func(t *testing.T) {
		storage := new(MockObjectStorage)

		storage.On("PutObject", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()
		storage.On("PresignGetURL", ctx, mock.Anything, mock.Anything).
			Return("", errors.New("presign failed")).Once()
		storage.On("RemoveObject", ctx, mock.Anything).Return(nil).Once()

		uc := newUC(storage)
		_, err := uc.Upload(ctx, upload, "cust-1")

		assert.ErrorIs(t, err, domain.ErrUpload)
		storage.AssertExpectations(t)
	})
}

func TestAttachmentUseCase_Preview(t *testing.T) {
	logger.SetNewNop()

	uc := NewAttachmentUseCase(new(MockObjectStorage), 0, 0)

	image := domain.AttachmentUpload{
		FileName:    "photo.png",
		ContentType: "image/png",
		Size:        4,
		Data:        []byte("data"),
	}

	// **情境 1: 圖片預覽 handle 生命週期**
	t.Run("釋放後不再提供資料", func(t *testing.T) {
		preview, err := uc.Preview(image)

		assert.NoError(t, err)
		assert.False(t, preview.Released())
		assert.True(t, strings.HasPrefix(preview.DataURL(), "data:image/png;base64,"))

		preview.Release()
		assert.True(t, preview.Released())
		assert.Empty(t, preview.DataURL())

		// 重覆釋放安全
		preview.Release()
		assert.True(t, preview.Released())
	})

	// **情境 2: 非圖片不產生預覽**
	t.Run("PDF 不產生預覽", func(t *testing.T) {
		pdf := domain.AttachmentUpload{
			FileName:    "doc.pdf",
			ContentType: "application/pdf",
			Size:        4,
			Data:        []byte("data"),
		}

		_, err := uc.Preview(pdf)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	// **情境 3: slot 換新釋放舊的**
	t.Run("slot 換新時釋放被換掉的", func(t *testing.T) {
		first, err := uc.Preview(image)
		assert.NoError(t, err)
		second, err := uc.Preview(image)
		assert.NoError(t, err)

		var slot PreviewSlot
		slot.Set(first)
		assert.Same(t, first, slot.Current())

		slot.Set(second)
		assert.True(t, first.Released())
		assert.False(t, second.Released())
		assert.Same(t, second, slot.Current())

		slot.Close()
		assert.True(t, second.Released())
		assert.Nil(t, slot.Current())
	})
}
