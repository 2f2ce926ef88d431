package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg"
	errprocess "cleaning_market_service/pkg/err"
	"cleaning_market_service/pkg/logger"

	"github.com/google/uuid"
)

// ObjectStorage 持久 blob 存儲 (pkg/database.MinIOClient 實作)
type ObjectStorage interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	RemoveObject(ctx context.Context, objectName string) error
}

// AttachmentUseCase 附件驗證 / 預覽 / 上傳
type AttachmentUseCase struct {
	storage ObjectStorage

	chatDocumentMax int64
	paymentProofMax int64
	urlExpiry       time.Duration
	clock           func() time.Time
}

// NewAttachmentUseCase init attachment use case。
// ceiling 傳 0 用預設值 (聊天 10MB / 付款證明 5MB)。
func NewAttachmentUseCase(storage ObjectStorage, chatDocumentMax, paymentProofMax int64) *AttachmentUseCase {
	if chatDocumentMax <= 0 {
		chatDocumentMax = domain.ChatDocumentMaxBytes
	}
	if paymentProofMax <= 0 {
		paymentProofMax = domain.PaymentProofMaxBytes
	}
	return &AttachmentUseCase{
		storage:         storage,
		chatDocumentMax: chatDocumentMax,
		paymentProofMax: paymentProofMax,
		urlExpiry:       7 * 24 * time.Hour,
		clock:           time.Now,
	}
}

// Validate 依 context 檢查大小上限與 mime 白名單。
// 必須在任何上傳動作之前呼叫；不合法直接擋下。
func (uc *AttachmentUseCase) Validate(upload domain.AttachmentUpload, attCtx domain.AttachmentContext) error {
	if upload.Size <= 0 {
		return fmt.Errorf("%w: empty attachment", domain.ErrValidation)
	}

	var (
		ceiling int64
		allowed []string
	)
	switch attCtx {
	case domain.AttachmentChatDocument:
		// 聊天允許圖片與文件
		ceiling = uc.chatDocumentMax
		allowed = append(append([]string{}, domain.ImageContentTypes...), domain.DocumentContentTypes...)
	case domain.AttachmentPaymentProof:
		// 付款證明僅允許圖片
		ceiling = uc.paymentProofMax
		allowed = domain.ImageContentTypes
	default:
		return fmt.Errorf("%w: unknown attachment context %q", domain.ErrValidation, attCtx)
	}

	if upload.Size > ceiling {
		return fmt.Errorf("%w: attachment %d bytes exceeds ceiling %d", domain.ErrValidation, upload.Size, ceiling)
	}
	if !pkg.Contains(allowed, upload.ContentType) {
		return fmt.Errorf("%w: content type %q not allowed", domain.ErrValidation, upload.ContentType)
	}
	return nil
}

// Upload 上傳到 object storage，回傳持久引用。
// 失敗不自動重試：重試由呼叫端決定，避免重覆存檔。
func (uc *AttachmentUseCase) Upload(ctx context.Context, upload domain.AttachmentUpload, ownerID string) (*domain.AttachmentRef, error) {
	// ownerID + 時間戳 + 隨機後綴，避免路徑碰撞
	suffix := strings.Split(uuid.New().String(), "-")[0]
	objectName := fmt.Sprintf("%s/%d_%s%s", ownerID, uc.clock().UnixNano(), suffix, filepath.Ext(upload.FileName))

	if err := uc.storage.PutObject(ctx, objectName, bytes.NewReader(upload.Data), upload.Size, upload.ContentType); err != nil {
		return nil, errprocess.Wrap(domain.ErrUpload, fmt.Sprintf("put %s: %v", objectName, err))
	}

	url, err := uc.storage.PresignGetURL(ctx, objectName, uc.urlExpiry)
	if err != nil {
		// 引用拿不到就不能給出穩定 ref；清掉剛上傳的孤兒檔
		if rmErr := uc.storage.RemoveObject(ctx, objectName); rmErr != nil {
			logger.Log.Warn(fmt.Sprintf("orphan attachment cleanup failed: %s: %v", objectName, rmErr))
		}
		return nil, errprocess.Wrap(domain.ErrUpload, fmt.Sprintf("presign %s: %v", objectName, err))
	}

	return &domain.AttachmentRef{
		ObjectName:  objectName,
		URL:         url,
		ContentType: upload.ContentType,
		Size:        upload.Size,
	}, nil
}

// ImagePreview 本地可渲染的預覽，scoped handle。
// 用完必須 Release，否則解碼後的影像資料一直佔著記憶體。
type ImagePreview struct {
	mu          sync.Mutex
	data        []byte
	contentType string
	released    bool
}

// Preview 為圖片類型產生預覽 handle；非圖片回傳 ErrValidation
func (uc *AttachmentUseCase) Preview(upload domain.AttachmentUpload) (*ImagePreview, error) {
	if !pkg.Contains(domain.ImageContentTypes, upload.ContentType) {
		return nil, fmt.Errorf("%w: preview only for images, got %q", domain.ErrValidation, upload.ContentType)
	}
	data := make([]byte, len(upload.Data))
	copy(data, upload.Data)
	return &ImagePreview{data: data, contentType: upload.ContentType}, nil
}

// DataURL 回傳可直接塞進 <img src> 的 data URL
func (p *ImagePreview) DataURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ""
	}
	return "data:" + p.contentType + ";base64," + base64.StdEncoding.EncodeToString(p.data)
}

// Released check the handle already released
func (p *ImagePreview) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Release 釋放預覽資料，可重覆呼叫
func (p *ImagePreview) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.released = true
}

// PreviewSlot 持有至多一個預覽：換新自動釋放舊的，
// Close 在擁有者收尾時釋放當前的。每條退出路徑都不漏。
type PreviewSlot struct {
	mu      sync.Mutex
	current *ImagePreview
}

// Set 放入新的預覽並釋放被換掉的
func (s *PreviewSlot) Set(p *ImagePreview) {
	s.mu.Lock()
	prev := s.current
	s.current = p
	s.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

// Current get the current preview (may be nil)
func (s *PreviewSlot) Current() *ImagePreview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close 釋放當前預覽
func (s *PreviewSlot) Close() {
	s.Set(nil)
}
