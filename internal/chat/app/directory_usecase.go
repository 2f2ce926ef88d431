package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/internal/chat/repository"
	errprocess "cleaning_market_service/pkg/err"
	"cleaning_market_service/pkg/logger"

	"github.com/google/uuid"
)

// DirectoryUseCase 用戶的對話列表、搜尋與未讀聚合
type DirectoryUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	profiles repository.ProfileResolver

	clock func() time.Time
}

// NewDirectoryUseCase init directory use case
func NewDirectoryUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileResolver,
) *DirectoryUseCase {
	return &DirectoryUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		profiles: profiles,
		clock:    time.Now,
	}
}

// GetOrCreate 取得或建立 (customer, provider) 的唯一對話。
// 並發呼叫撞到 pair_key 唯一索引時以一次 re-fetch 自癒，
// Conflict 不會外漏，所有呼叫者拿到同一個 id。
func (uc *DirectoryUseCase) GetOrCreate(ctx context.Context, customerID, providerID string) (*domain.Conversation, error) {
	if customerID == "" || providerID == "" {
		return nil, errprocess.Wrap(domain.ErrValidation, "missing participant id")
	}
	if customerID == providerID {
		return nil, errprocess.Wrap(domain.ErrValidation, "conversation needs two distinct participants")
	}

	pairKey := domain.PairKey(customerID, providerID)

	existing, err := uc.convRepo.FindByPair(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := uc.clock().UTC()
	conv := &domain.Conversation{
		ID:            uuid.New().String(),
		CustomerID:    customerID,
		ProviderID:    providerID,
		PairKey:       pairKey,
		LastMessageAt: now,
		CreatedAt:     now,
	}

	err = uc.convRepo.Insert(ctx, conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}

	// 另一個呼叫者搶先建立了同一對，改拿它的
	winner, ferr := uc.convRepo.FindByPair(ctx, pairKey)
	if ferr != nil {
		return nil, ferr
	}
	if winner == nil {
		return nil, err
	}
	return winner, nil
}

// GetForParticipant 取得對話並驗證 userID 是成員
func (uc *DirectoryUseCase) GetForParticipant(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errprocess.Wrap(domain.ErrNotFound, "conversation "+conversationID)
	}
	if !conv.HasParticipant(userID) {
		return nil, errprocess.Wrap(domain.ErrNotAuthorized, fmt.Sprintf("%s is not a participant of %s", userID, conversationID))
	}
	return conv, nil
}

// List 用戶所有對話摘要，last_message_at 降冪。
// 對方顯示資料由會員目錄解析；解析失敗只記錄，
// 列表照常出 (名字留空比整頁掛掉好)。
func (uc *DirectoryUseCase) List(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	convs, err := uc.convRepo.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	counts, err := uc.msgRepo.CountUnreadByConversation(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		partnerID := conv.PartnerOf(userID)

		var partner domain.Profile
		if resolved, err := uc.profiles.Resolve(ctx, partnerID); err != nil {
			logger.Log.Warn(fmt.Sprintf("profile resolve failed for %s: %v", partnerID, err))
		} else {
			partner = *resolved
		}

		summaries = append(summaries, domain.ConversationSummary{
			Conversation: conv,
			PartnerID:    partnerID,
			Partner:      partner,
			UnreadCount:  counts[conv.ID],
		})
	}
	return summaries, nil
}

// Search 大小寫不敏感子字串比對：對方名稱或最後訊息預覽
func (uc *DirectoryUseCase) Search(ctx context.Context, userID, query string) ([]domain.ConversationSummary, error) {
	summaries, err := uc.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return summaries, nil
	}

	filtered := make([]domain.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.Partner.DisplayName), query) ||
			strings.Contains(strings.ToLower(s.Conversation.LastMessagePreview), query) {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// UnreadCount 單一對話中 userID 的未讀數
func (uc *DirectoryUseCase) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := uc.GetForParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return uc.msgRepo.CountUnread(ctx, conversationID, userID)
}
