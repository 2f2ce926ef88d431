package repository

import (
	"context"
	"errors"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/database"

	"github.com/go-redis/redis/v8"
)

// PresenceRepository definition presence/typing soft state store。
// 寫入帶 TTL 當 storage 端保險，online/typing 判定仍由
// usecase 以注入時鐘對時間戳推導，測試可完全離線。
type PresenceRepository interface {
	SaveHeartbeat(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
	// LastSeen 無記錄時回傳零值 time，不視為錯誤
	LastSeen(ctx context.Context, userID string) (time.Time, error)

	SaveTyping(ctx context.Context, conversationID, userID string, expiresAt time.Time, ttl time.Duration) error
	ClearTyping(ctx context.Context, conversationID, userID string) error
	// TypingExpiry 無記錄時回傳零值 time
	TypingExpiry(ctx context.Context, conversationID, userID string) (time.Time, error)
}

type presenceRepository struct {
	presence database.RedisRepository[domain.PresenceEntry]
	typing   database.RedisRepository[domain.TypingEntry]
}

// NewRedisPresenceRepository create a PresenceRepository
func NewRedisPresenceRepository(client *redis.Client) PresenceRepository {
	return &presenceRepository{
		presence: database.NewRedisRepository[domain.PresenceEntry](client),
		typing:   database.NewRedisRepository[domain.TypingEntry](client),
	}
}

func presenceKey(userID string) string {
	return "presence:user:" + userID
}

func typingKey(conversationID, userID string) string {
	return "typing:" + conversationID + ":" + userID
}

func (r *presenceRepository) SaveHeartbeat(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	entry := domain.PresenceEntry{UserID: userID, LastSeenAt: at}
	return r.presence.Set(ctx, presenceKey(userID), entry, ttl)
}

func (r *presenceRepository) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	entry, err := r.presence.Get(ctx, presenceKey(userID))
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return entry.LastSeenAt, nil
}

func (r *presenceRepository) SaveTyping(ctx context.Context, conversationID, userID string, expiresAt time.Time, ttl time.Duration) error {
	entry := domain.TypingEntry{
		UserID:         userID,
		ConversationID: conversationID,
		ExpiresAt:      expiresAt,
	}
	return r.typing.Set(ctx, typingKey(conversationID, userID), entry, ttl)
}

func (r *presenceRepository) ClearTyping(ctx context.Context, conversationID, userID string) error {
	return r.typing.Del(ctx, typingKey(conversationID, userID))
}

func (r *presenceRepository) TypingExpiry(ctx context.Context, conversationID, userID string) (time.Time, error) {
	entry, err := r.typing.Get(ctx, typingKey(conversationID, userID))
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return entry.ExpiresAt, nil
}
