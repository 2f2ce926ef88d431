package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/database"
	errprocess "cleaning_market_service/pkg/err"
	"cleaning_market_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
)

// ProfileResolver 會員目錄查詢 (外部協作者)：
// 對話列表用對方的顯示名稱與頭像組摘要。
type ProfileResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.Profile, error)
}

const profileCacheTTL = 5 * time.Minute

type memberProfileResolver struct {
	baseURL string
	cache   database.RedisRepository[domain.Profile]
}

// NewMemberProfileResolver create a ProfileResolver over the member service。
// cache client 可為 nil (不快取，僅測試或降級時)。
func NewMemberProfileResolver(baseURL string, cacheClient *redis.Client) ProfileResolver {
	r := &memberProfileResolver{baseURL: baseURL}
	if cacheClient != nil {
		r.cache = database.NewRedisRepository[domain.Profile](cacheClient)
	}
	return r
}

func profileCacheKey(userID string) string {
	return "profile:" + userID
}

func (r *memberProfileResolver) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, profileCacheKey(userID)); err == nil {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/members/%s/profile", r.baseURL, userID)
	agent := fiber.Get(url)
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errprocess.Set(fmt.Sprintf("member service request failed: %v", errs[0]))
	}
	if statusCode == fiber.StatusNotFound {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, userID)
	}
	if statusCode != fiber.StatusOK {
		return nil, errprocess.Set(fmt.Sprintf("member service status %d", statusCode))
	}

	var profile domain.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("member service response decode: %w", err)
	}

	if r.cache != nil {
		// 快取失敗僅記錄，查詢結果照常返回
		if err := r.cache.Set(ctx, profileCacheKey(userID), profile, profileCacheTTL); err != nil {
			logger.Log.Warn(fmt.Sprintf("profile cache set failed: %v", err))
		}
	}

	return &profile, nil
}
