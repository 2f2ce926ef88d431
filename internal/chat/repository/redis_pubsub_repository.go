package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"cleaning_market_service/internal/chat/domain"
	"cleaning_market_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// EventPubSub 即時事件的發布/訂閱。Subscribe 回傳的
// unsubscribe func 是 scoped resource，連線收尾時必須呼叫。
type EventPubSub interface {
	Publish(ctx context.Context, channel string, event domain.ChatEvent) error
	Subscribe(ctx context.Context, channel string, handler func(event domain.ChatEvent)) (func(), error)
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 event 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event domain.ChatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱指定 channel，收到事件後呼叫 handler。
// 回傳 unsubscribe，呼叫後關閉訂閱並結束接收 goroutine。
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(event domain.ChatEvent)) (func(), error) {
	sub := r.client.Subscribe(ctx, channel)

	// 確認訂閱已建立，避免漏掉緊接著的事件
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	ctxSub, cancel := context.WithCancel(ctx)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.ChatEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Errorf("pubsub unmarshal err:", err)
					continue
				}
				handler(event)
			case <-ctxSub.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()

	unsubscribe := func() {
		cancel()
	}
	return unsubscribe, nil
}
