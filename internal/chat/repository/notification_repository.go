package repository

import (
	"context"
	"encoding/json"

	"cleaning_market_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// NotificationDispatcher 離線提醒的事件出口。core 只保證
// 訊息落地後把事件送出去；提醒怎麼送 (push、email) 是
// 消費端的事。
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event domain.ChatEvent) error
}

type kafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier create a NotificationDispatcher over kafka
func NewKafkaNotifier(writer *kafka.Writer) NotificationDispatcher {
	return &kafkaNotifier{writer: writer}
}

func (n *kafkaNotifier) Dispatch(ctx context.Context, event domain.ChatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// key 用收件人 id，同一用戶的提醒保持分區內有序
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RecipientID),
		Value: data,
	})
}
