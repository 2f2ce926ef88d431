package repository

import (
	"context"
	"fmt"
	"time"

	"cleaning_market_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store
type MessageRepository interface {
	// Insert 寫入一筆聊天訊息 (文字與附件引用為同一文件，不會半寫)
	Insert(ctx context.Context, msg *domain.Message) error
	// FindByConversation 以 (created_at, _id) 升冪拉取，cursor 之後續讀
	FindByConversation(ctx context.Context, conversationID string, cursor *domain.MessageCursor, limit int64) ([]domain.Message, error)
	// MarkRead 將對方已送達且未讀的訊息一次標記已讀，回傳筆數
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	// CountUnread 單一對話中 readerID 的未讀數
	CountUnread(ctx context.Context, conversationID, readerID string) (int64, error)
	// CountUnreadByConversation 多對話未讀數聚合
	CountUnreadByConversation(ctx context.Context, readerID string, conversationIDs []string) (map[string]int64, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

// EnsureMessageIndexes 建排序與未讀查詢索引
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("messages")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sender_id", Value: 1}, {Key: "read_at", Value: 1}},
		},
	})
	return err
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByConversation(ctx context.Context, conversationID string, cursor *domain.MessageCursor, limit int64) ([]domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if cursor != nil {
		// (created_at, _id) 嚴格大於 cursor：同刻訊息以 _id tie-break，
		// 重連補拉不重覆也不跳漏
		filter = bson.M{
			"conversation_id": conversationID,
			"$or": []bson.M{
				{"created_at": bson.M{"$gt": cursor.CreatedAt}},
				{"created_at": cursor.CreatedAt, "_id": bson.M{"$gt": cursor.ID}},
			},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	// read_at 只做 Unread → Read 單向轉移；已讀的不再碰，
	// 之後才到的訊息不受影響 (與並發 send 的競態屬可接受行為)
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": readerID},
		"read_at":         bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"read_at": at}}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID, readerID string) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": readerID},
		"read_at":         bson.M{"$exists": false},
	}
	return r.coll.CountDocuments(ctx, filter)
}

func (r *messageRepository) CountUnreadByConversation(ctx context.Context, readerID string, conversationIDs []string) (map[string]int64, error) {
	if len(conversationIDs) == 0 {
		return map[string]int64{}, nil
	}

	pipeline := mongo.Pipeline{
		// 1. 限定在用戶參與的對話
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "conversation_id", Value: bson.D{{Key: "$in", Value: conversationIDs}}},
			{Key: "sender_id", Value: bson.D{{Key: "$ne", Value: readerID}}},
			{Key: "read_at", Value: bson.D{{Key: "$exists", Value: false}}},
		}}},
		// 2. 按對話分組計數
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []struct {
		ConversationID string `bson:"_id"`
		UnreadCount    int64  `bson:"unread_count"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.ConversationID] = res.UnreadCount
	}
	return counts, nil
}
