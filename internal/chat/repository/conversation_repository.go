package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleaning_market_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation store
type ConversationRepository interface {
	// Insert 寫入新對話。pair_key 撞到唯一索引時回傳 domain.ErrConflict
	Insert(ctx context.Context, conv *domain.Conversation) error
	// FindByID 查詢單一對話，不存在回傳 (nil, nil)
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// FindByPair 以正規化 pair_key 查詢，不存在回傳 (nil, nil)
	FindByPair(ctx context.Context, pairKey string) (*domain.Conversation, error)
	// FindByParticipant 查詢用戶所有對話，last_message_at 降冪
	FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	// UpdateLastMessage send 成功後更新 last_message_at / preview
	UpdateLastMessage(ctx context.Context, conversationID string, at time.Time, preview string) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureConversationIndexes 建 pair_key 唯一索引與成員查詢索引。
// 唯一性在 store 邊界保證，並發 get-or-create 靠它收斂成一筆。
func EnsureConversationIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("conversations")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "last_message_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "last_message_at", Value: -1}},
		},
	})
	return err
}

func (r *conversationRepository) Insert(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: conversation pair %s", domain.ErrConflict, conv.PairKey)
	}
	return err
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByPair(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"pair_key": pairKey}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"customer_id": userID},
			{"provider_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID string, at time.Time, preview string) error {
	filter := bson.M{"_id": conversationID}
	update := bson.M{"$set": bson.M{
		"last_message_at":      at,
		"last_message_preview": preview,
	}}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}
