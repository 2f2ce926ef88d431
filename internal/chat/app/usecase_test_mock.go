package app

import (
	"context"
	"io"
	"time"

	"cleaning_market_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Insert moke insert conversation
func (m *MockConversationRepository) Insert(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByPair moke find conversation by pair key
func (m *MockConversationRepository) FindByPair(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	args := m.Called(ctx, pairKey)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByParticipant moke find conversations by member
func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateLastMessage moke update conversation preview
func (m *MockConversationRepository) UpdateLastMessage(ctx context.Context, conversationID string, at time.Time, preview string) error {
	args := m.Called(ctx, conversationID, at, preview)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByConversation moke ordered fetch
func (m *MockMessageRepository) FindByConversation(ctx context.Context, conversationID string, cursor *domain.MessageCursor, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, cursor, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead moke mark read
func (m *MockMessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, readerID, at)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnread moke count unread in one conversation
func (m *MockMessageRepository) CountUnread(ctx context.Context, conversationID, readerID string) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnreadByConversation moke unread aggregation
func (m *MockMessageRepository) CountUnreadByConversation(ctx context.Context, readerID string, conversationIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, readerID, conversationIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPresenceRepository Mock PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

// SaveHeartbeat moke save heartbeat
func (m *MockPresenceRepository) SaveHeartbeat(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	args := m.Called(ctx, userID, at, ttl)
	return args.Error(0)
}

// LastSeen moke last seen
func (m *MockPresenceRepository) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

// SaveTyping moke save typing lease
func (m *MockPresenceRepository) SaveTyping(ctx context.Context, conversationID, userID string, expiresAt time.Time, ttl time.Duration) error {
	args := m.Called(ctx, conversationID, userID, expiresAt, ttl)
	return args.Error(0)
}

// ClearTyping moke clear typing lease
func (m *MockPresenceRepository) ClearTyping(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

// TypingExpiry moke typing expiry
func (m *MockPresenceRepository) TypingExpiry(ctx context.Context, conversationID, userID string) (time.Time, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

// MockEventPubSub Mock EventPubSub
type MockEventPubSub struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockEventPubSub) Publish(ctx context.Context, channel string, event domain.ChatEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

// Subscribe moke subscriber
func (m *MockEventPubSub) Subscribe(ctx context.Context, channel string, handler func(event domain.ChatEvent)) (func(), error) {
	args := m.Called(ctx, channel, handler)
	if args.Get(0) != nil {
		return args.Get(0).(func()), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotificationDispatcher Mock NotificationDispatcher
type MockNotificationDispatcher struct {
	mock.Mock
}

// Dispatch moke dispatch notification event
func (m *MockNotificationDispatcher) Dispatch(ctx context.Context, event domain.ChatEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProfileResolver Mock ProfileResolver
type MockProfileResolver struct {
	mock.Mock
}

// Resolve moke resolve member profile
func (m *MockProfileResolver) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockObjectStorage Mock ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

// PutObject moke put object
func (m *MockObjectStorage) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.Error(0)
}

// PresignGetURL moke presign url
func (m *MockObjectStorage) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// RemoveObject moke remove object
func (m *MockObjectStorage) RemoveObject(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

// MockUploader Mock Uploader
type MockUploader struct {
	mock.Mock
}

// Validate moke validate attachment
func (m *MockUploader) Validate(upload domain.AttachmentUpload, attCtx domain.AttachmentContext) error {
	args := m.Called(upload, attCtx)
	return args.Error(0)
}

// Upload moke upload attachment
func (m *MockUploader) Upload(ctx context.Context, upload domain.AttachmentUpload, ownerID string) (*domain.AttachmentRef, error) {
	args := m.Called(ctx, upload, ownerID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.AttachmentRef), args.Error(1)
	}
	return nil, args.Error(1)
}
