package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"cleaning_market_service/internal/chat/app"
	"cleaning_market_service/internal/chat/repository"
	"cleaning_market_service/internal/chat/router"
	"cleaning_market_service/pkg/config"
	"cleaning_market_service/pkg/database"
	"cleaning_market_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	// 1. 建立 Mongo 連線 (對話與訊息)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 唯一性與排序在 store 邊界保證，索引必須先就位
	if err := repository.EnsureConversationIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal(fmt.Sprintf("ensure conversation indexes err : %v", err))
	}
	if err := repository.EnsureMessageIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal(fmt.Sprintf("ensure message indexes err : %v", err))
	}

	// 2. 建立 Redis 連線 (presence 軟狀態 + Pub/Sub + profile cache)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. 建立 MinIO 連線 (附件)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	// 4. Kafka 通知出口 (可選；連不上只降級，不擋服務)
	var notifier repository.NotificationDispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Warn(fmt.Sprintf("kafka unavailable, offline notifications disabled: %v", err))
		} else {
			defer writer.Close()
			notifier = repository.NewKafkaNotifier(writer)
		}
	}

	// 5. 初始化 Repository
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	presenceRepo := repository.NewRedisPresenceRepository(redisClient)
	pubsub := repository.NewRedisPubSub(redisClient)
	memberURL := fmt.Sprintf("http://%s:%s", cfg.MemberService.Name, cfg.MemberService.Port)
	profiles := repository.NewMemberProfileResolver(memberURL, redisClient)

	// 6. 初始化 UseCases
	attachmentUC := app.NewAttachmentUseCase(minioClient, cfg.Attachment.ChatDocumentMaxBytes, cfg.Attachment.PaymentProofMaxBytes)
	directoryUC := app.NewDirectoryUseCase(convRepo, msgRepo, profiles)
	messageUC := app.NewMessageUseCase(convRepo, msgRepo, attachmentUC, pubsub, notifier)
	presenceUC := app.NewPresenceUseCase(presenceRepo, cfg.Presence.OnlineTTL, cfg.Presence.TypingTTL)

	// 7. 啟動 Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: int(attachmentBodyLimit(cfg)),
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(directoryUC, messageUC, presenceUC, pubsub),
		app.NewChatHTTPHandler(directoryUC, messageUC, presenceUC),
	)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}

// attachmentBodyLimit 附件上限之外留一點 multipart 標頭餘裕
func attachmentBodyLimit(cfg config.Chat) int64 {
	limit := cfg.Attachment.ChatDocumentMaxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	return limit + 1<<20
}
