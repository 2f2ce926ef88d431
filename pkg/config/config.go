package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port string `mapstructure:"port"`

	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`

	// MemberService 對外的會員目錄，用於解析對話對象的顯示資料
	MemberService ServiceConfig `mapstructure:"member"`

	Presence   PresenceConfig   `mapstructure:"presence"`
	Attachment AttachmentConfig `mapstructure:"attachment"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting (通知事件)
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// PresenceConfig definition presence TTL setting
type PresenceConfig struct {
	OnlineTTL time.Duration `mapstructure:"online_ttl"`
	TypingTTL time.Duration `mapstructure:"typing_ttl"`
}

// AttachmentConfig definition attachment ceiling setting
type AttachmentConfig struct {
	ChatDocumentMaxBytes int64 `mapstructure:"chat_document_max_bytes"`
	PaymentProofMaxBytes int64 `mapstructure:"payment_proof_max_bytes"`
}
