package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every runtime setting. Values come from the environment
// (optionally via a .env file) with local-development defaults.
type Config struct {
	Port        string
	Environment string
	Debug       bool

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AMQPURL      string
	AMQPExchange string

	OTLPEndpoint string

	JWTSecret string
	JWTIssuer string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8083")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "meme_service")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "meme-images")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "meme_events")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("JWT_ISSUER", "meme-service")

	return Config{
		Port:           v.GetString("PORT"),
		Environment:    v.GetString("ENVIRONMENT"),
		Debug:          v.GetBool("DEBUG"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDB:        v.GetString("MONGO_DB"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    v.GetString("MINIO_BUCKET"),
		MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		AMQPURL:        v.GetString("AMQP_URL"),
		AMQPExchange:   v.GetString("AMQP_EXCHANGE"),
		OTLPEndpoint:   v.GetString("OTLP_ENDPOINT"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTIssuer:      v.GetString("JWT_ISSUER"),
	}
}
