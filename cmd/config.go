package cmd

import "github.com/spf13/viper"

func settingDefaultConfig() {
	// Enable automatic environment variable binding
	viper.AutomaticEnv()

	// Logging
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.development", "LOG_DEVELOPMENT")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", true)

	// Object storage
	viper.BindEnv("storage.driver", "STORAGE_DRIVER")
	viper.BindEnv("storage.bucket", "BUCKET_NAME")
	viper.SetDefault("storage.driver", "minio")
	viper.SetDefault("storage.bucket", "ragbot")

	viper.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.access_key", "minioadmin")
	viper.SetDefault("minio.secret_key", "minioadmin")
	viper.SetDefault("minio.use_ssl", false)

	viper.BindEnv("s3.region", "AWS_REGION")
	viper.BindEnv("s3.endpoint", "S3_ENDPOINT")
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.endpoint", "")

	// Local scratch area and index
	viper.BindEnv("scratch.dir", "SCRATCH_DIR")
	viper.BindEnv("index.name", "INDEX_NAME")
	viper.SetDefault("scratch.dir", "/tmp/ragbot")
	viper.SetDefault("index.name", "my_faiss")

	// Hosted models
	viper.BindEnv("provider.driver", "PROVIDER_DRIVER")
	viper.BindEnv("provider.max_retries", "PROVIDER_MAX_RETRIES")
	viper.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")
	viper.SetDefault("provider.driver", "ollama")
	viper.SetDefault("provider.max_retries", 3)
	viper.SetDefault("provider.timeout", "60s")

	viper.BindEnv("ollama.url", "OLLAMA_URL")
	viper.BindEnv("ollama.embed_model", "OLLAMA_EMBED_MODEL")
	viper.BindEnv("ollama.generate_model", "OLLAMA_GENERATE_MODEL")
	viper.SetDefault("ollama.url", "http://localhost:11434/api")
	viper.SetDefault("ollama.embed_model", "nomic-embed-text")
	viper.SetDefault("ollama.generate_model", "llama3")

	viper.BindEnv("bedrock.region", "BEDROCK_REGION")
	viper.BindEnv("bedrock.embed_model", "BEDROCK_EMBED_MODEL")
	viper.BindEnv("bedrock.generate_model", "BEDROCK_GENERATE_MODEL")
	viper.SetDefault("bedrock.region", "us-east-1")
	viper.SetDefault("bedrock.embed_model", "amazon.titan-embed-text-v2:0")
	viper.SetDefault("bedrock.generate_model", "anthropic.claude-v2:1")

	// HTTP servers
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("admin.port", "ADMIN_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.SetDefault("server.port", "8084")
	viper.SetDefault("admin.port", "8083")
	viper.SetDefault("server.shutdown_timeout", "5s")

	viper.BindEnv("app.user_url", "USER_URL")
	viper.BindEnv("app.admin_url", "ADMIN_URL")
	viper.SetDefault("app.user_url", "http://localhost:8084/")
	viper.SetDefault("app.admin_url", "http://localhost:8083/")

	viper.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")

	// Admin credentials and hand-off
	viper.BindEnv("admin.username", "ADMIN_USERNAME")
	viper.BindEnv("admin.password", "ADMIN_PASSWORD")
	viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.password", "admin@123")
	viper.SetDefault("admin.password_hash", "")

	viper.BindEnv("auth.handoff_secret", "AUTH_HANDOFF_SECRET")
	viper.BindEnv("auth.handoff_ttl", "AUTH_HANDOFF_TTL")
	viper.SetDefault("auth.handoff_secret", "")
	viper.SetDefault("auth.handoff_ttl", "2m")

	// Sessions
	viper.BindEnv("session.driver", "SESSION_DRIVER")
	viper.BindEnv("session.ttl", "SESSION_TTL")
	viper.SetDefault("session.driver", "memory")
	viper.SetDefault("session.ttl", "12h")

	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Query log
	viper.BindEnv("querylog.driver", "QUERYLOG_DRIVER")
	viper.SetDefault("querylog.driver", "static")

	// Map environment variables to Viper keys for PostgreSQL
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.db", "POSTGRES_DB")
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.db", "ragbot")
}
