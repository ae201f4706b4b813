package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ragbot/handler/http/middleware"
	"ragbot/handler/http/web"
	"ragbot/src/core/auth"
	"ragbot/src/core/objectstore"
	"ragbot/src/core/provider"
	"ragbot/src/core/querylog"
	"ragbot/src/core/session"
	"ragbot/src/fsutil"
	"ragbot/src/infrastructure/integrations/bedrock"
	"ragbot/src/infrastructure/integrations/ollama"
	"ragbot/src/log"
	"ragbot/src/storage/minioctrl"
	"ragbot/src/storage/postgres/querylogctrl"
	"ragbot/src/storage/s3ctrl"
)

type cleanupFunc func()

func newObjectClient(ctx context.Context, fs fsutil.FileStore) (*objectstore.Client, error) {
	bucketName := viper.GetString("storage.bucket")

	var bucket objectstore.Bucket
	switch driver := viper.GetString("storage.driver"); driver {
	case "minio":
		ms, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
			bucketName,
		)
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucketExists(ctx); err != nil {
			return nil, err
		}
		bucket = ms
	case "s3":
		ss, err := s3ctrl.NewS3Service(ctx, viper.GetString("s3.region"), viper.GetString("s3.endpoint"), bucketName)
		if err != nil {
			return nil, err
		}
		bucket = ss
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}

	if err := fs.MakeDirectory(viper.GetString("scratch.dir")); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return objectstore.NewClient(bucket, fs, viper.GetString("scratch.dir")), nil
}

func newProvider(ctx context.Context) (provider.Provider, error) {
	var p provider.Provider
	switch driver := viper.GetString("provider.driver"); driver {
	case "ollama":
		oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
			Timeout: viper.GetDuration("provider.timeout"),
		})
		p = ollama.NewProvider(oc, viper.GetString("ollama.embed_model"), viper.GetString("ollama.generate_model"))
	case "bedrock":
		bc, err := bedrock.NewClient(ctx, viper.GetString("bedrock.region"))
		if err != nil {
			return nil, err
		}
		p = bedrock.NewProvider(bc, viper.GetString("bedrock.embed_model"), viper.GetString("bedrock.generate_model"))
	default:
		return nil, fmt.Errorf("unknown provider driver %q", driver)
	}

	return provider.NewRetrying(p, viper.GetUint64("provider.max_retries"), 0), nil
}

func newQueryLogStore(ctx context.Context) (querylog.Store, cleanupFunc, error) {
	switch driver := viper.GetString("querylog.driver"); driver {
	case "static":
		return querylog.NewStaticStore(), func() {}, nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			viper.GetString("postgres.host"),
			viper.GetString("postgres.user"),
			viper.GetString("postgres.password"),
			viper.GetString("postgres.db"),
			viper.GetString("postgres.port"))
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		svc, err := querylogctrl.NewQueryLogService(db, 100)
		if err != nil {
			return nil, nil, err
		}
		if err := svc.Migrate(ctx); err != nil {
			return nil, nil, err
		}

		closeDB := func() {
			sqlDB, err := db.DB()
			if err != nil {
				log.Error(err, "Failed to get underlying *sql.DB")
				return
			}
			if err := sqlDB.Close(); err != nil {
				log.Error(err, "Error closing database connection")
			}
		}
		return svc, closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown query log driver %q", driver)
	}
}

func newSessionStore(ctx context.Context) (session.Store, cleanupFunc, error) {
	ttl := viper.GetDuration("session.ttl")
	switch driver := viper.GetString("session.driver"); driver {
	case "memory":
		return session.NewMemoryStore(ttl), func() {}, nil
	case "redis":
		client := redisv9.NewClient(&redisv9.Options{
			Addr:         viper.GetString("redis.addr"),
			Password:     viper.GetString("redis.password"),
			DB:           viper.GetInt("redis.db"),
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis failed: %w", err)
		}
		return session.NewRedisStore(client, ttl), func() {
			if err := client.Close(); err != nil {
				log.Error(err, "Error closing redis connection")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", driver)
	}
}

func newVerifier() (auth.Verifier, error) {
	username := viper.GetString("admin.username")
	if hash := viper.GetString("admin.password_hash"); hash != "" {
		return auth.NewBcryptVerifier(username, hash)
	}
	return auth.NewBcryptVerifierFromPassword(username, viper.GetString("admin.password"))
}

func newHandoff() (*auth.Handoff, error) {
	secret := viper.GetString("auth.handoff_secret")
	if secret == "" {
		credential := viper.GetString("admin.password_hash")
		if credential == "" {
			credential = viper.GetString("admin.password")
		}
		derived, err := auth.DeriveSecret(viper.GetString("admin.username"), credential)
		if err != nil {
			return nil, fmt.Errorf("AUTH_HANDOFF_SECRET is not set and no admin credential to derive it from: %w", err)
		}
		log.Info("AUTH_HANDOFF_SECRET is not set, deriving the hand-off key from the admin credentials")
		secret = derived
	}
	return auth.NewHandoff(secret, viper.GetDuration("auth.handoff_ttl"))
}

func allowedOrigins() []string {
	raw := strings.Join(viper.GetStringSlice("cors.allowed_origins"), ",")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		fields = []string{viper.GetString("app.user_url"), viper.GetString("app.admin_url")}
	}
	out := make([]string, 0, len(fields))
	for _, o := range fields {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func newRouter(name string, sessions session.Store) *gin.Engine {
	if !viper.GetBool("log.development") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(name))
	r.Use(middleware.CORS(allowedOrigins()))
	r.Use(middleware.Sessions(sessions, viper.GetDuration("session.ttl")))
	r.SetHTMLTemplate(web.Templates())
	return r
}

// runServer serves until SIGINT/SIGTERM and then shuts down gracefully
func runServer(port string, handler http.Handler, cleanups ...cleanupFunc) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	go func() {
		log.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	for _, c := range cleanups {
		c()
	}

	log.Info("Server exited")
}
