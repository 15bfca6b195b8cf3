package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account-service/internal/clients"
	"account-service/internal/config"
	"account-service/internal/credential"
	"account-service/internal/handler"
	"account-service/internal/interfaces"
	"account-service/internal/messaging"
	"account-service/internal/models"
	"account-service/internal/rbac"
	"account-service/internal/repository"
	"account-service/internal/service"
	"account-service/internal/token"
	"account-service/pkg/logger"
	"account-service/pkg/middleware"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	serviceName       = "account-service"
	maxConnectRetries = 50
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Service:     serviceName,
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	if err := repository.RunMigrations(cfg.PostgresDSN(), log.Named("Migrations")); err != nil {
		zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
	}

	pgPool, err := setupPostgres(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	redisClient, err := setupRedis(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	mailSender, err := messaging.NewRabbitMailPublisher(mqConn, cfg.MailQueueName, cfg.WebAppURL, log)
	if err != nil {
		zap.L().Fatal("Failed to create mail publisher", zap.Error(err))
	}

	var events interfaces.EventPublisher = messaging.NoopEventPublisher{}
	if brokers := cfg.GetKafkaBrokers(); len(brokers) > 0 {
		events = messaging.NewKafkaEventPublisher(brokers, cfg.KafkaEventsTopic, log)
		zap.L().Info("Publishing account events to Kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaEventsTopic))
	} else {
		zap.L().Info("KAFKA_BROKERS not set, account events are discarded")
	}
	defer events.Close()

	businessClient, err := clients.NewBusinessGRPCClient(cfg.BusinessGRPCAddr, cfg.BusinessGRPCTimeout, log)
	if err != nil {
		zap.L().Fatal("Failed to create business service client", zap.Error(err))
	}
	defer businessClient.Close()

	accessControl, err := loadAccessControl(cfg)
	if err != nil {
		zap.L().Fatal("Failed to load RBAC grants", zap.Error(err))
	}

	ledger := repository.NewRedisRevocationLedger(redisClient, cfg.RefreshToken.TTL, log)
	tokens, err := newTokenManager(cfg, ledger, log)
	if err != nil {
		zap.L().Fatal("Failed to initialize token manager", zap.Error(err))
	}

	deps := service.Dependencies{
		Users:             repository.NewPgUserRepository(pgPool, log.Named("PgUserRepo")),
		PhoneCodes:        repository.NewRedisPhoneCodeRepository(redisClient, log.Named("RedisPhoneCodeRepo")),
		Credentials:       credential.NewStore(cfg.BcryptCost),
		Tokens:            tokens,
		Access:            accessControl,
		Mail:              mailSender,
		Events:            events,
		Business:          businessClient,
		LoginHistoryLimit: cfg.LoginHistoryLimit,
		PhoneCodeTTL:      cfg.PhoneCodeTTL,
	}
	authSvc := service.NewAuthService(deps, log)
	userSvc := service.NewUserService(deps, log)

	rateLimitStore := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redisClient,
		Rate:        time.Minute,
		Limit:       cfg.RateLimitPerMinute,
	})
	rateLimitMiddleware := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeTooManyRequests,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{cfg.WebAppURL}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	handler.NewHandler(authSvc, userSvc, cfg).RegisterRoutes(router, rateLimitMiddleware)

	// After route registration so every route gets instrumented.
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	zap.L().Info("Server exiting")
}

func loadAccessControl(cfg *config.Config) (*rbac.AccessControl, error) {
	if cfg.RBACGrantsFile == "" {
		grants, err := rbac.DefaultGrants()
		if err != nil {
			return nil, err
		}
		return rbac.New(grants), nil
	}
	grants, err := rbac.LoadGrantsFile(cfg.RBACGrantsFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded RBAC grants from file", zap.String("path", cfg.RBACGrantsFile))
	return rbac.New(grants), nil
}

func newTokenManager(cfg *config.Config, ledger token.RevocationLedger, log *zap.Logger) (*token.Manager, error) {
	accessKeys, err := token.LoadKeyPair(cfg.AccessToken.PrivateKeyFile, cfg.AccessToken.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("access token keys: %w", err)
	}
	refreshKeys, err := token.LoadKeyPair(cfg.RefreshToken.PrivateKeyFile, cfg.RefreshToken.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("refresh token keys: %w", err)
	}
	return token.NewManager(
		tokenOptions(cfg.AccessToken, accessKeys),
		tokenOptions(cfg.RefreshToken, refreshKeys),
		ledger, log,
	)
}

func tokenOptions(tc config.TokenConfig, keys token.KeyPair) token.Options {
	return token.Options{
		Algorithm: tc.Algorithm,
		TTL:       tc.TTL,
		Issuer:    tc.Issuer,
		Audience:  tc.Audience,
		Keys:      keys,
	}
}

// setupPostgres creates the connection pool, retrying until the database answers a ping.
func setupPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)

	retryDelay := 3 * time.Second
	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				zap.L().Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		zap.L().Warn("PostgreSQL not ready, retrying...", zap.Int("attempt", attempt), zap.Int("max_retries", maxConnectRetries), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxConnectRetries, lastErr)
}

// setupRedis creates the Redis client, retrying until it answers a ping.
func setupRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	retryDelay := 3 * time.Second
	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			zap.L().Info("Connected to Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}
		client.Close()
		lastErr = err
		zap.L().Warn("Redis not ready, retrying...", zap.Int("attempt", attempt), zap.Int("max_retries", maxConnectRetries), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxConnectRetries, lastErr)
}

func connectRabbitMQ(rawURL string, log *zap.Logger) (*amqp091.Connection, error) {
	retryDelay := 5 * time.Second
	log.Info("Attempting to connect to RabbitMQ", zap.String("url", maskURL(rawURL)), zap.Int("max_retries", maxConnectRetries))

	var err error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(rawURL)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := conn.NotifyClose(make(chan *amqp091.Error, 1))
				if closeErr := <-notifyClose; closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Duration("retry_delay", retryDelay), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectRetries, err)
}

// maskURL hides the password of a connection URL for logging.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
