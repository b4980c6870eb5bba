package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	_ "github.com/jackc/pgx/v5/stdlib"

	_ "github.com/sbilibin2017/gw-wallet-ledger/docs"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/facades"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/handlers"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/jwt"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/metrics"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config is the complete runtime configuration of the service.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	DirectoryCacheTTL time.Duration

	KafkaBrokers []string // empty disables ledger event publishing
	KafkaTopic   string

	JWTSecretKey string
	JWTExp       time.Duration

	GRPCHealthPort string

	PlatformAccountID uuid.UUID
	Currency          string
	PointsCurrency    string
	Retry             repositories.RetryConfig
}

// @title gw-wallet-ledger API
// @version 1.0.0
// @description Wallet ledger with atomic balance mutations, transfers and live balances
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath, migrate := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg, migrate); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path and
// whether the ledger schema should be applied on startup.
func parseFlags() (string, bool) {
	c := flag.String("c", "config.env", "Path to configuration file")
	m := flag.Bool("migrate", false, "Apply the ledger schema before serving")
	flag.Parse()
	return *c, *m
}

// parseConfig loads environment variables from a file and returns the
// application, database, Redis, Kafka, JWT and ledger configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	ttl, err := getInt("DIRECTORY_CACHE_TTL_SECOND", "300")
	if err != nil {
		return
	}
	cfg.DirectoryCacheTTL = time.Duration(ttl) * time.Second

	// Kafka config
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "wallet-ledger-events")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	jwtExp, err := getInt("JWT_EXP_SECOND", "3600")
	if err != nil {
		return
	}
	cfg.JWTExp = time.Duration(jwtExp) * time.Second

	// gRPC health config
	cfg.GRPCHealthPort = getEnv("GRPC_HEALTH_PORT", "50051")

	// Ledger config
	if cfg.PlatformAccountID, err = uuid.Parse(getEnv("LEDGER_PLATFORM_ACCOUNT_ID", "00000000-0000-0000-0000-000000000001")); err != nil {
		err = fmt.Errorf("LEDGER_PLATFORM_ACCOUNT_ID: %w", err)
		return
	}
	cfg.Currency = strings.ToUpper(getEnv("LEDGER_CURRENCY", "USD"))
	cfg.PointsCurrency = strings.ToUpper(getEnv("LEDGER_POINTS_CURRENCY", "PTS"))

	retry := repositories.DefaultRetryConfig()
	if retry.MaxRetries, err = getInt("LEDGER_MAX_RETRIES", strconv.Itoa(retry.MaxRetries)); err != nil {
		return
	}
	baseMS, err := getInt("LEDGER_RETRY_BASE_DELAY_MS", strconv.FormatInt(retry.BaseDelay.Milliseconds(), 10))
	if err != nil {
		return
	}
	maxMS, err := getInt("LEDGER_RETRY_MAX_DELAY_MS", strconv.FormatInt(retry.MaxDelay.Milliseconds(), 10))
	if err != nil {
		return
	}
	retry.BaseDelay = time.Duration(baseMS) * time.Millisecond
	retry.MaxDelay = time.Duration(maxMS) * time.Millisecond
	cfg.Retry = retry

	return cfg, nil
}

// run initializes the logger, database, Redis, Kafka writer, gRPC health server
// and HTTP server. It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config, migrate bool) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infow("logger initialized", "level", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infow("connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if migrate {
		if err := repositories.ApplySchema(ctx, db); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		logger.Log.Infow("ledger schema applied")
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka writer for ledger events; disabled when no brokers are configured
	var kafkaWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
		defer w.Close()
		kafkaWriter = w
		logger.Log.Infow("ledger events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.New(registry)

	// Initialize JWT service
	tokens := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExp))

	// Initialize repositories
	userReadRepo := repositories.NewUserReadRepository(db)
	userWriteRepo := repositories.NewUserWriteRepository(db)
	ledgerWriter := repositories.NewLedgerWriterRepository(db,
		repositories.WithRetryConfig(cfg.Retry),
		repositories.WithMetrics(ledgerMetrics),
	)
	ledgerReader := repositories.NewLedgerReaderRepository(db)
	directoryCache := repositories.NewDirectoryCacheRepository(rdb, cfg.DirectoryCacheTTL)
	snapshots := repositories.NewSnapshotPubSubRepository(rdb)

	// Initialize services
	ledgerCfg := services.LedgerConfig{
		PlatformAccountID: cfg.PlatformAccountID,
		Currency:          cfg.Currency,
		PointsCurrency:    cfg.PointsCurrency,
	}
	authService := services.NewAuthService(userReadRepo, userWriteRepo, tokens)
	directoryService := services.NewDirectoryService(userReadRepo, directoryCache)
	ledgerService := services.NewLedgerService(ledgerCfg, ledgerWriter, ledgerReader, snapshots, directoryService, kafkaWriter, ledgerMetrics)
	historyService := services.NewHistoryService(ledgerCfg, ledgerReader, snapshots, ledgerMetrics)
	exportService := services.NewExportService(ledgerCfg, ledgerReader)

	// gRPC health
	healthServer := health.NewServer()
	healthFacade := facades.NewHealthGRPCFacade(healthServer, map[string]facades.DependencyCheck{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, 2*time.Second)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/register", handlers.NewRegisterHandler(authService))
		r.Post("/login", handlers.NewLoginHandler(authService))
		r.Get("/healthz", newHealthzHandler(healthServer))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middlewares.AuthMiddleware(tokens))
			r.Use(middlewares.IdempotencyMiddleware)

			r.Post("/wallets/guest/service-fee", handlers.NewServiceFeeHandler(ledgerService))
			r.Route("/wallets/{kind}", func(r chi.Router) {
				r.Get("/", handlers.NewGetBalanceHandler(ledgerService, cfg.PlatformAccountID))
				r.Get("/stream", handlers.NewStreamHandler(historyService, cfg.PlatformAccountID))
				r.Get("/transactions", handlers.NewHistoryHandler(historyService, cfg.PlatformAccountID))
				r.Get("/export", handlers.NewExportHandler(exportService, cfg.PlatformAccountID))
				r.Get("/reconcile", handlers.NewReconcileHandler(exportService, cfg.PlatformAccountID))
				r.Post("/topup", handlers.NewTopUpHandler(ledgerService, cfg.PlatformAccountID))
				r.Post("/withdraw", handlers.NewWithdrawHandler(ledgerService, cfg.PlatformAccountID))
				r.Post("/transfer", handlers.NewTransferHandler(ledgerService, cfg.PlatformAccountID))
			})
			r.Post("/points/rewards", handlers.NewRewardHandler(ledgerService))
			r.Post("/points/redeem", handlers.NewRedeemHandler(ledgerService))
		})
	})

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	grpcLis, err := net.Listen("tcp", net.JoinHostPort(cfg.AppHost, cfg.GRPCHealthPort))
	if err != nil {
		return fmt.Errorf("gRPC health listener: %w", err)
	}

	// Graceful shutdown
	errChan := make(chan error, 2)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go healthFacade.Run(ctxShutdown, 10*time.Second)

	go func() {
		logger.Log.Infow("gRPC health server listening", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()

	go func() {
		logger.Log.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Infow("shutdown signal received, stopping servers")
	case serveErr := <-errChan:
		grpcServer.Stop()
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}
	grpcServer.GracefulStop()

	logger.Log.Infow("servers stopped gracefully")
	return nil
}

// newHealthzHandler reports the overall serving status tracked by the gRPC health server.
func newHealthzHandler(server *health.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		resp, err := server.Check(r.Context(), &healthpb.HealthCheckRequest{Service: facades.LedgerServiceName})
		if err == nil {
			status = resp.Status
		}

		code := http.StatusOK
		if status != healthpb.HealthCheckResponse_SERVING {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status.String()})
	}
}
