package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"wikitree/internal/auth"
	"wikitree/internal/config"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/events"
	"wikitree/internal/handler"
	"wikitree/internal/httputil"
	"wikitree/internal/middleware"
	"wikitree/internal/realtime"
	"wikitree/internal/repository/memory"
	"wikitree/internal/repository/postgres"
	postgresWiki "wikitree/internal/repository/postgres/wiki"
	"wikitree/internal/search"
	"wikitree/internal/storage"
	wikiService "wikitree/internal/service/wiki"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// systemUser owns pages the server creates on its own.
var systemUser = &wiki.User{ID: "system", Username: "system", Admin: true}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}

	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Environment == "dev" {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	// Mirror logs to a rotating file when LOG_DIR is set
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, config.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logHandler = slog.NewJSONHandler(io.MultiWriter(os.Stdout, f), opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Auth: JWKS when configured, otherwise trusted X-User-* headers
	var verifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err = auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
	} else {
		logger.Warn("JWKS_URL not set: trusting X-User-* headers (NEVER use in production!)")
	}

	// Event bus
	bus := events.NewBus(cfg.EventBuffer, logger)
	defer bus.Close()

	// Attachment blobs
	var blobs storage.BlobStore = storage.NewMemoryStore()
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		blobs = minioStore
	} else {
		logger.Warn("MINIO_ENDPOINT not set: attachments are kept in memory")
	}

	// Repositories
	deps := wikiService.Deps{
		Events: bus,
		Blobs:  blobs,
		Config: wikiService.Config{
			HideRestrictedByOwner: cfg.Security.HideRestrictedByOwner,
			HideRestrictedByGroup: cfg.Security.HideRestrictedByGroup,
			GroupFanOut:           cfg.Limits.GroupFanOut,
			MaxAttachmentSize:     cfg.Limits.MaxAttachmentSize,
		},
		Logger: logger,
	}
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.Migrate(ctx, pool, tables, logger); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
		deps.Pages = postgresWiki.NewPageRepository(repoConfig)
		deps.Revisions = postgresWiki.NewRevisionRepository(repoConfig)
		deps.Groups = postgresWiki.NewGroupRepository(repoConfig)
		deps.Bookmarks = postgresWiki.NewBookmarkRepository(repoConfig)
		deps.Comments = postgresWiki.NewCommentRepository(repoConfig)
		deps.Attachments = postgresWiki.NewAttachmentRepository(repoConfig)
		deps.Tags = postgresWiki.NewTagRepository(repoConfig)
		deps.ShareLinks = postgresWiki.NewShareLinkRepository(repoConfig)
		deps.TxManager = postgres.NewTransactionManager(pool, logger)
		logger.Info("database connected")
	case config.DriverMemory:
		store := memory.NewStore()
		deps.Pages = memory.NewPageRepository(store)
		deps.Revisions = memory.NewRevisionRepository(store)
		deps.Groups = memory.NewGroupRepository(store)
		deps.Bookmarks = memory.NewBookmarkRepository(store)
		deps.Comments = memory.NewCommentRepository(store)
		deps.Attachments = memory.NewAttachmentRepository(store)
		deps.Tags = memory.NewTagRepository(store)
		deps.ShareLinks = memory.NewShareLinkRepository(store)
		deps.TxManager = memory.NewTransactionManager(store)
		logger.Warn("using in-memory storage: data is lost on restart")
	}
	deps.Membership = wikiService.NewMembershipCache(deps.Groups, cfg.MembershipCacheTTL)

	wikiSvc := wikiService.NewService(deps)
	if _, err := wikiSvc.EnsureRootPage(ctx, systemUser); err != nil {
		log.Fatalf("Failed to create top page: %v", err)
	}

	// Search
	var index search.Index
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex, logger)
		defer meili.Close()
		index = meili
		bus.Subscribe("search", search.NewIndexer(meili, deps.Revisions, deps.Tags, logger).Handle)
	} else {
		logger.Warn("MEILI_URL not set: search returns no results")
	}
	searchSvc := search.NewService(index, wikiSvc)

	// Realtime
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	bus.Subscribe("realtime", hub.Handle)

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		relay := events.NewRedisRelay(rdb, events.DefaultChannel, uuid.NewString(), logger)
		bus.Subscribe("redis", relay.Handle)
		// Other instances index their own writes; only the sockets here need them.
		stopRelay, err := relay.Listen(ctx, hub.Handle)
		if err != nil {
			log.Fatalf("Failed to subscribe to Redis: %v", err)
		}
		defer stopRelay()
		logger.Info("relaying page events through redis")
	}

	logger.Info("services initialized")

	allowed := cfg.AllowedOrigins()
	mux := handler.NewRouter(handler.Handlers{
		Pages:       handler.NewPageHandler(wikiSvc, logger),
		Social:      handler.NewSocialHandler(wikiSvc, logger),
		ShareLinks:  handler.NewShareLinkHandler(wikiSvc, logger),
		Attachments: handler.NewAttachmentHandler(wikiSvc, logger),
		Import:      handler.NewImportHandler(wikiSvc, logger),
		Groups:      handler.NewGroupHandler(wikiSvc, logger),
		Search:      handler.NewSearchHandler(searchSvc, logger),
		Realtime:    realtime.NewHandler(hub, httputil.GetUser, originChecker(allowed), logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: Recovery → CORS → Auth → RequestLogger → Routes
	h = middleware.RequestLogger(logger)(h)
	h = middleware.AuthMiddleware(verifier, logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserName, middleware.HeaderUserAdmin},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)
	h = middleware.Recovery(logger)(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived WebSocket connections
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

// originChecker accepts WebSocket upgrades from the CORS origins and from
// clients that send no Origin header.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
