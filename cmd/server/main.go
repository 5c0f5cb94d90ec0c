package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"studyarchive/internal/cache"
	"studyarchive/internal/config"
	"studyarchive/internal/db"
	"studyarchive/internal/logging"
	"studyarchive/internal/middleware"
	"studyarchive/internal/router"
	"studyarchive/internal/search"
	"studyarchive/internal/services"
	"studyarchive/internal/storage"
)

const treeCacheSize = 1024

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("no .env file found, using environment variables")
	}

	ctx := context.Background()

	// Initialize Database
	gdb, err := db.Setup(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("database setup failed")
	}

	commentStore := db.NewCommentStore(gdb)
	documentStore := db.NewDocumentStore(gdb)
	userStore := db.NewUserStore(gdb)
	roleStore := db.NewRoleStore(gdb)

	objects := newObjectStore(ctx, cfg)
	treeCache := newTreeCache(ctx, cfg)

	// Meilisearch 可选，未配置时只用数据库搜索
	var engine search.Engine
	if cfg.MeiliURL != "" {
		m := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer m.Close()
		engine = m
	}
	index := search.NewService(engine, documentStore)

	accounts := services.NewAccountService(userStore, roleStore)
	notifications := services.NewNotificationService(
		db.NewNotificationStore(gdb), userStore, services.NewMailService(cfg), cfg.SiteURL)
	comments := services.NewCommentService(commentStore, documentStore,
		services.WithTreeCache(treeCache),
		services.WithNotifier(notifications),
	)
	documents := services.NewDocumentService(documentStore, commentStore, objects, index, treeCache, cfg.MaxUploadBytes)

	// Initialize Gin
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("studyarchive_session", store))
	r.MaxMultipartMemory = 8 << 20

	router.RegisterRoutes(r, router.Deps{
		Accounts:       accounts,
		Admin:          services.NewAdminService(userStore, roleStore, commentStore, treeCache),
		Documents:      documents,
		Comments:       comments,
		Notifications:  notifications,
		CaptchaEnabled: cfg.CaptchaEnabled,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Msg("StudyArchive server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
}

// newObjectStore 默认使用 MinIO，STORAGE_DRIVER=memory 时用内存存储（仅用于本地开发）
func newObjectStore(ctx context.Context, cfg config.Config) services.ObjectStore {
	if cfg.StorageDriver == config.StorageMemory {
		logging.Warn().Msg("using in-memory object storage, uploads are lost on restart")
		return storage.NewMemory()
	}
	s, err := storage.NewMinioStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("object storage setup failed")
	}
	return s
}

// newTreeCache 配置了 Redis 就用 Redis，否则进程内 LRU
func newTreeCache(ctx context.Context, cfg config.Config) services.TreeCache {
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			return services.NewTreeCache(cache.NewRedis[[]services.CommentNode](client, "studyarchive:"), cfg.TreeCacheTTL)
		}
		logging.Warn().Err(err).Msg("redis unavailable, falling back to in-process cache")
	}
	lru, err := cache.NewLRU[[]services.CommentNode](treeCacheSize)
	if err != nil {
		logging.Fatal().Err(err).Msg("tree cache setup failed")
	}
	return services.NewTreeCache(lru, cfg.TreeCacheTTL)
}
