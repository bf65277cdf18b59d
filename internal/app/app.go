package app

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/controller"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/configwatcher"
	"exam_prep_backend/pkg/database"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"exam_prep_backend/pkg/security"
	"exam_prep_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Cache  cache.Store

	services      *services
	poolRegenStop chan struct{}
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	progress *repository.ProgressRepository
	test     *repository.TestRepository
	session  *repository.SessionRepository
	taxonomy *repository.TaxonomyRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	pool        *service.QuestionPoolService
	adaptive    *service.AdaptiveService
	practice    *service.PracticeService
	updater     *service.MetricsUpdater
	test        *service.TestService
	recovery    *service.RecoveryService
	question    *service.QuestionService
	leaderboard *service.LeaderboardService
	performance *service.PerformanceService
}

type controllers struct {
	auth        *controller.AuthController
	test        *controller.TestController
	practice    *controller.PracticeController
	question    *controller.QuestionController
	taxonomy    *controller.TaxonomyController
	performance *controller.PerformanceController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db),
		progress: repository.NewProgressRepository(db),
		test:     repository.NewTestRepository(db),
		session:  repository.NewSessionRepository(db),
		taxonomy: repository.NewTaxonomyRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, store cache.Store) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.pool = service.NewQuestionPoolService(repos.question, repos.taxonomy, store, cfg.Quiz)
	s.adaptive = service.NewAdaptiveService(repos.progress, s.pool, cfg.Quiz)
	s.practice = service.NewPracticeService(repos.progress, s.pool, store, cfg.Quiz)
	s.updater = service.NewMetricsUpdater(repos.question, store, cfg.Quiz.MetricsQueueSize)
	s.recovery = service.NewRecoveryService(repos.test, repos.session)

	s.test = service.NewTestService(
		repos.test,
		repos.session,
		repos.question,
		repos.progress,
		s.pool,
		s.adaptive,
		s.updater,
		store,
		cfg.Quiz,
	)

	s.question = service.NewQuestionService(repos.question, repos.taxonomy, s.storage, s.pool, store, cfg.Quiz)
	s.leaderboard = service.NewLeaderboardService(repos.progress, store, cfg.Quiz)
	s.performance = service.NewPerformanceService(repos.progress, store, cfg.Quiz)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, store cache.Store) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		test:        controller.NewTestController(s.test, s.recovery),
		practice:    controller.NewPracticeController(s.practice, s.adaptive),
		question:    controller.NewQuestionController(s.question, s.pool),
		taxonomy:    controller.NewTaxonomyController(repos.taxonomy, store, a.Config.Quiz),
		performance: controller.NewPerformanceController(s.performance, s.leaderboard),
		health:      controller.NewHealthController(db, store),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 启动指标消费者与题池定期重建
func (a *App) startBackgroundTasks(s *services) {
	s.updater.Start()

	a.poolRegenStop = make(chan struct{})
	interval := time.Duration(a.Config.Quiz.PoolRegenIntervalMinute) * time.Minute
	go poolRegenLoop(interval, a.poolRegenStop, func() {
		if _, err := s.pool.GeneratePools(context.Background()); err != nil {
			logger.Log.Error("scheduled pool regeneration failed", zap.Error(err))
		}
	})

	// 配置热更新：难度阈值、TTL 等调优参数不重启生效
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		a.services.adaptive.UpdateQuizConfig(newCfg.Quiz)
		logger.Log.Info("quiz config reloaded")
	})
}

// poolRegenLoop 周期触发题池重建，收到停止信号后退出
func poolRegenLoop(interval time.Duration, stop <-chan struct{}, regen func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			regen()
		case <-stop:
			return
		}
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != "release"
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存层 fail-open：Redis 不可用时仍然启动，读写全部走数据库
		logger.Log.Warn("Redis unavailable, running without cache acceleration", zap.Error(err))
	}
	store := cache.NewRedisStore(rdb)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Cache:  store,
	}

	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, store)
	app.services = services
	controllers := app.initControllers(services, repos, db, store)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-prep-platform", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// 停掉后台重建循环，排空积压的指标更新任务后再关缓存连接
	if a.poolRegenStop != nil {
		close(a.poolRegenStop)
	}
	if a.services != nil && a.services.updater != nil {
		a.services.updater.Stop()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}

	log.Println("Server exiting")
}
