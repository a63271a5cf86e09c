package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/equitysim/internal/simulation/application"
	"github.com/wyfcoding/equitysim/internal/simulation/domain"
	"github.com/wyfcoding/equitysim/internal/simulation/infrastructure/dataset"
	"github.com/wyfcoding/equitysim/internal/simulation/infrastructure/messaging"
	"github.com/wyfcoding/equitysim/internal/simulation/infrastructure/repository"
	httpserver "github.com/wyfcoding/equitysim/internal/simulation/interfaces/http"
	"github.com/wyfcoding/equitysim/pkg/cache"
	"github.com/wyfcoding/equitysim/pkg/config"
	"github.com/wyfcoding/equitysim/pkg/db"
	"github.com/wyfcoding/equitysim/pkg/logger"
	"github.com/wyfcoding/equitysim/pkg/metrics"
	"github.com/wyfcoding/equitysim/pkg/middleware"
	"github.com/wyfcoding/equitysim/pkg/mq"
	"github.com/wyfcoding/equitysim/pkg/ratelimit"
	"github.com/shopspring/decimal"
)

var configPath = flag.String("config", "configs/simulation/config.toml", "config file path")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. 配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	logger.Info(ctx, "starting service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 指标
	m := metrics.New("simulation")
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 4. 数据库
	database, err := db.Init(db.Config{
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&repository.SimulationRunModel{},
			&repository.YearStatisticModel{},
		); err != nil {
			logger.Error(ctx, "failed to migrate database", "error", err)
		}
	}

	// 5. Redis
	redisCache, err := cache.New(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxPoolSize: cfg.Redis.MaxPoolSize,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", "error", err)
	}
	defer redisCache.Close()

	// 6. Kafka
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to create kafka producer", "error", err)
	}
	defer producer.Close()

	// 7. 历史数据集：进程启动时加载一次，全程只读
	history, err := dataset.Load(ctx, dataset.Config{
		PropertyCSV:     cfg.Dataset.PropertyCSV,
		CPICSV:          cfg.Dataset.CPICSV,
		MortgageRateCSV: cfg.Dataset.MortgageRateCSV,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to load historical datasets", "error", err)
	}

	// 8. 仓储与应用服务
	repo := repository.NewSimulationRepository(database)
	publisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.CompletedTopic)

	defaults := defaultParameters(cfg.Simulation)
	service := application.NewSimulationApplicationService(
		defaults,
		history,
		cfg.Simulation.Workers,
		repo,
		publisher,
		redisCache,
		time.Duration(cfg.Redis.ResultTTL)*time.Second,
		m,
		logger.Get(),
	)

	// 9. HTTP 服务
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	if cfg.HTTP.RateLimit > 0 {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.HTTP.RateLimit))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := httpserver.NewHandler(service)
	handler.RegisterRoutes(router.Group("/api/v1"))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 10. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "service stopped")
}

// defaultParameters 将配置文件的模拟默认值转换为领域参数
func defaultParameters(cfg config.SimulationConfig) domain.Parameters {
	params := domain.DefaultParameters()
	params.NumScenariosPerYear = cfg.ScenariosPerYear
	params.MaxRepaymentYear = cfg.MaxRepaymentYear
	params.LookbackYears = cfg.LookbackYears
	params.SchemeMargin = cfg.SchemeMargin
	params.InterestFreeMonths = cfg.InterestFreeMonths
	params.AdminFee = decimal.NewFromFloat(cfg.AdminFee)
	params.ManagementFee = decimal.NewFromFloat(cfg.ManagementFee)
	params.MortgageTermYears = cfg.MortgageTermYears
	return params
}
