package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/common/amqp"
	"github.com/jaxongirtoshpolatov1225-droid/inv/common/database"
	"github.com/jaxongirtoshpolatov1225-droid/inv/common/logger"
	"github.com/jaxongirtoshpolatov1225-droid/inv/common/mqtt"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/config"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	httpapi "github.com/jaxongirtoshpolatov1225-droid/inv/internal/http"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/service"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "inv-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	policy, err := service.ParseOrdinalPolicy(cfg.OrdinalPolicy)
	if err != nil {
		log.Fatal("Invalid INV_ORDINAL_POLICY", zap.Error(err))
	}

	// 存储：DB 不可用时回落到内存 repo
	var (
		db   *sql.DB
		repo repository.InventoryRepository
	)
	if cfg.DBEnabled {
		if d, err := database.Open(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for inv-server", zap.String("driver", cfg.Database.Driver))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		dialect, err := repository.DialectForDriver(cfg.Database.Driver)
		if err != nil {
			log.Fatal("Unsupported DB_DRIVER", zap.Error(err))
		}
		if cfg.DBAutoMigrate {
			if err := repository.Migrate(context.Background(), db, dialect); err != nil {
				log.Fatal("Schema migration failed", zap.Error(err))
			}
		}
		repo = repository.NewSQLInventoryRepository(db, dialect)
	} else {
		repo = repository.NewMemoryInventoryRepo()
	}

	// Redis：房间列表缓存 + 可选事件流
	var redisClient *redis.Client
	var roomCache *store.RoomCache
	if cfg.RedisEnabled || cfg.Events.Sink == "redis" {
		redisClient, err = store.OpenRedis(context.Background(), &cfg.Redis, 3*time.Second)
		if err != nil {
			log.Warn("Redis not reachable, cache reads will fall through to the store", zap.Error(err))
		}
	}
	if cfg.RedisEnabled {
		roomCache = store.NewRoomCache(store.NewRedisKV(redisClient), cfg.CacheTTL)
	}

	pub, err := newEventPublisher(cfg, redisClient, log)
	if err != nil {
		log.Warn("Event sink unavailable, events are dropped", zap.String("sink", cfg.Events.Sink), zap.Error(err))
		pub = events.Nop{}
	}

	hierarchy := service.NewHierarchyService(repo, roomCache, pub, log)
	equipment := service.NewEquipmentService(repo, policy, pub, log)
	transfer := service.NewTransferService(repo, policy, pub, log)
	imports := service.NewImportService(repo, equipment, log)
	export := service.NewExportService(repo, log)

	router := httpapi.NewRouter(log)
	router.RegisterInventoryRoutes(&httpapi.InventoryAPI{
		Organizations: httpapi.NewOrganizationsHandler(hierarchy, export, log),
		Floors:        httpapi.NewFloorsHandler(hierarchy, log),
		Rooms:         httpapi.NewRoomsHandler(hierarchy, log),
		Equipment:     httpapi.NewEquipmentHandler(equipment, transfer, log),
		Import:        httpapi.NewImportHandler(imports, log),
	})
	var ping func(*http.Request) error
	if db != nil {
		ping = func(r *http.Request) error { return db.PingContext(r.Context()) }
	}
	router.RegisterHealthRoute(ping)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server stopped", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = pub.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = repo.Close()
}

// newEventPublisher EVENTS_SINK: none | redis | mqtt | amqp
func newEventPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Sink {
	case "", "none":
		return events.Nop{}, nil
	case "redis":
		return events.NewRedisStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.StreamLen), nil
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			return nil, err
		}
		prefix := strings.ReplaceAll(cfg.Events.Stream, ":", "/")
		return events.NewMQTTPublisher(client, prefix, client.Disconnect), nil
	case "amqp":
		p, err := amqp.NewPublisher(&cfg.AMQP)
		if err != nil {
			return nil, err
		}
		return events.NewAMQPPublisher(p), nil
	default:
		return nil, fmt.Errorf("unknown EVENTS_SINK %q", cfg.Events.Sink)
	}
}
