package server

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskmanager/internal/config"
	"taskmanager/internal/repository"
)

// Store bundles the repositories of one backend with its shutdown hook.
type Store struct {
	Tasks repository.TaskRepository
	Users repository.UserRepository
	Close func(context.Context) error
}

func noopClose(context.Context) error { return nil }

// OpenStore connects the backend selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverMemory:
		logger.Warn("⚠️  Using in-memory store, data is lost on restart")
		return &Store{
			Tasks: repository.NewMemoryTaskRepository(),
			Users: repository.NewMemoryUserRepository(),
			Close: noopClose,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openMongo(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("❌ failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDB)
	tasks := repository.NewMongoTaskRepository(db)
	users := repository.NewMongoUserRepository(db)
	if err := tasks.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create task indexes: %w", err)
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	logger.Info("✅ Connected to MongoDB", "db", cfg.MongoDB)

	return &Store{Tasks: tasks, Users: users, Close: client.Disconnect}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&repository.UserRow{}, &repository.TaskRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	logger.Info("✅ Connected to database", "host", cfg.DBHost, "db", cfg.DBName)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &Store{
		Tasks: repository.NewGormTaskRepository(db),
		Users: repository.NewGormUserRepository(db),
		Close: func(context.Context) error { return sqlDB.Close() },
	}, nil
}
