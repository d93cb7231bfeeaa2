package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"asset-catalog/internal/app"
	"asset-catalog/internal/cache"
	"asset-catalog/internal/config"
	"asset-catalog/internal/model"
	mysqlClient "asset-catalog/internal/platform/mysql"
	rabbitmqClient "asset-catalog/internal/platform/rabbitmq"
	redisClient "asset-catalog/internal/platform/redis"
	s3Client "asset-catalog/internal/platform/s3"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/storage"
	"asset-catalog/internal/worker"
)

type App struct {
	Config *config.Config
	Log    zerolog.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Store  *storage.Store
	// UploadDir is the served directory; empty unless files are kept locally.
	UploadDir string

	Services      *Services
	CleanupWorker *worker.FileCleanupWorker
	Sweeper       *worker.OrphanSweeper

	StartedAt time.Time
}

type Services struct {
	Auth       *app.AuthService
	Assets     *app.AssetService
	Categories *app.CategoryService
	Tags       *app.TagService
	Users      *app.UserService
	AssetRepo  *repository.AssetRepository
}

// ServiceDeps are the shared resources the services are built from. Cache
// and Cleanup may be nil.
type ServiceDeps struct {
	DB      *gorm.DB
	Store   *storage.Store
	Cache   app.AssetCache
	Cleanup app.CleanupPublisher
	Log     zerolog.Logger
}

func NewServices(cfg *config.Config, deps ServiceDeps) *Services {
	userRepo := repository.NewUserRepository(deps.DB)
	assetRepo := repository.NewAssetRepository(deps.DB)
	categoryRepo := repository.NewCategoryRepository(deps.DB)
	tagRepo := repository.NewTagRepository(deps.DB)

	return &Services{
		Auth: app.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.TokenTTL(), cfg.Auth.BcryptCost),
		Assets: app.NewAssetService(app.AssetDeps{
			Assets:     assetRepo,
			Categories: categoryRepo,
			Tags:       tagRepo,
			Store:      deps.Store,
			Inspector:  app.NewInspector(deps.Store, cfg.Storage.ThumbnailMaxSide, cfg.Storage.ThumbnailMaxPixels, deps.Log),
			Cache:      deps.Cache,
			Cleanup:    deps.Cleanup,
			PublicPath: cfg.Storage.PublicPath,
			Log:        deps.Log,
		}),
		Categories: app.NewCategoryService(categoryRepo, assetRepo, deps.Cache, deps.Log),
		Tags:       app.NewTagService(tagRepo, assetRepo, deps.Cache, deps.Log),
		Users:      app.NewUserService(userRepo, assetRepo, deps.Store, deps.Cache, cfg.Auth.BcryptCost, deps.Log),
		AssetRepo:  assetRepo,
	}
}

// New connects every dependency, migrates the schema and starts the
// background workers.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}

	var err error
	if a.MySQL, err = OpenDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	if err := Migrate(a.MySQL); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.FileCleanupQueue); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Store, a.UploadDir, err = OpenStore(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Services = NewServices(cfg, ServiceDeps{
		DB:      a.MySQL,
		Store:   a.Store,
		Cache:   cache.NewAssetCache(a.Redis, cfg.AssetCacheTTL()),
		Cleanup: rabbitmqClient.NewCleanupPublisher(a.MQConn, cfg.RabbitMQ.FileCleanupQueue),
		Log:     log,
	})

	a.CleanupWorker = worker.NewFileCleanupWorker(a.MQConn, a.Store, cfg.RabbitMQ.FileCleanupQueue, log)
	if err := a.CleanupWorker.Start(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("start file cleanup worker failed: %w", err)
	}

	a.Sweeper = worker.NewOrphanSweeper(a.Store, a.Services.AssetRepo, cfg.SweepGrace(), cfg.SweepInterval(), log)
	a.Sweeper.Start(ctx)

	return a, nil
}

func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	return mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.Log.Level == "debug")
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.Tables()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

// OpenStore builds the file store for the configured driver. The returned
// directory is set only for the local driver.
func OpenStore(ctx context.Context, cfg *config.Config) (*storage.Store, string, error) {
	switch cfg.Storage.Driver {
	case "s3":
		client, err := s3Client.New(ctx, cfg.S3)
		if err != nil {
			return nil, "", err
		}
		backend := storage.NewS3Backend(client, cfg.S3.Bucket)
		return storage.NewStore(backend, cfg.MaxUploadBytes(), nil), "", nil
	default:
		backend, err := storage.NewLocalBackend(cfg.Storage.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return storage.NewStore(backend, cfg.MaxUploadBytes(), nil), backend.Dir(), nil
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Sweeper != nil {
		a.Sweeper.Close()
	}
	if a.CleanupWorker != nil {
		a.CleanupWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
