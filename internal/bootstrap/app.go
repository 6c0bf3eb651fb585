package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/staffportal/internal/config"
	"github.com/locvowork/staffportal/internal/database"
	"github.com/locvowork/staffportal/internal/handler"
	"github.com/locvowork/staffportal/internal/hierarchy"
	"github.com/locvowork/staffportal/internal/logger"
	"github.com/locvowork/staffportal/internal/repository"
	"github.com/locvowork/staffportal/internal/service"
)

type App struct {
	Echo  *echo.Echo
	DB    *sql.DB
	Store *repository.PostgresStore
	// Index and Datastore are nil when not configured.
	Index     *database.ElasticSearchClient
	Datastore *database.DatastoreClient

	Users         *service.UserService
	TimeCards     *service.TimeCardService
	TimeOff       *service.TimeOffService
	Notifications *service.NotificationService
	Calendar      *service.CalendarService
	Dispatcher    *service.Dispatcher
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

// Initialize wires the services and the HTTP API.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitializeServices(ctx); err != nil {
		return err
	}
	cfg := config.DefaultEnvConfig
	if cfg.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	loc := cfg.Location()

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(cfg.JWT_SECRET, handler.Handlers{
		TimeCards:     handler.NewTimeCardHandler(a.TimeCards, a.Dispatcher, loc),
		TimeOff:       handler.NewTimeOffHandler(a.TimeOff, a.Dispatcher, loc),
		Notifications: handler.NewNotificationHandler(a.Notifications),
		Users:         handler.NewUserHandler(a.Users, loc),
		Admin:         handler.NewAdminHandler(a.Users, a.TimeCards, a.TimeOff, a.Notifications, a.Dispatcher, loc),
		Calendar:      handler.NewCalendarHandler(a.Calendar, loc),
	})

	return nil
}

// InitializeServices loads configuration, opens the database and builds the
// services without any HTTP surface.
func (a *App) InitializeServices(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	// Initialize database connection
	dbConfig := database.Config{
		Host:            cfg.DB_HOST,
		Port:            cfg.DB_PORT,
		User:            cfg.DB_USER,
		Password:        cfg.DB_PASSWORD,
		DBName:          cfg.DB_NAME,
		SSLMode:         cfg.DB_SSL_MODE,
		MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
	}

	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	a.Store = repository.NewPostgresStore(db)
	if err := a.Store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Optional collaborators
	if cfg.ELASTIC_URL != "" {
		if a.Index, err = database.NewElasticSearchClient(cfg.ELASTIC_URL, cfg.ELASTIC_INDEX); err != nil {
			return fmt.Errorf("failed to initialize directory index: %w", err)
		}
		logger.InfoLog(ctx, "Directory index enabled at %s", cfg.ELASTIC_URL)
	}
	sinks := []service.NotificationSink{service.LogSink{}}
	if cfg.DATASTORE_PROJECT_ID != "" {
		if a.Datastore, err = database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID); err != nil {
			return fmt.Errorf("failed to initialize notification feed: %w", err)
		}
		sinks = append(sinks, a.Datastore)
		logger.InfoLog(ctx, "Notification feed enabled for project %s", cfg.DATASTORE_PROJECT_ID)
	}

	// Initialize dependencies
	opts := service.Options{Location: cfg.Location(), HoursPerDay: cfg.HOURS_PER_DAY}
	checker := hierarchy.NewChecker(a.Store, time.Now)
	var index service.DirectoryIndex
	if a.Index != nil {
		index = a.Index
	}
	a.Calendar = service.NewCalendarService(a.Store, opts)
	opts.Holidays = a.Calendar
	a.Users = service.NewUserService(a.Store, checker, index, opts)
	a.TimeCards = service.NewTimeCardService(a.Store, opts)
	a.TimeOff = service.NewTimeOffService(a.Store, opts)
	a.Notifications = service.NewNotificationService(a.Store, opts)
	a.Dispatcher = service.NewDispatcher(sinks...).WithRetry(2, func(attempt int) time.Duration {
		return time.Duration(attempt) * 200 * time.Millisecond
	})
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(secret string, h handler.Handlers) {
	a.Echo.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	handler.RegisterRoutes(a.Echo.Group("/api", handler.AuthJWT(secret, a.Users)), h)
}

func (a *App) Run() error {
	defer a.Close()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}

// Close releases the database and the optional feed client.
func (a *App) Close() {
	if a.Datastore != nil {
		if err := a.Datastore.Close(); err != nil {
			logger.ErrorLog(context.Background(), "failed to close datastore client: %v", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
