package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"casecraft_echo/internal/config"
	"casecraft_echo/internal/models"
	"casecraft_echo/internal/pricing"
	"casecraft_echo/internal/repository"
	"casecraft_echo/internal/services"
	"casecraft_echo/internal/tasks"
)

// Container holds the long-lived clients and services shared by the server
// and the worker.
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *services.RedisCache
	Locker services.Locker

	Gateway  services.PaymentGateway
	Gateways []services.PaymentGateway

	UserRepo          *repository.UserRepository
	ConfigurationRepo *repository.ConfigurationRepository
	OrderRepo         *repository.OrderRepository
	CallbackRepo      *repository.CallbackRepository
	TaskRepo          *repository.ScheduledTaskRepository

	Users          *services.UserService
	Configurations *services.ConfigurationService
	Orders         *services.OrderService
	Payments       *services.PaymentService
	Email          *services.EmailService
}

// SetupLogger configures the global zerolog logger. Development gets a
// console writer, everything else JSON.
func SetupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// New connects to the database and Redis and wires every service. Redis is
// optional; without it configurations are not cached and checkout locking is
// a no-op.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	db, err := services.InitDB(cfg.Database.URL, !cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	c.Locker = services.NoopLocker{}
	if cfg.Redis.URL != "" {
		cache, err := services.NewRedisCache(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and locks")
		} else {
			c.Cache = cache
			c.Locker = services.NewRedisLocker(cache.Client())
		}
	}

	if err := c.setupGateways(cfg); err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg.Pricing.CatalogPath, c.Gateway)
	if err != nil {
		return nil, err
	}

	c.UserRepo = repository.NewUserRepository(db)
	c.ConfigurationRepo = repository.NewConfigurationRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CallbackRepo = repository.NewCallbackRepository(db)
	c.TaskRepo = repository.NewScheduledTaskRepository(db)

	c.Email = services.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)

	var scheduler services.ConfirmationScheduler
	if c.Email.Configured() {
		confirmation := tasks.NewSendOrderConfirmationTask(c.OrderRepo, c.Email, cfg.App.URL)
		scheduler = tasks.NewConfirmationScheduler(c.TaskRepo, confirmation)
	} else {
		log.Warn().Msg("SMTP not configured, order confirmation emails disabled")
	}

	c.Users = services.NewUserService(c.UserRepo)
	c.Configurations = services.NewConfigurationService(c.ConfigurationRepo, pricing.NewCalculator(catalog), c.Cache)
	c.Orders = services.NewOrderService(c.OrderRepo)
	c.Payments = services.NewPaymentService(c.OrderRepo, c.CallbackRepo, scheduler, c.Gateways...)

	return c, nil
}

func (c *Container) setupGateways(cfg *config.Config) error {
	if key := cfg.Payment.Midtrans.ServerKey; key != "" {
		c.Gateways = append(c.Gateways, services.NewMidtransService(key, cfg.Payment.Midtrans.IsProduction))
	}
	if key := cfg.Payment.Stripe.SecretKey; key != "" {
		c.Gateways = append(c.Gateways, services.NewStripeService(key, cfg.Payment.Stripe.WebhookSecret))
	}

	for _, g := range c.Gateways {
		if string(g.Name()) == cfg.Payment.Gateway {
			c.Gateway = g
		}
	}
	if c.Gateway == nil {
		return fmt.Errorf("payment gateway %q is not configured", cfg.Payment.Gateway)
	}
	log.Info().Str("gateway", string(c.Gateway.Name())).Int("configured", len(c.Gateways)).Msg("payment gateways ready")
	return nil
}

// Migrate creates or updates the schema.
func (c *Container) Migrate() error {
	return services.AutoMigrate(c.DB)
}

// Ping checks the database connection.
func (c *Container) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database pool and Redis client.
func (c *Container) Close() {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

// Registry returns the task handlers the worker runs.
func (c *Container) Registry() *tasks.Registry {
	r := tasks.NewRegistry()
	tasks.DefineTasks(r, tasks.Dependencies{
		Payments: c.Payments,
		Orders:   c.OrderRepo,
		Mailer:   c.Email,
		AppURL:   c.Config.App.URL,
	})
	return r
}

// SyncTask is the recurring sweep that reconciles unpaid orders with their
// payment sessions.
func SyncTask(due time.Time) (*models.ScheduledTask, error) {
	def := tasks.NewSyncPendingPaymentsTask(nil)
	return def.CreateTask(tasks.SyncPendingPaymentsArgs{WindowHours: 24, Limit: 100}, due, tasks.DefaultSyncRule)
}

// loadCatalog reads the catalog at path, or picks the built-in catalog in the
// currency the gateway settles. The result must be chargeable by gateway.
func loadCatalog(path string, gateway services.PaymentGateway) (*pricing.Catalog, error) {
	var (
		catalog *pricing.Catalog
		err     error
	)
	switch {
	case path != "":
		catalog, err = pricing.LoadCatalog(path)
	case gateway.Name() == models.PaymentGatewayMidtrans:
		catalog, err = pricing.DefaultCatalogFor("idr")
	default:
		catalog = pricing.DefaultCatalog()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing catalog: %w", err)
	}

	if !services.SupportsCurrency(gateway, catalog.Currency) {
		return nil, fmt.Errorf("pricing catalog currency %q is not supported by the %s gateway", catalog.Currency, gateway.Name())
	}
	log.Info().Str("path", path).Str("currency", catalog.Currency).Msg("pricing catalog loaded")
	return catalog, nil
}
