package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/config"
	"github.com/ryowuandjanet/go-user-auth/internal/application"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
	"github.com/ryowuandjanet/go-user-auth/internal/infrastructure/memory"
	"github.com/ryowuandjanet/go-user-auth/internal/infrastructure/mongodb"
	"github.com/ryowuandjanet/go-user-auth/internal/infrastructure/postgres"
	"github.com/ryowuandjanet/go-user-auth/internal/observability"
	"github.com/ryowuandjanet/go-user-auth/pkg/helpers"
	"github.com/ryowuandjanet/go-user-auth/pkg/mailer"
)

// Container holds the components built at startup. It is constructed once
// and passed explicitly; nothing reads it through package globals.
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *observability.Metrics // nil when metrics are disabled
	JWT     *helpers.JWTManager
	Repo    repository.UserRepository
	Auth    *application.AuthService
	Users   *application.UserService

	closers []func(context.Context) error
}

// New wires the store, mailer and services selected by cfg.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if cfg.MetricsEnabled {
		c.Metrics = observability.NewMetrics()
	}

	jwtm, err := helpers.NewJWTManager(cfg.SecretKey, cfg.JWTAlgorithm, cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	c.JWT = jwtm

	if err := c.openStore(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	resetMailer, err := c.openMailer()
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	c.Auth = application.NewAuthService(
		c.Repo,
		helpers.NewBcryptHasher(cfg.BcryptCost),
		jwtm,
		resetMailer,
		application.ResetSettings{
			BaseURL:    cfg.ResetPasswordURL,
			TTL:        cfg.ResetTokenTTL,
			MailDriver: cfg.MailDriver,
		},
		c.Metrics,
		logger,
	)
	c.Users = application.NewUserService(c.Repo, logger)
	return c, nil
}

func (c *Container) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

func (c *Container) openStore(ctx context.Context) error {
	cfg := c.Config
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURL, c.Logger)
		if err != nil {
			return err
		}
		c.onClose(func(ctx context.Context) error {
			err := client.Disconnect(ctx)
			c.Logger.Info("closed MongoDB connection")
			return err
		})
		db := client.Database(cfg.DatabaseName)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		c.Repo = mongodb.NewUserRepository(db)

	case config.StorePostgres:
		if cfg.MigrateOnBoot {
			if err := migrateUp(cfg.PostgresDSN()); err != nil {
				return err
			}
			c.Logger.Info("database migrations applied")
		}
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return err
		}
		c.onClose(func(context.Context) error {
			pool.Close()
			return nil
		})
		c.Repo = postgres.NewUserRepository(pool)

	case config.StoreMemory:
		c.Logger.Warn("using in-memory store; data is lost on restart")
		c.Repo = memory.NewUserRepository()

	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	c.Logger.WithField("driver", cfg.StoreDriver).Info("store ready")
	return nil
}

func migrateUp(dsn string) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	upErr := m.Up()
	return errors.Join(upErr, m.Close())
}

func (c *Container) openMailer() (application.PasswordResetMailer, error) {
	cfg := c.Config
	if cfg.MailDriver == config.MailQueue {
		pub, err := mailer.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		c.onClose(func(context.Context) error {
			pub.Close()
			return nil
		})
		return mailer.NewQueued(pub, cfg.AppName, cfg.ResetTokenTTL), nil
	}

	sender, err := NewMailSender(cfg, cfg.MailDriver, c.Logger)
	if err != nil {
		return nil, err
	}
	return mailer.NewDirect(sender, cfg.AppName, cfg.ResetTokenTTL), nil
}

// NewMailSender builds the delivery transport named by driver. The email
// worker uses it with MAIL_WORKER_TRANSPORT.
func NewMailSender(cfg *config.Config, driver string, logger *logrus.Logger) (mailer.Sender, error) {
	switch driver {
	case config.MailSMTP:
		if cfg.MailServer == "" && logger != nil {
			logger.Warn("MAIL_SERVER is empty; reset emails will fail to send")
		}
		return mailer.NewSMTP(cfg.MailAddr(), cfg.MailUsername, cfg.MailPassword, cfg.MailFrom, cfg.MailStartTLS), nil
	case config.MailMailgun:
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			return nil, errors.New("mailgun not configured")
		}
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), nil
	case config.MailLog:
		return mailer.LogSender{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}
	c.closers = nil
	return errors.Join(errs...)
}
