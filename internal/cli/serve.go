package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/car-dealership/internal/config"
	"github.com/iliyamo/car-dealership/internal/database"
	"github.com/iliyamo/car-dealership/internal/handler"
	"github.com/iliyamo/car-dealership/internal/mailer"
	"github.com/iliyamo/car-dealership/internal/middleware"
	"github.com/iliyamo/car-dealership/internal/notify"
	"github.com/iliyamo/car-dealership/internal/queue"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/router"
	"github.com/iliyamo/car-dealership/internal/service"
	"github.com/iliyamo/car-dealership/internal/storage"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := bootstrap()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, lg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config, lg *slog.Logger) error {
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if migrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else if cfg.Redis.Enabled {
		lg.Warn("redis unreachable, rate limiting and caching disabled", "addr", cfg.Redis.Addr)
	}

	files, uploadDir, err := openStorage(ctx, cfg.Upload)
	if err != nil {
		return err
	}

	var mail mailer.Sender = mailer.Log{Logger: lg}
	if cfg.SMTP.User != "" {
		mail = mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass)
	}

	var events handler.EventPublisher = service.LogPublisher{Logger: lg}
	if cfg.Events.Enabled {
		pub := service.NewRabbitPublisher(cfg.Events.URL, cfg.Events.Queue)
		defer pub.Close()
		events = pub
		consumer := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogDir: cfg.Events.LogDir, Logger: lg}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("event consumer stopped", "err", err)
			}
		}()
	}

	users := repository.NewUserRepo(db)
	reports := repository.NewReportRepo(db)
	cars := repository.NewCarRepo(db)
	cache := middleware.NewCacheInvalidator(cfg.Cache, rdb)
	hub := notify.NewHub(lg)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, repository.NewLoginLogRepo(db), reports, cache, lg),
		Users:    handler.NewUserHandler(users, cfg.BcryptCost, cache, lg),
		Cars:     handler.NewCarHandler(cars, cache, lg),
		Bookings: handler.NewBookingHandler(repository.NewBookingRepo(db), cars, events, cache, lg),
		Reviews:  handler.NewReviewHandler(repository.NewReviewRepo(db), cars, cache, lg),
		Contacts: handler.NewContactHandler(handler.ContactHandler{
			Contacts:   repository.NewContactRepo(db),
			Files:      files,
			Mail:       mail,
			Hub:        hub,
			Events:     events,
			AdminEmail: adminAddress(ctx, cfg, users, lg),
			MaxBytes:   cfg.Upload.MaxBytes,
			Log:        lg,
		}),
		Reports: handler.NewReportHandler(reports, lg),
		Hub:     hub,

		Lookup:    users,
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb),
		UploadDir: uploadDir,
		Log:       lg,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(lg))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: corsOrigins(cfg.CORSOrigins)}))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.Upload.MaxBytes)))
	router.RegisterRoutes(e, h)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", "addr", addr, "upload_backend", cfg.Upload.Backend, "events", cfg.Events.Enabled)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down", "grace", cfg.ShutdownWait)
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	return e.Shutdown(sctx)
}

// openStorage returns the attachment store and, for the local backend, the
// directory to serve at /uploads.
func openStorage(ctx context.Context, u config.UploadConfig) (storage.Store, string, error) {
	if u.Backend == "s3" {
		s, err := storage.NewS3(ctx, storage.S3Options{
			Endpoint:  u.S3Endpoint,
			Region:    u.S3Region,
			Bucket:    u.S3Bucket,
			AccessKey: u.S3AccessKey,
			SecretKey: u.S3SecretKey,
		})
		return s, "", err
	}
	l, err := storage.NewLocal(u.Dir)
	if err != nil {
		return nil, "", err
	}
	return l, u.Dir, nil
}

// adminAddress is EMAIL_ADMIN, or the first admin account when unset.
func adminAddress(ctx context.Context, cfg config.Config, users *repository.UserRepo, lg *slog.Logger) string {
	if cfg.SMTP.AdminEmail != "" {
		return cfg.SMTP.AdminEmail
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	email, err := users.FirstAdminEmail(ctx)
	if err != nil {
		lg.Warn("no admin address for contact notifications", "err", err)
		return ""
	}
	return email
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// bodyLimit leaves room above the attachment limit for the other form
// fields and multipart framing.
func bodyLimit(maxUpload int64) string {
	return fmt.Sprintf("%dK", maxUpload/1024+512)
}
