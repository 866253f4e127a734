// cmd/web/main.go
//
// Lead site: HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load config (.env → conf/global.yaml → LEADSITE_* env, vault refs).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Open the record database and wrap it in the allow-listed store.
//
//  4. Open the key-value store for the rate-limit log (memory or Redis),
//     behind the sensitive-data guard.
//
//  5. Start the notification queue (lead emails, CRM webhooks).
//
//  6. Wire the submitter, content repository, and request-info resolver,
//     then serve the API until SIGINT or SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/config"
	"github.com/yanizio/leadsite/internal/content"
	"github.com/yanizio/leadsite/internal/database"
	"github.com/yanizio/leadsite/internal/form"
	"github.com/yanizio/leadsite/internal/logger"
	"github.com/yanizio/leadsite/internal/message"
	"github.com/yanizio/leadsite/internal/ratelimit"
	"github.com/yanizio/leadsite/internal/records"
	"github.com/yanizio/leadsite/internal/requestinfo"
	"github.com/yanizio/leadsite/internal/server"
	"github.com/yanizio/leadsite/internal/storage"
)

const serverEnvPath = "/usr/local/etc/leadsite/global.env"

// loadEnv prefers the host-wide env file; config.Load reads conf/.env later.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
	}
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("leadsite: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Record database ─────────────────────────────────────────────
	//
	logOut.Infow("connecting to database", "driver", cfg.Database.Driver)
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.ConnString(), database.Options{
		MaxOpen:     cfg.Database.MaxOpen,
		MaxIdle:     cfg.Database.MaxIdle,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	forms, err := form.Load(cfg.Forms.Dir)
	if err != nil {
		return err
	}
	tables := append([]string{records.TableCaseStudies, records.TableTestimonials, records.TableInsights}, forms.Tables()...)
	store := records.NewSQL(db, tables...)
	logOut.Infow("database online", "forms", forms.IDs())

	//
	// ── 4.  Rate-limit store ────────────────────────────────────────────
	//
	kv, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()
	limiter := ratelimit.New(storage.Guard(kv, logOut),
		ratelimit.WithMax(cfg.RateLimit.Max),
		ratelimit.WithWindow(cfg.RateLimit.Window),
		ratelimit.WithLogger(logOut),
	)

	//
	// ── 5.  Notification queue ──────────────────────────────────────────
	//
	queue := message.NewQueue(ctx, message.Options{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Log:       logOut,
	})
	defer func() { _ = queue.Close() }()

	//
	// ── 6.  Services and HTTP ───────────────────────────────────────────
	//
	sub, err := form.NewSubmitter(store, limiter,
		form.WithRegistry(forms),
		form.WithNotifier(queue, form.NotifyDefaults{
			EmailTo:    cfg.Notify.EmailTo,
			WebhookURL: cfg.Notify.WebhookURL,
		}),
	)
	if err != nil {
		return err
	}

	repo := content.NewRepository(store, content.Options{
		TTL:  cfg.Content.CacheTTL,
		Size: cfg.Content.CacheSize,
		Log:  logOut,
	})

	info, err := requestinfo.New(requestinfo.Options{
		TrustedProxies: cfg.HTTP.TrustedProxies,
		GeoDBPath:      cfg.Geo.DBPath,
		Log:            logOut,
	})
	if err != nil {
		return err
	}
	defer info.Close()

	handler := server.Routes(server.Deps{
		Leads:        sub,
		Content:      repo,
		Info:         info,
		Log:          logOut,
		ForceHTTPS:   cfg.HTTP.ForceHTTPS,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Ready:        db.PingContext,
	})

	srv := server.New(cfg.HTTP.ListenAddr, handler, server.Timeouts{
		Read:       cfg.HTTP.ReadTimeout,
		ReadHeader: cfg.HTTP.ReadHeaderTimeout,
		Write:      cfg.HTTP.WriteTimeout,
		Idle:       cfg.HTTP.IdleTimeout,
	})
	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logOut.Infow("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openKV returns the configured Store and its closer.  Entries expire one
// window after their last write.  The memory backend is swept once per
// window until ctx ends.
func openKV(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	ttl := cfg.RateLimit.Window
	if cfg.Storage.Backend != "redis" {
		mem := storage.NewMemory(ttl)
		mem.StartSweeper(ctx, ttl)
		return mem, func() {}, nil
	}

	r, err := storage.OpenRedis(ctx, storage.RedisOptions{
		Addr:     cfg.Storage.RedisAddr,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
		Prefix:   cfg.Storage.KeyPrefix,
		TTL:      ttl,
	})
	if err != nil {
		return nil, nil, err
	}
	zap.S().Infow("redis online", "addr", cfg.Storage.RedisAddr)
	return r, func() { _ = r.Close() }, nil
}
