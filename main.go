// Package main, authgate servisinin giriş noktasıdır.
//
// Bu dosyanın görevi Dependency Injection "wire-up":
//
//  1. Config'i yükle
//  2. Logger'ı kur
//  3. Database'i başlat (embedded migration'lar)
//  4. Metrics + audit sink
//  5. Repository → Service → Handler
//  6. Route'lar, metrics middleware, CORS
//  7. HTTP server + sweeper
//  8. Graceful shutdown
//
// Global değişken YOK; her şey burada oluşturulup birbirine bağlanır.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akinalp/authgate/config"
	"github.com/akinalp/authgate/database"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/clientinfo"
	"github.com/akinalp/authgate/pkg/metrics"
	"github.com/akinalp/authgate/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App, çalışan servisin parçaları. main dışında testler de kullanır.
type App struct {
	DB      *database.DB
	Handler http.Handler
	Sweeper *services.Sweeper
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("[main] failed to load config")
	}

	logger := newLogger(cfg.Log)
	pkg.SetErrorLogger(logger)
	logger.WithField("addr", cfg.Server.Addr()).Info("[main] authgate starting")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApp(cfg, logger, registry)
	if err != nil {
		logger.WithError(err).Fatal("[main] failed to initialize")
	}
	defer app.DB.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("[main] server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	app.Sweeper.Start()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("[main] shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.Sweeper.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("[main] server stopped with error")
		return
	}
	logger.Info("[main] server stopped gracefully")
}

// newApp, config'ten tüm katmanları kurar. Sweeper başlatılmaz; Start
// çağrısı main'e aittir.
func newApp(cfg *config.Config, logger *logrus.Logger, registry *prometheus.Registry) (*App, error) {
	db, err := database.New(cfg.Database.Path, database.MustSubMigrations(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.New(registry)

	// Her audit olayı hem seçilen store'a hem de sayaçlara gider.
	sink := audit.MultiSink{
		audit.New(strings.ToLower(cfg.Audit.Store), db.Conn, logger),
		m,
	}

	repos := initRepositories(db.Conn)

	svcs, err := initServices(cfg, repos, sink, m, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	h := initHandlers(svcs)

	proxies, err := clientinfo.NewResolver(cfg.Server.TrustedProxies)
	if err != nil {
		db.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Tokens, repos.User, db.Conn, sink, m, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return &App{
		DB:      db,
		Handler: corsHandler.Handler(proxies.Middleware(m.Middleware(mux))),
		Sweeper: svcs.Sweeper,
	}, nil
}

// newLogger, LOG_LEVEL ve LOG_FORMAT'a göre logrus logger'ı kurar.
// Config.Validate format'ı zaten doğrulamıştır.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("[main] unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
