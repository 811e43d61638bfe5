package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/hbotberlin/reservations/internal/http/handlers"
	imw "github.com/hbotberlin/reservations/internal/http/middleware"
	"github.com/hbotberlin/reservations/internal/platform/mailer"
	"github.com/hbotberlin/reservations/internal/service"
	"github.com/hbotberlin/reservations/pkg/config"
	"github.com/hbotberlin/reservations/pkg/logger"
	mw "github.com/hbotberlin/reservations/pkg/middleware"
)

func main() {
	// .env is optional; deployed environments set real variables.
	_ = godotenv.Load()

	cfg := config.Load()

	var provider mailer.Provider
	if cfg.Email.MailerSendKey != "" {
		provider = mailer.NewMailerSend(cfg.Email.MailerSendKey)
	} else {
		logger.Warn("MAILERSEND_API_KEY not set, running in dry-run mode")
	}
	dispatcher := service.NewDispatcher(cfg.Email, provider)

	limiter := imw.NewRateLimiter(imw.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		KeyFunc:  imw.ClientIP,
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	limiter.Store().StartJanitor(janitorCtx, cfg.RateLimit.Window)

	h := handlers.NewReservationHandler(dispatcher, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(imw.Recover)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.App.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/reservierung", func(r chi.Router) {
		r.With(limiter.Middleware()).Post("/", h.Create)
		r.Get("/", h.Diagnostics)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down reservation service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Reservation service shutdown error", "error", err)
		}
	}()

	logger.Info("Reservation service starting",
		"port", cfg.Server.Port,
		"env", cfg.App.Environment,
		"provider_configured", provider != nil,
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Reservation service failed", "error", err)
		os.Exit(1)
	}
}
